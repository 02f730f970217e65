package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/imposter/internal/models"
	"github.com/sirupsen/logrus"
)

// Postgres keeps each room as a row of the rooms table. Writes raise a NOTIFY on the room's
// channel in the same transaction; subscribers LISTEN on a dedicated pooled connection.
type Postgres struct {
	pool   *pgxpool.Pool
	logger logrus.FieldLogger
}

// NewPostgres wraps an open pool. The rooms table must already be migrated.
func NewPostgres(pool *pgxpool.Pool, logger logrus.FieldLogger) *Postgres {
	return &Postgres{pool: pool, logger: logger}
}

// channel is the NOTIFY channel for a room.
func channel(code string) string {
	return "room_" + code
}

// CreateRoom implements Client.
func (p *Postgres) CreateRoom(ctx context.Context, room *models.Room) (string, error) {
	r := room.Clone()
	r.Normalize()

	args := []any{r.RoomCode, r.HostID, string(r.GameState), r.CurrentWord, r.CurrentCategory, r.StartedAt, r.StartingPlayerIndex}
	for _, v := range []any{r.Players, r.Settings, r.Votes, r.CustomWords, r.UsedWords} {
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to encode room: %w", err)
		}
		args = append(args, string(b))
	}

	q := `
	INSERT INTO rooms (
		room_code, host_id, game_state, current_word, current_category,
		started_at, starting_player_index,
		players, settings, votes, custom_words, used_words
	)
	VALUES ($1, $2, $3, $4, $5,
	        $6, $7,
	        $8::jsonb, $9::jsonb, $10::jsonb, $11::jsonb, $12::jsonb)
	ON CONFLICT (room_code) DO NOTHING
	`
	inserted := false
	err := pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, q, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		inserted = true
		_, err = tx.Exec(ctx, `SELECT pg_notify($1, $2)`, channel(r.RoomCode), r.RoomCode)
		return err
	})
	if err != nil {
		return "", connErr("create room", err)
	}
	if !inserted {
		return "", fmt.Errorf("%w: %s", ErrRoomExists, r.RoomCode)
	}
	return r.RoomCode, nil
}

// FetchRoom implements Client.
func (p *Postgres) FetchRoom(ctx context.Context, code string) (*models.Room, error) {
	var raw []byte
	q := `SELECT to_jsonb(r) - 'created_at' - 'updated_at' FROM rooms r WHERE r.room_code = $1`
	if err := p.pool.QueryRow(ctx, q, code).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
		}
		return nil, connErr("fetch room", err)
	}

	var room models.Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return nil, fmt.Errorf("failed to decode room %s: %w", code, err)
	}
	room.Normalize()
	return &room, nil
}

// FetchField implements Client.
func (p *Postgres) FetchField(ctx context.Context, code string, field models.Field) (json.RawMessage, error) {
	if err := checkField(field); err != nil {
		return nil, err
	}
	var raw []byte
	q := fmt.Sprintf(`SELECT to_jsonb(r.%s) FROM rooms r WHERE r.room_code = $1`, pgx.Identifier{string(field)}.Sanitize())
	if err := p.pool.QueryRow(ctx, q, code).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
		}
		return nil, connErr("fetch field", err)
	}
	if raw == nil {
		return json.RawMessage("null"), nil
	}
	return raw, nil
}

// columnExpr converts a JSON-encoded parameter to the column's SQL type.
func columnExpr(field models.Field, param string) string {
	switch field {
	case models.FieldGameState, models.FieldCurrentWord, models.FieldCurrentCategory:
		return fmt.Sprintf("(%s::jsonb #>> '{}')", param)
	case models.FieldStartedAt:
		return fmt.Sprintf("(%s::jsonb #>> '{}')::timestamptz", param)
	case models.FieldStartingPlayerIndex:
		return fmt.Sprintf("(%s::jsonb)::integer", param)
	default:
		return param + "::jsonb"
	}
}

// UpdateRoom implements Client.
func (p *Postgres) UpdateRoom(ctx context.Context, code string, patch models.RoomPatch) error {
	fields := patch.Fields()

	sets := make([]string, 0, len(fields)+1)
	args := []any{code}
	for _, f := range models.AllFields {
		v, ok := fields[f]
		if !ok {
			continue
		}
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", f, err)
		}
		args = append(args, string(b))
		param := fmt.Sprintf("$%d", len(args))
		sets = append(sets, fmt.Sprintf("%s = %s", pgx.Identifier{string(f)}.Sanitize(), columnExpr(f, param)))
	}
	sets = append(sets, "updated_at = now()")

	q := fmt.Sprintf(`UPDATE rooms SET %s WHERE room_code = $1`, strings.Join(sets, ", "))
	found := false
	err := pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, q, args...)
		if err != nil {
			return err
		}
		found = tag.RowsAffected() > 0
		if !found || len(fields) == 0 {
			return nil
		}
		_, err = tx.Exec(ctx, `SELECT pg_notify($1, $2)`, channel(code), code)
		return err
	})
	if err != nil {
		return connErr("update room", err)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	return nil
}

// Subscribe implements Client. The listening connection is held until unsubscribe.
func (p *Postgres) Subscribe(ctx context.Context, code string, onUpdate func(*models.Room)) (Unsubscribe, error) {
	if _, err := p.FetchRoom(ctx, code); err != nil {
		return nil, err
	}

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, connErr("subscribe", err)
	}
	listen := "LISTEN " + pgx.Identifier{channel(code)}.Sanitize()
	if _, err := conn.Exec(ctx, listen); err != nil {
		conn.Release()
		return nil, connErr("subscribe", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	box := newLatest()
	go box.run(onUpdate)

	log := p.logger.WithField("room", code)
	go func() {
		defer box.close()
		defer func() {
			_, _ = conn.Exec(context.Background(), "UNLISTEN *")
			conn.Release()
		}()
		for {
			if _, err := conn.Conn().WaitForNotification(subCtx); err != nil {
				if subCtx.Err() == nil {
					log.Warnf("room listener stopped: %v", err)
				}
				return
			}
			room, err := p.FetchRoom(subCtx, code)
			if err != nil {
				if subCtx.Err() == nil {
					log.Warnf("failed to refresh room after notify: %v", err)
				}
				continue
			}
			box.put(room)
		}
	}()

	return Unsubscribe(cancel), nil
}
