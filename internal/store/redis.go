package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jason-s-yu/imposter/internal/cache"
	"github.com/jason-s-yu/imposter/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Redis keeps each room as a hash of JSON-encoded columns and announces every write on the
// room's pub/sub channel.
type Redis struct {
	rdb    *redis.Client
	logger logrus.FieldLogger
}

const maxTxRetries = 3

// NewRedis wraps a connected client.
func NewRedis(rdb *redis.Client, logger logrus.FieldLogger) *Redis {
	return &Redis{rdb: rdb, logger: logger}
}

func encodeFields(values map[models.Field]any) (map[string]any, error) {
	out := make(map[string]any, len(values))
	for f, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", f, err)
		}
		out[string(f)] = string(b)
	}
	return out, nil
}

// CreateRoom implements Client. The existence check and the write run in one WATCHed
// transaction so two hosts cannot claim the same code.
func (r *Redis) CreateRoom(ctx context.Context, room *models.Room) (string, error) {
	rec := room.Clone()
	rec.Normalize()

	values := map[models.Field]any{}
	for _, f := range models.AllFields {
		v, _ := rec.FieldValue(f)
		values[f] = v
	}
	hash, err := encodeFields(values)
	if err != nil {
		return "", err
	}

	key := cache.RoomKey(rec.RoomCode)
	err = r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrRoomExists
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, hash)
			pipe.Publish(ctx, cache.RoomChannel(rec.RoomCode), rec.RoomCode)
			return nil
		})
		return err
	}, key)
	switch {
	case errors.Is(err, ErrRoomExists), errors.Is(err, redis.TxFailedErr):
		return "", fmt.Errorf("%w: %s", ErrRoomExists, rec.RoomCode)
	case err != nil:
		return "", connErr("create room", err)
	}
	return rec.RoomCode, nil
}

// FetchRoom implements Client.
func (r *Redis) FetchRoom(ctx context.Context, code string) (*models.Room, error) {
	hash, err := r.rdb.HGetAll(ctx, cache.RoomKey(code)).Result()
	if err != nil {
		return nil, connErr("fetch room", err)
	}
	if len(hash) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}

	obj := make(map[string]json.RawMessage, len(hash))
	for k, v := range hash {
		obj[k] = json.RawMessage(v)
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to decode room %s: %w", code, err)
	}
	var room models.Room
	if err := json.Unmarshal(b, &room); err != nil {
		return nil, fmt.Errorf("failed to decode room %s: %w", code, err)
	}
	room.Normalize()
	return &room, nil
}

// FetchField implements Client.
func (r *Redis) FetchField(ctx context.Context, code string, field models.Field) (json.RawMessage, error) {
	if err := checkField(field); err != nil {
		return nil, err
	}
	v, err := r.rdb.HGet(ctx, cache.RoomKey(code), string(field)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	if err != nil {
		return nil, connErr("fetch field", err)
	}
	return json.RawMessage(v), nil
}

// UpdateRoom implements Client.
func (r *Redis) UpdateRoom(ctx context.Context, code string, patch models.RoomPatch) error {
	hash, err := encodeFields(patch.Fields())
	if err != nil {
		return err
	}

	key := cache.RoomKey(code)
	update := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrRoomNotFound
		}
		if len(hash) == 0 {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, hash)
			pipe.Publish(ctx, cache.RoomChannel(code), code)
			return nil
		})
		return err
	}

	// a concurrent write to the hash aborts the transaction; patches are per field, so retry
	for range maxTxRetries {
		err = r.rdb.Watch(ctx, update, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	case err != nil:
		return connErr("update room", err)
	}
	return nil
}

// Subscribe implements Client.
func (r *Redis) Subscribe(ctx context.Context, code string, onUpdate func(*models.Room)) (Unsubscribe, error) {
	if _, err := r.FetchRoom(ctx, code); err != nil {
		return nil, err
	}

	ps := r.rdb.Subscribe(ctx, cache.RoomChannel(code))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, connErr("subscribe", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	box := newLatest()
	go box.run(onUpdate)

	log := r.logger.WithField("room", code)
	go func() {
		defer box.close()
		defer ps.Close()
		ch := ps.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				room, err := r.FetchRoom(subCtx, code)
				if err != nil {
					if subCtx.Err() == nil {
						log.Warnf("failed to refresh room after publish: %v", err)
					}
					continue
				}
				box.put(room)
			}
		}
	}()

	return Unsubscribe(cancel), nil
}
