package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jason-s-yu/imposter/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects subscription deliveries.
type recorder struct {
	mu    sync.Mutex
	rooms []*models.Room
}

func (r *recorder) onUpdate(room *models.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms = append(r.rooms, room)
}

func (r *recorder) last() *models.Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rooms) == 0 {
		return nil
	}
	return r.rooms[len(r.rooms)-1]
}

func testRoom(code string) *models.Room {
	return models.NewRoom(code, models.Player{ID: "host", Name: "Hana"})
}

// runClientContract exercises the behaviour every backend must share.
func runClientContract(t *testing.T, c Client, code string) {
	ctx := context.Background()

	t.Run("create and fetch", func(t *testing.T) {
		got, err := c.CreateRoom(ctx, testRoom(code))
		require.NoError(t, err)
		assert.Equal(t, code, got)

		room, err := c.FetchRoom(ctx, code)
		require.NoError(t, err)
		want := testRoom(code)
		want.Normalize()
		if diff := cmp.Diff(want, room); diff != "" {
			t.Errorf("room mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("create is insert if absent", func(t *testing.T) {
		_, err := c.CreateRoom(ctx, testRoom(code))
		assert.ErrorIs(t, err, ErrRoomExists)
	})

	t.Run("missing room", func(t *testing.T) {
		_, err := c.FetchRoom(ctx, "ZZZZ")
		assert.ErrorIs(t, err, ErrRoomNotFound)
		err = c.UpdateRoom(ctx, "ZZZZ", models.RoomPatch{GameState: models.Ptr(models.StateReveal)})
		assert.ErrorIs(t, err, ErrRoomNotFound)
		_, err = c.FetchField(ctx, "ZZZZ", models.FieldVotes)
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := c.FetchField(ctx, code, models.Field("password"))
		assert.ErrorIs(t, err, ErrUnknownField)
	})

	t.Run("merge patch leaves other fields", func(t *testing.T) {
		started := time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC)
		err := c.UpdateRoom(ctx, code, models.RoomPatch{
			GameState:   models.Ptr(models.StatePlaying),
			CurrentWord: models.Ptr("Dog"),
			Votes:       models.Ptr(map[string]string{"host": "p2"}),
			StartedAt:   &started,
			UsedWords:   models.Ptr([]string{"Dog"}),
		})
		require.NoError(t, err)

		room, err := c.FetchRoom(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, models.StatePlaying, room.GameState)
		assert.Equal(t, "Dog", room.CurrentWord)
		assert.Equal(t, "host", room.HostID)
		assert.Len(t, room.Players, 1)
		assert.Equal(t, map[string]string{"host": "p2"}, room.Votes)
		require.NotNil(t, room.StartedAt)
		assert.True(t, started.Equal(*room.StartedAt))

		votes, err := FetchFieldAs[map[string]string](ctx, c, code, models.FieldVotes)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"host": "p2"}, votes)

		idx, err := FetchFieldAs[int](ctx, c, code, models.FieldStartingPlayerIndex)
		require.NoError(t, err)
		assert.Equal(t, 0, idx)
	})

	t.Run("clear started_at", func(t *testing.T) {
		require.NoError(t, c.UpdateRoom(ctx, code, models.RoomPatch{StartedAt: models.ClearTime()}))
		room, err := c.FetchRoom(ctx, code)
		require.NoError(t, err)
		assert.Nil(t, room.StartedAt)

		at, err := FetchFieldAs[*time.Time](ctx, c, code, models.FieldStartedAt)
		require.NoError(t, err)
		assert.Nil(t, at)
	})

	t.Run("subscribe delivers latest", func(t *testing.T) {
		rec := &recorder{}
		unsub, err := c.Subscribe(ctx, code, rec.onUpdate)
		require.NoError(t, err)
		defer unsub()

		for _, w := range []string{"Cat", "Owl", "Yak"} {
			require.NoError(t, c.UpdateRoom(ctx, code, models.RoomPatch{CurrentWord: models.Ptr(w)}))
		}
		require.Eventually(t, func() bool {
			last := rec.last()
			return last != nil && last.CurrentWord == "Yak"
		}, 5*time.Second, 10*time.Millisecond)

		unsub()
		unsub()
	})
}
