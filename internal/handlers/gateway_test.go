package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/imposter/internal/auth"
	"github.com/jason-s-yu/imposter/internal/game"
	"github.com/jason-s-yu/imposter/internal/middleware"
	"github.com/jason-s-yu/imposter/internal/models"
	"github.com/jason-s-yu/imposter/internal/room"
	"github.com/jason-s-yu/imposter/internal/store"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupGateway serves a memory-backed gateway and returns a Remote client with a valid key.
func setupGateway(t *testing.T) (*httptest.Server, *store.Remote, string) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)
	key, err := issuer.CreateAPIKey("tests")
	require.NoError(t, err)

	g := NewGateway(store.NewMemory(), issuer, middleware.NewRateLimiter(1000, 1000), logger)
	srv := httptest.NewServer(g.Routes())
	t.Cleanup(srv.Close)

	remote, err := store.NewRemote(srv.URL, key, srv.Client(), logger)
	require.NoError(t, err)
	return srv, remote, key
}

func do(t *testing.T, method, url, key, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestGatewayRequiresKey(t *testing.T) {
	srv, _, _ := setupGateway(t)

	assert.Equal(t, http.StatusUnauthorized, do(t, http.MethodGet, srv.URL+"/rooms/ABCD", "", "").StatusCode)
	assert.Equal(t, http.StatusForbidden, do(t, http.MethodGet, srv.URL+"/rooms/ABCD", "garbage", "").StatusCode)
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/healthz", "", "").StatusCode)

	logger, _ := test.NewNullLogger()
	unkeyed, err := store.NewRemote(srv.URL, "", nil, logger)
	require.NoError(t, err)
	_, err = unkeyed.FetchRoom(context.Background(), "ABCD")
	assert.ErrorIs(t, err, store.ErrNotConfigured)
}

func TestGatewayStatusCodes(t *testing.T) {
	srv, _, key := setupGateway(t)

	resp := do(t, http.MethodPost, srv.URL+"/rooms", key, `{"room_code":"ABCD","host_id":"h","players":[{"id":"h","name":"Hana"}]}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = do(t, http.MethodPost, srv.URL+"/rooms", key, `{"room_code":"ABCD","host_id":"h"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp = do(t, http.MethodPost, srv.URL+"/rooms", key, `{"room_code":"lower","host_id":"h"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, srv.URL+"/rooms/WXYZ", key, "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, srv.URL+"/rooms/ABCD/fields/secret", key, "").StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPatch, srv.URL+"/rooms/ABCD", key, `{"host_id":"me"}`).StatusCode)
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPatch, srv.URL+"/rooms/ABCD", key, `{"game_state":"DONE"}`).StatusCode)
	assert.Equal(t, http.StatusNoContent, do(t, http.MethodPatch, srv.URL+"/rooms/ABCD", key, `{"game_state":"REVEAL"}`).StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodPatch, srv.URL+"/rooms/WXYZ", key, `{"game_state":"REVEAL"}`).StatusCode)
}

func TestRemoteClientThroughGateway(t *testing.T) {
	ctx := context.Background()
	_, remote, _ := setupGateway(t)

	_, err := remote.CreateRoom(ctx, models.NewRoom("QWER", models.Player{ID: "h", Name: "Hana"}))
	require.NoError(t, err)
	_, err = remote.CreateRoom(ctx, models.NewRoom("QWER", models.Player{ID: "h", Name: "Hana"}))
	assert.ErrorIs(t, err, store.ErrRoomExists)

	_, err = remote.FetchRoom(ctx, "NONE")
	assert.ErrorIs(t, err, store.ErrRoomNotFound)

	started := time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, remote.UpdateRoom(ctx, "QWER", models.RoomPatch{
		Votes:     models.Ptr(map[string]string{"a": "b"}),
		StartedAt: &started,
	}))
	votes, err := store.FetchFieldAs[map[string]string](ctx, remote, "QWER", models.FieldVotes)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "b"}, votes)

	require.NoError(t, remote.UpdateRoom(ctx, "QWER", models.RoomPatch{StartedAt: models.ClearTime()}))
	rec, err := remote.FetchRoom(ctx, "QWER")
	require.NoError(t, err)
	assert.Nil(t, rec.StartedAt)
	assert.Equal(t, "h", rec.HostID)
}

type snapshots struct {
	mu    sync.Mutex
	rooms []*models.Room
}

func (s *snapshots) add(r *models.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = append(s.rooms, r)
}

func (s *snapshots) last() *models.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rooms) == 0 {
		return nil
	}
	return s.rooms[len(s.rooms)-1]
}

// TestMultiClientRound plays a round with three managers sharing one gateway.
func TestMultiClientRound(t *testing.T) {
	ctx := context.Background()
	_, remote, _ := setupGateway(t)

	host := room.NewManager(remote, room.WithCodeGenerator(func() string { return "GAME" }))
	guest := room.NewManager(remote)

	r, err := host.CreateRoom(ctx, models.Player{ID: "h", Name: "Hana"})
	require.NoError(t, err)

	seen := &snapshots{}
	unsub, err := guest.Subscribe(ctx, "game", seen.add)
	require.NoError(t, err)
	defer unsub()

	_, err = guest.JoinRoom(ctx, "game", models.Player{ID: "g1", Name: "Gil"})
	require.NoError(t, err)
	r, err = guest.JoinRoom(ctx, "GAME", models.Player{ID: "g2", Name: "Gus"})
	require.NoError(t, err)

	r, err = host.StartRound(ctx, r, "h", room.RoundConfig{
		Categories:   []string{"animals"},
		Difficulties: []game.Difficulty{game.Easy},
		Settings:     models.RoomSettings{TimerDuration: 60, ImposterCount: 1},
	})
	require.NoError(t, err)

	_, err = guest.CastVote(ctx, r, "g1", "h")
	require.NoError(t, err)
	_, err = guest.CastVote(ctx, r, "g2", "h")
	require.NoError(t, err)

	r, err = host.FetchRoom(ctx, "GAME")
	require.NoError(t, err)
	r, err = host.EndRound(ctx, r, "h")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		last := seen.last()
		return last != nil && last.GameState == models.StateReveal
	}, 5*time.Second, 10*time.Millisecond)

	summary := game.Summarize(seen.last())
	require.NotNil(t, summary.MostVoted)
	assert.Equal(t, "h", summary.MostVoted.ID)
	assert.Equal(t, 2, summary.VoteCount)
	assert.Len(t, summary.Imposters, 1)
}
