package room

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/jason-s-yu/imposter/internal/game"
	"github.com/jason-s-yu/imposter/internal/models"
	"github.com/jason-s-yu/imposter/internal/store"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 9, 19, 0, 0, 0, time.UTC)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed+1))
}

func codes(cs ...string) func() string {
	i := 0
	return func() string {
		c := cs[i%len(cs)]
		i++
		return c
	}
}

func newTestManager(t *testing.T, client store.Client, opts ...Option) *Manager {
	t.Helper()
	logger, _ := test.NewNullLogger()
	base := []Option{
		WithRand(seeded(5)),
		WithClock(func() time.Time { return testNow }),
		WithCodeGenerator(codes("ABCD", "EFGH", "JKLM")),
		WithLogger(logger),
	}
	return NewManager(client, append(base, opts...)...)
}

var animalsConfig = RoundConfig{
	Categories:   []string{"animals", "food"},
	Difficulties: []game.Difficulty{game.Easy},
	Settings:     models.RoomSettings{TimerDuration: 120, ImposterCount: 1},
}

// roomWith creates a room and joins n-1 more players.
func roomWith(t *testing.T, m *Manager, n int) *models.Room {
	t.Helper()
	ctx := context.Background()
	r, err := m.CreateRoom(ctx, models.Player{ID: "p0", Name: "Host"})
	require.NoError(t, err)
	for i := 1; i < n; i++ {
		r, err = m.JoinRoom(ctx, r.RoomCode, models.Player{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Player %d", i+1)})
		require.NoError(t, err)
	}
	return r
}

func TestCreateRoom(t *testing.T) {
	mem := store.NewMemory()
	m := newTestManager(t, mem)

	r, err := m.CreateRoom(context.Background(), models.Player{ID: "h", Name: "Hana", IsImposter: true})
	require.NoError(t, err)
	assert.Equal(t, "ABCD", r.RoomCode)

	stored, err := mem.FetchRoom(context.Background(), "ABCD")
	require.NoError(t, err)
	assert.Equal(t, models.StateLobby, stored.GameState)
	assert.Equal(t, "h", stored.HostID)
	require.Len(t, stored.Players, 1)
	assert.False(t, stored.Players[0].IsImposter)
	assert.Empty(t, stored.Votes)
	assert.Empty(t, stored.CustomWords)
	assert.Empty(t, stored.UsedWords)
	assert.Zero(t, stored.StartingPlayerIndex)
}

func TestCreateRoomRetriesTakenCode(t *testing.T) {
	mem := store.NewMemory()
	_, err := mem.CreateRoom(context.Background(), models.NewRoom("ABCD", models.Player{ID: "x", Name: "X"}))
	require.NoError(t, err)

	m := newTestManager(t, mem)
	r, err := m.CreateRoom(context.Background(), models.Player{ID: "h", Name: "Hana"})
	require.NoError(t, err)
	assert.Equal(t, "EFGH", r.RoomCode)
}

func TestCreateRoomNeedsName(t *testing.T) {
	m := newTestManager(t, store.NewMemory())
	_, err := m.CreateRoom(context.Background(), models.Player{ID: "h", Name: "  "})
	assert.ErrorIs(t, err, game.ErrEmptySelection)
}

func TestJoinRoom(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, store.NewMemory())
	r := roomWith(t, m, 1)

	r, err := m.JoinRoom(ctx, " abcd ", models.Player{ID: "p1", Name: "Bo"})
	require.NoError(t, err)
	require.Len(t, r.Players, 2)

	r, err = m.JoinRoom(ctx, "ABCD", models.Player{ID: "p1", Name: "Bo again"})
	require.NoError(t, err)
	assert.Len(t, r.Players, 2, "same id joins once")
	assert.Equal(t, "Bo", r.Players[1].Name)

	r, err = m.JoinRoom(ctx, "ABCD", models.Player{Name: "Dee"})
	require.NoError(t, err)
	r, err = m.JoinRoom(ctx, "ABCD", models.Player{Name: "Eli"})
	require.NoError(t, err)
	require.Len(t, r.Players, 4, "players without an id get a fresh one")
	assert.NotEmpty(t, r.Players[2].ID)
	assert.NotEqual(t, r.Players[2].ID, r.Players[3].ID)

	_, err = m.JoinRoom(ctx, "WXYZ", models.Player{ID: "p2", Name: "Cy"})
	assert.ErrorIs(t, err, store.ErrRoomNotFound)
	_, err = m.JoinRoom(ctx, "toolong", models.Player{ID: "p2", Name: "Cy"})
	assert.ErrorIs(t, err, store.ErrRoomNotFound)
}

func TestStartRoundValidation(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	m := newTestManager(t, mem)
	r := roomWith(t, m, 2)

	_, err := m.StartRound(ctx, r, "p0", animalsConfig)
	assert.ErrorIs(t, err, game.ErrNotEnoughPlayers)

	r, err = m.JoinRoom(ctx, r.RoomCode, models.Player{ID: "p2", Name: "Cy"})
	require.NoError(t, err)

	_, err = m.StartRound(ctx, r, "p1", animalsConfig)
	assert.ErrorIs(t, err, ErrNotHost)

	_, err = m.StartRound(ctx, r, "p0", RoundConfig{Difficulties: []game.Difficulty{game.Easy}})
	assert.ErrorIs(t, err, game.ErrNoCategories)

	stored, err := mem.FetchRoom(ctx, r.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, models.StateLobby, stored.GameState, "rejected starts write nothing")
	assert.Empty(t, stored.UsedWords)
}

func TestStartRoundDeals(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	m := newTestManager(t, mem)
	r := roomWith(t, m, 4)

	require.NoError(t, mem.UpdateRoom(ctx, r.RoomCode, models.RoomPatch{StartingPlayerIndex: models.Ptr(3)}))
	r.StartingPlayerIndex = 3

	next, err := m.StartRound(ctx, r, "p0", animalsConfig)
	require.NoError(t, err)

	stored, err := mem.FetchRoom(ctx, r.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, next, stored)
	assert.Equal(t, models.StatePlaying, stored.GameState)
	assert.Equal(t, 0, stored.StartingPlayerIndex)
	assert.Len(t, game.Imposters(stored.Players), 1)
	assert.NotEmpty(t, stored.CurrentWord)
	assert.NotEmpty(t, stored.CurrentCategory)
	assert.Equal(t, []string{stored.CurrentWord}, stored.UsedWords)
	assert.Empty(t, stored.Votes)
	require.NotNil(t, stored.StartedAt)
	assert.True(t, testNow.Equal(*stored.StartedAt))
	assert.Equal(t, 120, stored.Settings.TimerDuration)
}

func TestImposterCountGating(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	m := newTestManager(t, mem)
	r := roomWith(t, m, 6)

	_, err := m.UpdateSettings(ctx, r, "p0", models.RoomSettings{ImposterCount: 2})
	assert.ErrorIs(t, err, game.ErrInvalidImposterCount)

	cfg := animalsConfig
	cfg.Settings.ImposterCount = 2
	next, err := m.StartRound(ctx, r, "p0", cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, next.Settings.ImposterCount)
	assert.Len(t, game.Imposters(next.Players), 1)
}

func TestTwoImposters(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, store.NewMemory())
	r := roomWith(t, m, 8)

	r, err := m.UpdateSettings(ctx, r, "p0", models.RoomSettings{TimerDuration: 60, ImposterCount: 2})
	require.NoError(t, err)

	next, err := m.StartRound(ctx, r, "p0", RoundConfig{
		Categories:   animalsConfig.Categories,
		Difficulties: animalsConfig.Difficulties,
		Settings:     r.Settings,
	})
	require.NoError(t, err)
	assert.Len(t, game.Imposters(next.Players), 2)
}

func TestRoundTripResetsLobby(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	m := newTestManager(t, mem)
	r := roomWith(t, m, 3)

	r, err := m.StartRound(ctx, r, "p0", animalsConfig)
	require.NoError(t, err)
	word := r.CurrentWord

	_, err = m.CastVote(ctx, r, "p1", "p2")
	require.NoError(t, err)

	r, err = m.EndRound(ctx, r, "p0")
	require.NoError(t, err)
	assert.Equal(t, models.StateReveal, r.GameState)
	assert.Equal(t, word, r.CurrentWord, "word stays visible on reveal")

	_, err = m.Restart(ctx, r, "p0")
	require.NoError(t, err)

	stored, err := mem.FetchRoom(ctx, r.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, models.StateLobby, stored.GameState)
	assert.Empty(t, stored.Votes)
	assert.Empty(t, stored.CustomWords)
	assert.Nil(t, stored.StartedAt)
	assert.Zero(t, stored.Settings.TimerDuration)
	assert.Equal(t, 1, stored.Settings.ImposterCount)
	assert.Len(t, stored.Players, 3)
	assert.Equal(t, []string{word}, stored.UsedWords)
	assert.Equal(t, 1, stored.StartingPlayerIndex)

	next, err := m.StartRound(ctx, stored, "p0", animalsConfig)
	require.NoError(t, err)
	assert.NotEqual(t, word, next.CurrentWord)
	assert.Equal(t, 2, next.StartingPlayerIndex)
}

func TestTransitionsOutOfOrder(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, store.NewMemory())
	r := roomWith(t, m, 3)

	_, err := m.EndRound(ctx, r, "p0")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = m.Restart(ctx, r, "p0")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = m.FinalizePot(ctx, r, "p0")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, m.ContributeWord(ctx, r, "Sun"), ErrInvalidTransition)
	_, err = m.CastVote(ctx, r, "p1", "p2")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	r, err = m.StartRound(ctx, r, "p0", animalsConfig)
	require.NoError(t, err)
	_, err = m.StartRound(ctx, r, "p0", animalsConfig)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = m.EndRound(ctx, r, "p1")
	assert.ErrorIs(t, err, ErrNotHost)
}

func TestWordPot(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	m := newTestManager(t, mem)
	r := roomWith(t, m, 3)

	cfg := RoundConfig{
		Categories: []string{game.CustomCategoryID},
		Settings:   models.RoomSettings{TimerDuration: 60, ImposterCount: 1},
	}
	r, err := m.StartRound(ctx, r, "p0", cfg)
	require.NoError(t, err)
	assert.Equal(t, models.StateInput, r.GameState)
	assert.Empty(t, r.UsedWords)

	// each participant writes from the same stale snapshot; the re-read keeps both words
	require.NoError(t, m.ContributeWord(ctx, r, "  Sun "))
	require.NoError(t, m.ContributeWord(ctx, r, "   "))
	require.NoError(t, m.ContributeWord(ctx, r, "Moon"))

	pot, err := store.FetchFieldAs[[]string](ctx, mem, r.RoomCode, models.FieldCustomWords)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sun", "Moon"}, pot)

	_, err = m.FinalizePot(ctx, r, "p1")
	assert.ErrorIs(t, err, ErrNotHost)

	next, err := m.FinalizePot(ctx, r, "p0")
	require.NoError(t, err)
	assert.Equal(t, models.StatePlaying, next.GameState)
	assert.Contains(t, pot, next.CurrentWord)
	assert.Equal(t, game.CustomCategoryName, next.CurrentCategory)
	assert.Equal(t, []string{next.CurrentWord}, next.UsedWords)
	assert.Equal(t, 1, next.StartingPlayerIndex)
	assert.Equal(t, 60, next.Settings.TimerDuration)
}

func TestEmptyPotReturnsToLobby(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	m := newTestManager(t, mem)
	r := roomWith(t, m, 3)

	r, err := m.StartRound(ctx, r, "p0", RoundConfig{Categories: []string{game.CustomCategoryID}})
	require.NoError(t, err)

	next, err := m.FinalizePot(ctx, r, "p0")
	assert.ErrorIs(t, err, game.ErrEmptyPot)
	require.NotNil(t, next)
	assert.Equal(t, models.StateLobby, next.GameState)

	stored, err := mem.FetchRoom(ctx, r.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, models.StateLobby, stored.GameState)
	assert.Empty(t, stored.UsedWords)
}

func TestCastVote(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	m := newTestManager(t, mem)
	r := roomWith(t, m, 4)
	r, err := m.StartRound(ctx, r, "p0", animalsConfig)
	require.NoError(t, err)

	first, err := m.CastVote(ctx, r, "p1", "p2")
	require.NoError(t, err)
	again, err := m.CastVote(ctx, r, "p1", "p2")
	require.NoError(t, err)
	assert.Equal(t, first, again)

	// r is stale and carries no votes; p3's vote must not erase p1's
	_, err = m.CastVote(ctx, r, "p3", "p2")
	require.NoError(t, err)
	_, err = m.CastVote(ctx, r, "p1", "p3")
	require.NoError(t, err)

	stored, err := mem.FetchRoom(ctx, r.RoomCode)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"p1": "p3", "p3": "p2"}, stored.Votes)

	_, err = m.CastVote(ctx, r, "p1", "p1")
	assert.ErrorIs(t, err, ErrInvalidVote)
	_, err = m.CastVote(ctx, r, "ghost", "p1")
	assert.ErrorIs(t, err, ErrInvalidVote)
}

func TestSubscribeFeedsTracker(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, store.NewMemory())
	r := roomWith(t, m, 3)

	tr := NewTracker("p1", r)
	unsub, err := m.Subscribe(ctx, r.RoomCode, tr.Update)
	require.NoError(t, err)
	defer unsub()

	_, err = m.StartRound(ctx, r, "p0", animalsConfig)
	require.NoError(t, err)

	select {
	case <-tr.Changed():
	case <-time.After(2 * time.Second):
		t.Fatal("tracker never updated")
	}
	require.Eventually(t, func() bool {
		return tr.Snapshot().GameState == models.StatePlaying
	}, 2*time.Second, 5*time.Millisecond)

	v, ok := tr.View()
	require.True(t, ok)
	snap := tr.Snapshot()
	if v.IsImposter {
		assert.Empty(t, v.Word)
	} else {
		assert.Equal(t, snap.CurrentWord, v.Word)
	}
	assert.False(t, tr.IsHost())
}

// failingClient is a store.Client whose calls are scripted with testify/mock.
type failingClient struct {
	mock.Mock
}

func (f *failingClient) CreateRoom(ctx context.Context, room *models.Room) (string, error) {
	args := f.Called(ctx, room)
	return args.String(0), args.Error(1)
}

func (f *failingClient) FetchRoom(ctx context.Context, code string) (*models.Room, error) {
	args := f.Called(ctx, code)
	r, _ := args.Get(0).(*models.Room)
	return r, args.Error(1)
}

func (f *failingClient) FetchField(ctx context.Context, code string, field models.Field) (json.RawMessage, error) {
	args := f.Called(ctx, code, field)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

func (f *failingClient) UpdateRoom(ctx context.Context, code string, patch models.RoomPatch) error {
	return f.Called(ctx, code, patch).Error(0)
}

func (f *failingClient) Subscribe(ctx context.Context, code string, onUpdate func(*models.Room)) (store.Unsubscribe, error) {
	args := f.Called(ctx, code, onUpdate)
	u, _ := args.Get(0).(store.Unsubscribe)
	return u, args.Error(1)
}

func TestFailedWriteLeavesState(t *testing.T) {
	ctx := context.Background()
	client := &failingClient{}
	client.On("UpdateRoom", mock.Anything, "ABCD", mock.Anything).
		Return(fmt.Errorf("update room: %w: %w", store.ErrConnection, context.DeadlineExceeded))

	m := newTestManager(t, client)
	r := models.NewRoom("ABCD", models.Player{ID: "p0", Name: "Host"})
	r.Players = append(r.Players, models.Player{ID: "p1", Name: "B"}, models.Player{ID: "p2", Name: "C"})

	next, err := m.StartRound(ctx, r, "p0", animalsConfig)
	assert.Nil(t, next)
	assert.ErrorIs(t, err, store.ErrConnection)
	assert.Equal(t, "Connection failed.", UserMessage(err))
	assert.Equal(t, models.StateLobby, r.GameState)
	assert.Empty(t, r.UsedWords)
	client.AssertExpectations(t)
}

func TestCreateRoomNotConfigured(t *testing.T) {
	client := &failingClient{}
	client.On("CreateRoom", mock.Anything, mock.Anything).Return("", store.ErrNotConfigured)

	m := newTestManager(t, client)
	_, err := m.CreateRoom(context.Background(), models.Player{ID: "h", Name: "Hana"})
	assert.ErrorIs(t, err, store.ErrNotConfigured)
	assert.Equal(t, "Database not configured. Check config.", UserMessage(err))
	client.AssertNumberOfCalls(t, "CreateRoom", 1)
}
