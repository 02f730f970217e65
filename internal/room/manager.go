// Package room implements the shared room lifecycle: LOBBY -> (INPUT) -> PLAYING -> REVEAL ->
// LOBBY, expressed as merge patches against the record held by a store.Client.
//
// Host-only actions are gated here, on the client. Nothing stops another client from
// writing the same patch directly to the store.
package room

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jason-s-yu/imposter/internal/game"
	"github.com/jason-s-yu/imposter/internal/models"
	"github.com/jason-s-yu/imposter/internal/store"
	"github.com/sirupsen/logrus"
)

// maxCodeAttempts bounds how many codes CreateRoom tries before giving up.
const maxCodeAttempts = 8

// Manager performs room transitions on behalf of one client.
type Manager struct {
	client  store.Client
	catalog *game.Catalog
	rng     game.Rand
	now     func() time.Time
	newCode func() string
	logger  logrus.FieldLogger
}

// Option customises a Manager.
type Option func(*Manager)

// WithRand sets the random source for roles, words and room codes.
func WithRand(rng game.Rand) Option {
	return func(m *Manager) { m.rng = rng }
}

// WithCatalog replaces the embedded word catalog.
func WithCatalog(c *game.Catalog) Option {
	return func(m *Manager) { m.catalog = c }
}

// WithClock sets the time source that stamps started_at.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithCodeGenerator overrides room code allocation.
func WithCodeGenerator(gen func() string) Option {
	return func(m *Manager) { m.newCode = gen }
}

// WithLogger sets the logger for lifecycle events.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(m *Manager) { m.logger = logger }
}

// NewManager returns a Manager writing through client.
func NewManager(client store.Client, opts ...Option) *Manager {
	m := &Manager{
		client:  client,
		catalog: game.DefaultCatalog(),
		rng:     game.DefaultRand,
		now:     time.Now,
		logger:  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.newCode == nil {
		m.newCode = func() string { return NewCode(m.rng) }
	}
	return m
}

// RoundConfig is the host's selection for the next round.
type RoundConfig struct {
	Categories   []string
	Difficulties []game.Difficulty
	Settings     models.RoomSettings
}

func (m *Manager) log(room *models.Room) logrus.FieldLogger {
	return m.logger.WithFields(logrus.Fields{
		"room":  room.RoomCode,
		"state": room.GameState,
	})
}

// apply writes patch and returns the snapshot the caller should now render.
func (m *Manager) apply(ctx context.Context, room *models.Room, patch models.RoomPatch) (*models.Room, error) {
	if err := m.client.UpdateRoom(ctx, room.RoomCode, patch); err != nil {
		return nil, err
	}
	next := room.Clone()
	next.Apply(patch)
	return next, nil
}

func requireHost(room *models.Room, actorID string) error {
	if !room.IsHost(actorID) {
		return ErrNotHost
	}
	return nil
}

func requireTransition(room *models.Room, target models.GameState) error {
	if !room.GameState.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, room.GameState, target)
	}
	return nil
}

// CreateRoom allocates a fresh code and writes a LOBBY room holding only the host.
func (m *Manager) CreateRoom(ctx context.Context, host models.Player) (*models.Room, error) {
	if strings.TrimSpace(host.Name) == "" {
		return nil, fmt.Errorf("%w: enter your name first", game.ErrEmptySelection)
	}
	if host.ID == "" {
		host.ID = models.NewPlayer(host.Name).ID
	}

	var lastErr error
	for range maxCodeAttempts {
		room := models.NewRoom(m.newCode(), host)
		if _, err := m.client.CreateRoom(ctx, room); err != nil {
			if errors.Is(err, store.ErrRoomExists) {
				lastErr = err
				continue
			}
			return nil, err
		}
		m.log(room).WithField("player", host.ID).Info("room created")
		return room, nil
	}
	return nil, fmt.Errorf("no free room code after %d attempts: %w", maxCodeAttempts, lastErr)
}

// JoinRoom adds player to the room unless a player with the same id is already there.
func (m *Manager) JoinRoom(ctx context.Context, code string, player models.Player) (*models.Room, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return nil, fmt.Errorf("%w: %q", store.ErrRoomNotFound, code)
	}
	if strings.TrimSpace(player.Name) == "" {
		return nil, fmt.Errorf("%w: enter your name first", game.ErrEmptySelection)
	}
	if player.ID == "" {
		player.ID = models.NewPlayer(player.Name).ID
	}

	room, err := m.client.FetchRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.HasPlayer(player.ID) {
		return room, nil
	}

	player.IsImposter = false
	players := append(models.ClonePlayers(room.Players), player)
	next, err := m.apply(ctx, room, models.RoomPatch{Players: &players})
	if err != nil {
		return nil, err
	}
	m.log(next).WithField("player", player.ID).Info("player joined")
	return next, nil
}

// FetchRoom reads the latest snapshot.
func (m *Manager) FetchRoom(ctx context.Context, code string) (*models.Room, error) {
	return m.client.FetchRoom(ctx, NormalizeCode(code))
}

// Subscribe forwards every new snapshot of the room to onUpdate.
func (m *Manager) Subscribe(ctx context.Context, code string, onUpdate func(*models.Room)) (store.Unsubscribe, error) {
	return m.client.Subscribe(ctx, NormalizeCode(code), onUpdate)
}

// UpdateSettings lets the host change the timer and imposter count while in the lobby.
// Two imposters are refused unless more than seven players have joined.
func (m *Manager) UpdateSettings(ctx context.Context, room *models.Room, actorID string, settings models.RoomSettings) (*models.Room, error) {
	if err := requireHost(room, actorID); err != nil {
		return nil, err
	}
	if room.GameState != models.StateLobby {
		return nil, fmt.Errorf("%w: settings can only change in the lobby", ErrInvalidTransition)
	}
	if settings.TimerDuration < 0 {
		return nil, fmt.Errorf("%w: negative timer", ErrInvalidSettings)
	}
	if !game.AllowedImposterCount(settings.ImposterCount, len(room.Players)) {
		return nil, fmt.Errorf("%w: %d imposters for %d players", game.ErrInvalidImposterCount, settings.ImposterCount, len(room.Players))
	}
	return m.apply(ctx, room, models.RoomPatch{Settings: &settings})
}

// StartRound moves the lobby into the next round. Selecting the custom pot opens the INPUT
// phase; any other selection deals roles and a word and enters PLAYING.
func (m *Manager) StartRound(ctx context.Context, room *models.Room, actorID string, cfg RoundConfig) (*models.Room, error) {
	if err := requireHost(room, actorID); err != nil {
		return nil, err
	}
	if room.GameState != models.StateLobby {
		return nil, fmt.Errorf("%w: round already started", ErrInvalidTransition)
	}
	if len(room.Players) < game.MinPlayers {
		return nil, game.ErrNotEnoughPlayers
	}
	if len(cfg.Categories) == 0 {
		return nil, game.ErrNoCategories
	}
	if cfg.Settings.TimerDuration < 0 {
		return nil, fmt.Errorf("%w: negative timer", ErrInvalidSettings)
	}

	settings := cfg.Settings
	settings.ImposterCount = game.ClampImposterCount(settings.ImposterCount, len(room.Players))

	var patch models.RoomPatch
	if game.IsCustomSelection(cfg.Categories) {
		patch = models.RoomPatch{
			GameState:   models.Ptr(models.StateInput),
			CustomWords: models.Ptr([]string{}),
			Settings:    &settings,
		}
	} else {
		var err error
		patch, err = m.deal(room, cfg.Categories, cfg.Difficulties, settings, nil)
		if err != nil {
			return nil, err
		}
	}

	next, err := m.apply(ctx, room, patch)
	if err != nil {
		return nil, err
	}
	m.log(next).WithField("player", actorID).Info("round started")
	return next, nil
}

// deal builds the PLAYING patch: fresh roles, a word not yet used, the next starting
// player, and cleared votes.
func (m *Manager) deal(room *models.Room, categories []string, difficulties []game.Difficulty, settings models.RoomSettings, pool []string) (models.RoomPatch, error) {
	sel, err := m.catalog.SelectWord(m.rng, categories, difficulties, room.UsedWords, pool)
	if err != nil {
		return models.RoomPatch{}, err
	}
	players, err := game.AssignRoles(m.rng, room.Players, settings.ImposterCount)
	if err != nil {
		return models.RoomPatch{}, err
	}

	used := append(slices.Clone(room.UsedWords), sel.Word)
	startedAt := m.now().UTC()
	return models.RoomPatch{
		Players:             &players,
		GameState:           models.Ptr(models.StatePlaying),
		CurrentWord:         &sel.Word,
		CurrentCategory:     &sel.Category,
		Settings:            &settings,
		Votes:               models.Ptr(map[string]string{}),
		StartedAt:           &startedAt,
		StartingPlayerIndex: models.Ptr(game.NextStartingIndex(room.StartingPlayerIndex, len(players))),
		UsedWords:           &used,
	}, nil
}

// ContributeWord adds word to the pot. Blank input is a skip and writes nothing.
// The latest pot is re-read before appending so concurrent contributions are kept.
func (m *Manager) ContributeWord(ctx context.Context, room *models.Room, word string) error {
	if room.GameState != models.StateInput {
		return fmt.Errorf("%w: the pot is not open", ErrInvalidTransition)
	}
	word = strings.TrimSpace(word)
	if word == "" {
		return nil
	}

	pot, err := store.FetchFieldAs[[]string](ctx, m.client, room.RoomCode, models.FieldCustomWords)
	if err != nil {
		return err
	}
	pot = append(pot, word)
	return m.client.UpdateRoom(ctx, room.RoomCode, models.RoomPatch{CustomWords: &pot})
}

// FinalizePot deals a round from the contributed words. An empty pot sends the room back to
// the lobby and returns game.ErrEmptyPot alongside the lobby snapshot.
func (m *Manager) FinalizePot(ctx context.Context, room *models.Room, actorID string) (*models.Room, error) {
	if err := requireHost(room, actorID); err != nil {
		return nil, err
	}
	if room.GameState != models.StateInput {
		return nil, fmt.Errorf("%w: the pot is not open", ErrInvalidTransition)
	}

	pot, err := store.FetchFieldAs[[]string](ctx, m.client, room.RoomCode, models.FieldCustomWords)
	if err != nil {
		return nil, err
	}
	if len(pot) == 0 {
		next, err := m.apply(ctx, room, models.RoomPatch{GameState: models.Ptr(models.StateLobby)})
		if err != nil {
			return nil, err
		}
		m.log(next).Info("empty pot, back to lobby")
		return next, game.ErrEmptyPot
	}

	current := room.Clone()
	current.CustomWords = pot
	settings := room.Settings
	settings.ImposterCount = game.ClampImposterCount(settings.ImposterCount, len(room.Players))
	patch, err := m.deal(current, []string{game.CustomCategoryID}, nil, settings, pot)
	if err != nil {
		return nil, err
	}
	next, err := m.apply(ctx, current, patch)
	if err != nil {
		return nil, err
	}
	m.log(next).WithField("pot", len(pot)).Info("pot finalized")
	return next, nil
}

// CastVote records voterID's suspicion. The latest votes are re-read and merged so votes
// from other players are not lost; re-casting replaces the voter's previous choice.
func (m *Manager) CastVote(ctx context.Context, room *models.Room, voterID, suspectID string) (map[string]string, error) {
	if room.GameState != models.StatePlaying {
		return nil, fmt.Errorf("%w: voting is closed", ErrInvalidTransition)
	}
	if !room.HasPlayer(voterID) || !room.HasPlayer(suspectID) {
		return nil, fmt.Errorf("%w: unknown player", ErrInvalidVote)
	}
	if voterID == suspectID {
		return nil, fmt.Errorf("%w: cannot vote for yourself", ErrInvalidVote)
	}

	votes, err := store.FetchFieldAs[map[string]string](ctx, m.client, room.RoomCode, models.FieldVotes)
	if err != nil {
		return nil, err
	}
	if votes == nil {
		votes = map[string]string{}
	}
	if votes[voterID] == suspectID {
		return votes, nil
	}
	votes[voterID] = suspectID
	if err := m.client.UpdateRoom(ctx, room.RoomCode, models.RoomPatch{Votes: &votes}); err != nil {
		return nil, err
	}
	return votes, nil
}

// EndRound moves PLAYING to REVEAL. Word, roles and votes stay for the reveal screen.
func (m *Manager) EndRound(ctx context.Context, room *models.Room, actorID string) (*models.Room, error) {
	if err := requireHost(room, actorID); err != nil {
		return nil, err
	}
	if err := requireTransition(room, models.StateReveal); err != nil {
		return nil, err
	}
	next, err := m.apply(ctx, room, models.RoomPatch{GameState: models.Ptr(models.StateReveal)})
	if err != nil {
		return nil, err
	}
	m.log(next).Info("round revealed")
	return next, nil
}

// Restart returns REVEAL to LOBBY. Votes, the pot, the start time, the word and the timer
// are cleared; players, used words and the starting player are kept.
func (m *Manager) Restart(ctx context.Context, room *models.Room, actorID string) (*models.Room, error) {
	if err := requireHost(room, actorID); err != nil {
		return nil, err
	}
	if room.GameState != models.StateReveal {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, room.GameState, models.StateLobby)
	}
	settings := models.RoomSettings{TimerDuration: 0, ImposterCount: room.Settings.ImposterCount}
	next, err := m.apply(ctx, room, models.RoomPatch{
		GameState:       models.Ptr(models.StateLobby),
		Votes:           models.Ptr(map[string]string{}),
		CustomWords:     models.Ptr([]string{}),
		StartedAt:       models.ClearTime(),
		Settings:        &settings,
		CurrentWord:     models.Ptr(""),
		CurrentCategory: models.Ptr(""),
	})
	if err != nil {
		return nil, err
	}
	m.log(next).Info("back to lobby")
	return next, nil
}
