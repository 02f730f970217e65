package game

import (
	"fmt"
	"slices"
	"time"

	"github.com/jason-s-yu/imposter/internal/models"
)

// LocalPhase is the phase of a pass-and-play session on a single device.
type LocalPhase string

const (
	LocalSetup      LocalPhase = "SETUP"
	LocalPassing    LocalPhase = "PASS_N_PLAY"
	LocalDiscussion LocalPhase = "PLAYING"
	LocalReveal     LocalPhase = "REVEAL"
)

// LocalSession drives a game for co-located players sharing one device.
// It holds the same used-word and starting-player bookkeeping as a room, in memory.
// A LocalSession is not safe for concurrent use.
type LocalSession struct {
	Players       []models.Player
	Categories    []string
	Difficulties  []Difficulty
	TimerDuration int
	ImposterCount int

	Phase               LocalPhase
	CurrentWord         string
	CurrentCategory     string
	CurrentPlayerIndex  int
	IsRevealing         bool
	StartingPlayerIndex int
	UsedWords           []string
	StartedAt           *time.Time

	catalog *Catalog
	rng     Rand
	now     func() time.Time
}

// LocalOption customises a LocalSession.
type LocalOption func(*LocalSession)

// WithLocalRand sets the random source used for roles and words.
func WithLocalRand(rng Rand) LocalOption {
	return func(s *LocalSession) { s.rng = rng }
}

// WithLocalCatalog replaces the embedded word catalog.
func WithLocalCatalog(c *Catalog) LocalOption {
	return func(s *LocalSession) { s.catalog = c }
}

// WithLocalClock sets the time source used to stamp the discussion start.
func WithLocalClock(now func() time.Time) LocalOption {
	return func(s *LocalSession) { s.now = now }
}

// NewLocalSession returns a session in setup with three default players and the default
// category and difficulty selection.
func NewLocalSession(opts ...LocalOption) *LocalSession {
	s := &LocalSession{
		Categories:    []string{"animals", "food", "objects"},
		Difficulties:  []Difficulty{Easy},
		ImposterCount: 1,
		Phase:         LocalSetup,
		UsedWords:     []string{},
		catalog:       DefaultCatalog(),
		rng:           DefaultRand,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	for range MinPlayers {
		s.AddPlayer()
	}
	return s
}

// AddPlayer appends a player named "Player N".
func (s *LocalSession) AddPlayer() models.Player {
	p := models.NewPlayer(fmt.Sprintf("Player %d", len(s.Players)+1))
	s.Players = append(s.Players, p)
	return p
}

// RemovePlayer drops the player at index i. The roster never shrinks below MinPlayers.
func (s *LocalSession) RemovePlayer(i int) error {
	if s.Phase != LocalSetup {
		return ErrWrongPhase
	}
	if len(s.Players) <= MinPlayers {
		return ErrNotEnoughPlayers
	}
	if i < 0 || i >= len(s.Players) {
		return fmt.Errorf("no player at index %d", i)
	}
	s.Players = slices.Delete(s.Players, i, i+1)
	if s.StartingPlayerIndex >= len(s.Players) {
		s.StartingPlayerIndex = 0
	}
	return nil
}

// RenamePlayer changes the display name of the player at index i.
func (s *LocalSession) RenamePlayer(i int, name string) error {
	if i < 0 || i >= len(s.Players) {
		return fmt.Errorf("no player at index %d", i)
	}
	s.Players[i].Name = name
	return nil
}

// ToggleCategory adds or removes a category. The last selected category cannot be removed.
func (s *LocalSession) ToggleCategory(id string) {
	s.Categories = toggle(s.Categories, id)
}

// ToggleAllCategories selects every category, or clears the selection when all are selected.
func (s *LocalSession) ToggleAllCategories() {
	all := s.catalog.CategoryIDs()
	if len(s.Categories) == len(all) {
		s.Categories = []string{}
		return
	}
	s.Categories = all
}

// ToggleDifficulty adds or removes a tier. The last selected tier cannot be removed.
func (s *LocalSession) ToggleDifficulty(d Difficulty) {
	s.Difficulties = toggle(s.Difficulties, d)
}

func toggle[T comparable](selected []T, v T) []T {
	if i := slices.Index(selected, v); i >= 0 {
		if len(selected) == 1 {
			return selected
		}
		return slices.Delete(slices.Clone(selected), i, i+1)
	}
	return append(slices.Clone(selected), v)
}

// SetImposterCount configures one or two imposters. Two are only allowed with more than
// seven players.
func (s *LocalSession) SetImposterCount(n int) error {
	if !AllowedImposterCount(n, len(s.Players)) {
		return fmt.Errorf("%w: %d imposters for %d players", ErrInvalidImposterCount, n, len(s.Players))
	}
	s.ImposterCount = n
	return nil
}

// Start deals a new round: roles, word, next starting player. The pass-around begins with
// the first player and the reveal screen hidden.
func (s *LocalSession) Start() error {
	if len(s.Categories) == 0 || len(s.Difficulties) == 0 {
		return ErrNoCategories
	}
	if len(s.Players) < MinPlayers {
		return ErrNotEnoughPlayers
	}

	sel, err := s.catalog.SelectWord(s.rng, s.Categories, s.Difficulties, s.UsedWords, nil)
	if err != nil {
		return err
	}
	players, err := AssignRoles(s.rng, s.Players, ClampImposterCount(s.ImposterCount, len(s.Players)))
	if err != nil {
		return err
	}

	s.Players = players
	s.CurrentWord = sel.Word
	s.CurrentCategory = sel.Category
	s.UsedWords = append(s.UsedWords, sel.Word)
	s.StartingPlayerIndex = NextStartingIndex(s.StartingPlayerIndex, len(s.Players))
	s.CurrentPlayerIndex = 0
	s.IsRevealing = false
	s.StartedAt = nil
	s.Phase = LocalPassing
	return nil
}

// CurrentPlayer is the player holding the device during the pass-around.
func (s *LocalSession) CurrentPlayer() (models.Player, bool) {
	if s.Phase != LocalPassing || s.CurrentPlayerIndex >= len(s.Players) {
		return models.Player{}, false
	}
	return s.Players[s.CurrentPlayerIndex], true
}

// Reveal shows the current player their role.
func (s *LocalSession) Reveal() (RoleView, error) {
	if s.Phase != LocalPassing || s.IsRevealing {
		return RoleView{}, ErrWrongPhase
	}
	s.IsRevealing = true
	return s.currentView(), nil
}

func (s *LocalSession) currentView() RoleView {
	p := s.Players[s.CurrentPlayerIndex]
	v := RoleView{PlayerID: p.ID, IsImposter: p.IsImposter, Category: ObscuredCategory}
	if !p.IsImposter {
		v.Category = s.CurrentCategory
		v.Word = s.CurrentWord
	}
	return v
}

// Next hides the role and hands the device on. After the last player it moves the session
// into discussion and starts the clock.
func (s *LocalSession) Next() error {
	if s.Phase != LocalPassing || !s.IsRevealing {
		return ErrWrongPhase
	}
	if s.CurrentPlayerIndex < len(s.Players)-1 {
		s.CurrentPlayerIndex++
		s.IsRevealing = false
		return nil
	}
	s.IsRevealing = false
	now := s.now()
	s.StartedAt = &now
	s.Phase = LocalDiscussion
	return nil
}

// SkipWord re-deals the round when a player who can see the word does not know it.
func (s *LocalSession) SkipWord() error {
	if s.Phase != LocalPassing || !s.IsRevealing {
		return ErrWrongPhase
	}
	if s.Players[s.CurrentPlayerIndex].IsImposter {
		return fmt.Errorf("%w: imposters cannot skip the word", ErrWrongPhase)
	}
	return s.Start()
}

// StartingPlayer is the player who opens the discussion this round.
func (s *LocalSession) StartingPlayer() (models.Player, bool) {
	if s.StartingPlayerIndex < 0 || s.StartingPlayerIndex >= len(s.Players) {
		return models.Player{}, false
	}
	return s.Players[s.StartingPlayerIndex], true
}

// Remaining is the discussion time left; ok is false without a timer.
func (s *LocalSession) Remaining() (int, bool) {
	if s.Phase != LocalDiscussion {
		return 0, false
	}
	return Remaining(s.StartedAt, s.TimerDuration, s.now())
}

// EndDiscussion moves to the reveal screen.
func (s *LocalSession) EndDiscussion() error {
	if s.Phase != LocalDiscussion {
		return ErrWrongPhase
	}
	s.Phase = LocalReveal
	return nil
}

// Summary describes the finished round. Local rounds have no votes.
func (s *LocalSession) Summary() RevealSummary {
	return RevealSummary{
		Word:      s.CurrentWord,
		Category:  s.CurrentCategory,
		Imposters: Imposters(s.Players),
	}
}

// PlayAgain deals the next round straight from the reveal screen.
func (s *LocalSession) PlayAgain() error {
	if s.Phase != LocalReveal {
		return ErrWrongPhase
	}
	return s.Start()
}

// BackToSetup returns to setup keeping the roster and the word history.
func (s *LocalSession) BackToSetup() {
	s.Phase = LocalSetup
	s.IsRevealing = false
	s.CurrentPlayerIndex = 0
	s.StartedAt = nil
}
