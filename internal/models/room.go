// internal/models/room.go
package models

import (
	"maps"
	"slices"
	"time"
)

// GameState is the protocol phase stored on the shared room record.
type GameState string

const (
	StateLobby   GameState = "LOBBY"
	StateInput   GameState = "INPUT"
	StatePlaying GameState = "PLAYING"
	StateReveal  GameState = "REVEAL"
)

// validTransitions lists, per state, the states a room may move to.
// LOBBY is both the initial state and the re-entry state; there is no terminal state.
var validTransitions = map[GameState][]GameState{
	StateLobby:   {StateInput, StatePlaying},
	StateInput:   {StatePlaying, StateLobby},
	StatePlaying: {StateReveal},
	StateReveal:  {StateLobby},
}

// CanTransitionTo reports whether target is a legal next state from s.
func (s GameState) CanTransitionTo(target GameState) bool {
	return slices.Contains(validTransitions[s], target)
}

// Valid reports whether s is one of the four protocol states.
func (s GameState) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// RoomSettings are the host-negotiated round settings.
type RoomSettings struct {
	// TimerDuration is the discussion countdown in seconds (0 => disabled).
	TimerDuration int `json:"timerDuration"`
	// ImposterCount is 1 or 2; 2 only when more than 7 players are present.
	ImposterCount int `json:"imposterCount"`
}

// Room is the authoritative shared session record, keyed by RoomCode.
type Room struct {
	RoomCode            string            `json:"room_code"`
	HostID              string            `json:"host_id"`
	Players             []Player          `json:"players"`
	GameState           GameState         `json:"game_state"`
	CurrentWord         string            `json:"current_word"`
	CurrentCategory     string            `json:"current_category"`
	Settings            RoomSettings      `json:"settings"`
	Votes               map[string]string `json:"votes"`
	StartedAt           *time.Time        `json:"started_at"`
	CustomWords         []string          `json:"custom_words"`
	StartingPlayerIndex int               `json:"starting_player_index"`
	UsedWords           []string          `json:"used_words"`
}

// NewRoom builds the initial LOBBY record for a freshly created room.
func NewRoom(code string, host Player) *Room {
	host.IsImposter = false
	return &Room{
		RoomCode:    code,
		HostID:      host.ID,
		Players:     []Player{host},
		GameState:   StateLobby,
		Settings:    RoomSettings{ImposterCount: 1},
		Votes:       map[string]string{},
		CustomWords: []string{},
		UsedWords:   []string{},
	}
}

// Clone returns a deep copy of the room.
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Players = ClonePlayers(r.Players)
	c.Votes = maps.Clone(r.Votes)
	c.CustomWords = slices.Clone(r.CustomWords)
	c.UsedWords = slices.Clone(r.UsedWords)
	if r.StartedAt != nil {
		t := *r.StartedAt
		c.StartedAt = &t
	}
	return &c
}

// Normalize replaces nil collections with empty ones so every snapshot has the same shape
// regardless of which backend produced it.
func (r *Room) Normalize() {
	if r.Players == nil {
		r.Players = []Player{}
	}
	if r.Votes == nil {
		r.Votes = map[string]string{}
	}
	if r.CustomWords == nil {
		r.CustomWords = []string{}
	}
	if r.UsedWords == nil {
		r.UsedWords = []string{}
	}
	if r.Settings.ImposterCount == 0 {
		r.Settings.ImposterCount = 1
	}
}

// Player returns the player with the given id, if present.
func (r *Room) Player(id string) (Player, bool) {
	for _, p := range r.Players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}

// HasPlayer reports whether a player with id has joined.
func (r *Room) HasPlayer(id string) bool {
	_, ok := r.Player(id)
	return ok
}

// IsHost reports whether playerID created the room.
func (r *Room) IsHost(playerID string) bool {
	return r.HostID != "" && r.HostID == playerID
}

// StartingPlayer returns the player designated to open the discussion, if any.
func (r *Room) StartingPlayer() (Player, bool) {
	if len(r.Players) == 0 || r.StartingPlayerIndex < 0 || r.StartingPlayerIndex >= len(r.Players) {
		return Player{}, false
	}
	return r.Players[r.StartingPlayerIndex], true
}
