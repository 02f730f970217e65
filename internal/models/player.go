// internal/models/player.go
package models

import "github.com/google/uuid"

// Player is a participant in a room or a local session.
//
// IDs are generated client-side and are not validated by any authority; uniqueness
// within a room is a convention only.
type Player struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsImposter bool   `json:"isImposter"`
	Score      int    `json:"score"`
}

// NewPlayer returns a non-imposter player with a fresh random id.
func NewPlayer(name string) Player {
	return Player{
		ID:   uuid.NewString(),
		Name: name,
	}
}

// ClonePlayers returns a copy of players that shares no backing array with the input.
func ClonePlayers(players []Player) []Player {
	if players == nil {
		return nil
	}
	out := make([]Player, len(players))
	copy(out, players)
	return out
}
