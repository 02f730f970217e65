// internal/game/roles.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/imposter/internal/models"
)

const (
	// MinPlayers is the minimum number of players required to start a round.
	MinPlayers = 3
	// TwoImposterThreshold is the player count that must be exceeded before two
	// imposters may be configured.
	TwoImposterThreshold = 7
	// MaxImposters is the largest supported imposter count.
	MaxImposters = 2
)

// AllowedImposterCount reports whether count imposters may be configured for playerCount players.
func AllowedImposterCount(count, playerCount int) bool {
	switch count {
	case 1:
		return playerCount >= 1
	case 2:
		return playerCount > TwoImposterThreshold
	default:
		return false
	}
}

// ClampImposterCount returns the count actually used for a round: 2 only when requested and
// more than seven players are present, otherwise 1.
func ClampImposterCount(requested, playerCount int) int {
	if requested >= MaxImposters && playerCount > TwoImposterThreshold {
		return MaxImposters
	}
	return 1
}

// AssignRoles clears every imposter flag and marks imposterCount distinct players at random.
// The input slice is not modified.
func AssignRoles(rng Rand, players []models.Player, imposterCount int) ([]models.Player, error) {
	if imposterCount < 1 || imposterCount > MaxImposters {
		return nil, fmt.Errorf("%w: %d", ErrInvalidImposterCount, imposterCount)
	}
	if imposterCount > len(players) {
		return nil, fmt.Errorf("%w: %d imposters for %d players", ErrInvalidImposterCount, imposterCount, len(players))
	}
	if rng == nil {
		rng = DefaultRand
	}

	out := models.ClonePlayers(players)
	for i := range out {
		out[i].IsImposter = false
	}

	assigned := 0
	for assigned < imposterCount {
		idx := rng.IntN(len(out))
		if out[idx].IsImposter {
			continue
		}
		out[idx].IsImposter = true
		assigned++
	}
	return out, nil
}

// Imposters returns the players flagged as imposter, in player order.
func Imposters(players []models.Player) []models.Player {
	var out []models.Player
	for _, p := range players {
		if p.IsImposter {
			out = append(out, p)
		}
	}
	return out
}

// NextStartingIndex advances the round-robin starting player.
func NextStartingIndex(current, playerCount int) int {
	if playerCount <= 0 {
		return 0
	}
	next := (current + 1) % playerCount
	if next < 0 {
		next += playerCount
	}
	return next
}
