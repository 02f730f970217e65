package room

import (
	"sync"

	"github.com/jason-s-yu/imposter/internal/game"
	"github.com/jason-s-yu/imposter/internal/models"
)

// Tracker holds one client's latest view of a room. Its Update method is meant to be
// passed as the subscription callback; every snapshot replaces the previous one whole.
type Tracker struct {
	mu       sync.RWMutex
	playerID string
	room     *models.Room
	changed  chan struct{}
}

// NewTracker starts tracking from an initial snapshot for the given local player.
func NewTracker(playerID string, initial *models.Room) *Tracker {
	return &Tracker{
		playerID: playerID,
		room:     initial.Clone(),
		changed:  make(chan struct{}, 1),
	}
}

// Update replaces the snapshot and signals Changed.
func (t *Tracker) Update(room *models.Room) {
	t.mu.Lock()
	t.room = room.Clone()
	t.mu.Unlock()
	select {
	case t.changed <- struct{}{}:
	default:
	}
}

// Changed fires after at least one Update since the last receive.
func (t *Tracker) Changed() <-chan struct{} {
	return t.changed
}

// Snapshot returns a copy of the latest room.
func (t *Tracker) Snapshot() *models.Room {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.room.Clone()
}

// PlayerID is the local player.
func (t *Tracker) PlayerID() string {
	return t.playerID
}

// IsHost reports whether the local player created the room.
func (t *Tracker) IsHost() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.room.IsHost(t.playerID)
}

// View is the local player's role view of the latest snapshot.
func (t *Tracker) View() (game.RoleView, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return game.ViewFor(t.room, t.playerID)
}
