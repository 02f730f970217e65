package game

import (
	"time"

	"github.com/jason-s-yu/imposter/internal/models"
)

// ObscuredCategory replaces the category label on an imposter's screen.
const ObscuredCategory = "???"

// RoleView is what a single player's device may render for the active round.
//
// The room record carries the real word to every client; hiding it from imposters is a
// rendering contract only.
type RoleView struct {
	PlayerID   string `json:"playerId"`
	IsImposter bool   `json:"isImposter"`
	Category   string `json:"category"`
	// Word is empty for imposters.
	Word string `json:"word,omitempty"`
	// Starting is the name of the player who opens the discussion.
	Starting string `json:"starting,omitempty"`
}

// ViewFor derives playerID's view of the round. ok is false for players not in the room.
func ViewFor(room *models.Room, playerID string) (RoleView, bool) {
	p, ok := room.Player(playerID)
	if !ok {
		return RoleView{}, false
	}
	v := RoleView{PlayerID: p.ID, IsImposter: p.IsImposter}
	if starter, ok := room.StartingPlayer(); ok {
		v.Starting = starter.Name
	}
	if p.IsImposter {
		v.Category = ObscuredCategory
		return v, true
	}
	v.Category = room.CurrentCategory
	v.Word = room.CurrentWord
	return v, true
}

// Remaining returns the seconds left on the discussion clock: the duration minus the whole
// seconds elapsed since startedAt, never below zero. A zero duration or a missing start
// means the timer is disabled and Remaining reports ok=false.
func Remaining(startedAt *time.Time, duration int, now time.Time) (secs int, ok bool) {
	if duration <= 0 || startedAt == nil || startedAt.IsZero() {
		return 0, false
	}
	elapsed := int(now.Sub(*startedAt) / time.Second)
	return max(0, duration-elapsed), true
}

// TimerPresets are the selectable discussion durations, in seconds.
var TimerPresets = []int{0, 60, 120, 180}
