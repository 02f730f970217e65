package room

import (
	"errors"

	"github.com/jason-s-yu/imposter/internal/game"
	"github.com/jason-s-yu/imposter/internal/store"
)

var (
	// ErrInvalidTransition means the room is not in a state the action applies to.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrNotHost means a host-only action was attempted by another player.
	ErrNotHost = errors.New("only the host can do that")
	// ErrActionPending means the same action is still in flight.
	ErrActionPending = errors.New("action already in progress")
	// ErrInvalidVote means the voter or the suspect is not a valid player.
	ErrInvalidVote = errors.New("invalid vote")
	// ErrInvalidSettings means the requested settings cannot be applied.
	ErrInvalidSettings = errors.New("invalid settings")
)

// UserMessage turns an error from any room operation into the notification shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, store.ErrNotConfigured):
		return "Database not configured. Check config."
	case errors.Is(err, store.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, game.ErrNotEnoughPlayers):
		return "Need at least 3 players to start."
	case errors.Is(err, game.ErrEmptyPot):
		return "No words were added to the pot. Pick categories again."
	case errors.Is(err, game.ErrEmptySelection):
		return "Please select at least one category."
	case errors.Is(err, game.ErrInvalidImposterCount):
		return "Two imposters need more than 7 players."
	case errors.Is(err, ErrNotHost):
		return "Only the host can do that."
	case errors.Is(err, ErrActionPending):
		return "Hold on, still working on it."
	case errors.Is(err, ErrInvalidTransition):
		return "That is not possible right now."
	case errors.Is(err, ErrInvalidVote):
		return "That vote is not valid."
	case errors.Is(err, ErrInvalidSettings):
		return "Those settings are not valid."
	default:
		return "Connection failed."
	}
}
