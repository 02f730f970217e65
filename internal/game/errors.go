// internal/game/errors.go
package game

import (
	"errors"
	"fmt"
)

// ErrEmptySelection is the root of every local validation failure that is rejected before
// any state is mutated.
var ErrEmptySelection = errors.New("empty selection")

var (
	// ErrNoCategories indicates no usable category or difficulty is selected.
	ErrNoCategories = fmt.Errorf("%w: select at least one category and difficulty", ErrEmptySelection)
	// ErrEmptyPool indicates the selected categories produced no candidate words.
	ErrEmptyPool = fmt.Errorf("%w: no words available for the selected categories", ErrEmptySelection)
	// ErrNotEnoughPlayers indicates a round was requested with fewer than MinPlayers.
	ErrNotEnoughPlayers = fmt.Errorf("%w: at least %d players are required", ErrEmptySelection, MinPlayers)
	// ErrEmptyPot indicates the word pot was finalized with no contributions.
	ErrEmptyPot = fmt.Errorf("%w: nobody added a word to the pot", ErrEmptySelection)
)

// ErrInvalidImposterCount is returned when the requested imposter count cannot be honoured.
var ErrInvalidImposterCount = errors.New("invalid imposter count")

// ErrWrongPhase is returned when a local session action is not valid in its current phase.
var ErrWrongPhase = errors.New("action not allowed in this phase")
