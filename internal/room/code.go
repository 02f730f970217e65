package room

import (
	"strings"

	"github.com/jason-s-yu/imposter/internal/game"
)

const (
	// CodeLength is the number of characters in a room code.
	CodeLength = 4

	base36 = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// NewCode draws a four character base-36 code and upper-cases it.
func NewCode(rng game.Rand) string {
	if rng == nil {
		rng = game.DefaultRand
	}
	var b strings.Builder
	for range CodeLength {
		b.WriteByte(base36[rng.IntN(len(base36))])
	}
	return strings.ToUpper(b.String())
}

// NormalizeCode trims and upper-cases user input.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code has the room code shape.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, c := range code {
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}
