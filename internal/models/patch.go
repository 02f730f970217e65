// internal/models/patch.go
package models

import (
	"maps"
	"slices"
	"time"
)

// Field names a column of the room record.
type Field string

const (
	FieldRoomCode            Field = "room_code"
	FieldHostID              Field = "host_id"
	FieldPlayers             Field = "players"
	FieldGameState           Field = "game_state"
	FieldCurrentWord         Field = "current_word"
	FieldCurrentCategory     Field = "current_category"
	FieldSettings            Field = "settings"
	FieldVotes               Field = "votes"
	FieldStartedAt           Field = "started_at"
	FieldCustomWords         Field = "custom_words"
	FieldStartingPlayerIndex Field = "starting_player_index"
	FieldUsedWords           Field = "used_words"
)

// AllFields lists every room column in record order.
var AllFields = []Field{
	FieldRoomCode, FieldHostID, FieldPlayers, FieldGameState, FieldCurrentWord,
	FieldCurrentCategory, FieldSettings, FieldVotes, FieldStartedAt, FieldCustomWords,
	FieldStartingPlayerIndex, FieldUsedWords,
}

// Valid reports whether f names a known column.
func (f Field) Valid() bool {
	return slices.Contains(AllFields, f)
}

// RoomPatch is a merge patch over a Room. A nil member leaves the field untouched.
//
// StartedAt pointing at the zero time clears the stored timestamp.
// room_code and host_id are immutable and therefore not patchable.
type RoomPatch struct {
	Players             *[]Player          `json:"players,omitempty"`
	GameState           *GameState         `json:"game_state,omitempty"`
	CurrentWord         *string            `json:"current_word,omitempty"`
	CurrentCategory     *string            `json:"current_category,omitempty"`
	Settings            *RoomSettings      `json:"settings,omitempty"`
	Votes               *map[string]string `json:"votes,omitempty"`
	StartedAt           *time.Time         `json:"started_at,omitempty"`
	CustomWords         *[]string          `json:"custom_words,omitempty"`
	StartingPlayerIndex *int               `json:"starting_player_index,omitempty"`
	UsedWords           *[]string          `json:"used_words,omitempty"`
}

// Ptr returns a pointer to v. It keeps patch literals short.
func Ptr[T any](v T) *T {
	return &v
}

// ClearTime is the StartedAt value that removes the timestamp.
func ClearTime() *time.Time {
	return &time.Time{}
}

// Empty reports whether the patch touches no field.
func (p RoomPatch) Empty() bool {
	return len(p.Fields()) == 0
}

// Fields flattens the patch into column -> value. A cleared StartedAt maps to a nil
// *time.Time so storage backends can write NULL.
func (p RoomPatch) Fields() map[Field]any {
	out := make(map[Field]any)
	if p.Players != nil {
		out[FieldPlayers] = ClonePlayers(*p.Players)
	}
	if p.GameState != nil {
		out[FieldGameState] = *p.GameState
	}
	if p.CurrentWord != nil {
		out[FieldCurrentWord] = *p.CurrentWord
	}
	if p.CurrentCategory != nil {
		out[FieldCurrentCategory] = *p.CurrentCategory
	}
	if p.Settings != nil {
		out[FieldSettings] = *p.Settings
	}
	if p.Votes != nil {
		out[FieldVotes] = nonNilMap(*p.Votes)
	}
	if p.StartedAt != nil {
		if p.StartedAt.IsZero() {
			out[FieldStartedAt] = (*time.Time)(nil)
		} else {
			t := *p.StartedAt
			out[FieldStartedAt] = &t
		}
	}
	if p.CustomWords != nil {
		out[FieldCustomWords] = nonNilSlice(*p.CustomWords)
	}
	if p.StartingPlayerIndex != nil {
		out[FieldStartingPlayerIndex] = *p.StartingPlayerIndex
	}
	if p.UsedWords != nil {
		out[FieldUsedWords] = nonNilSlice(*p.UsedWords)
	}
	return out
}

// Apply merges the patch into r. Fields absent from the patch are left as they are.
func (r *Room) Apply(p RoomPatch) {
	if p.Players != nil {
		r.Players = ClonePlayers(*p.Players)
	}
	if p.GameState != nil {
		r.GameState = *p.GameState
	}
	if p.CurrentWord != nil {
		r.CurrentWord = *p.CurrentWord
	}
	if p.CurrentCategory != nil {
		r.CurrentCategory = *p.CurrentCategory
	}
	if p.Settings != nil {
		r.Settings = *p.Settings
	}
	if p.Votes != nil {
		r.Votes = nonNilMap(*p.Votes)
	}
	if p.StartedAt != nil {
		if p.StartedAt.IsZero() {
			r.StartedAt = nil
		} else {
			t := *p.StartedAt
			r.StartedAt = &t
		}
	}
	if p.CustomWords != nil {
		r.CustomWords = nonNilSlice(*p.CustomWords)
	}
	if p.StartingPlayerIndex != nil {
		r.StartingPlayerIndex = *p.StartingPlayerIndex
	}
	if p.UsedWords != nil {
		r.UsedWords = nonNilSlice(*p.UsedWords)
	}
}

// FieldValue returns the current value of a single column.
func (r *Room) FieldValue(f Field) (any, bool) {
	switch f {
	case FieldRoomCode:
		return r.RoomCode, true
	case FieldHostID:
		return r.HostID, true
	case FieldPlayers:
		return ClonePlayers(r.Players), true
	case FieldGameState:
		return r.GameState, true
	case FieldCurrentWord:
		return r.CurrentWord, true
	case FieldCurrentCategory:
		return r.CurrentCategory, true
	case FieldSettings:
		return r.Settings, true
	case FieldVotes:
		return maps.Clone(r.Votes), true
	case FieldStartedAt:
		return r.StartedAt, true
	case FieldCustomWords:
		return slices.Clone(r.CustomWords), true
	case FieldStartingPlayerIndex:
		return r.StartingPlayerIndex, true
	case FieldUsedWords:
		return slices.Clone(r.UsedWords), true
	}
	return nil, false
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m)
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return slices.Clone(s)
}
