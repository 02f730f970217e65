package game

import (
	"slices"

	"github.com/jason-s-yu/imposter/internal/models"
)

// VoteCount is the number of votes a suspect received.
type VoteCount struct {
	SuspectID string `json:"suspectId"`
	Count     int    `json:"count"`
}

// Tally counts votes per suspect. Suspects appear in the order they were first voted for,
// taking voters in player (join) order; votes cast by ids no longer in the room follow,
// ordered by voter id.
func Tally(votes map[string]string, players []models.Player) []VoteCount {
	voters := make([]string, 0, len(votes))
	seen := make(map[string]bool, len(votes))
	for _, p := range players {
		if _, ok := votes[p.ID]; ok && !seen[p.ID] {
			voters = append(voters, p.ID)
			seen[p.ID] = true
		}
	}
	var stray []string
	for voter := range votes {
		if !seen[voter] {
			stray = append(stray, voter)
		}
	}
	slices.Sort(stray)
	voters = append(voters, stray...)

	var tally []VoteCount
	index := make(map[string]int)
	for _, voter := range voters {
		suspect := votes[voter]
		if i, ok := index[suspect]; ok {
			tally[i].Count++
			continue
		}
		index[suspect] = len(tally)
		tally = append(tally, VoteCount{SuspectID: suspect, Count: 1})
	}

	// stable, so equal counts keep first-voted order
	slices.SortStableFunc(tally, func(a, b VoteCount) int {
		return b.Count - a.Count
	})
	return tally
}

// MostVoted returns the suspect with the highest count. Ties go to the suspect that was
// voted for first, taking voters in player (join) order rather than the order votes were
// cast. ok is false when nobody voted.
func MostVoted(votes map[string]string, players []models.Player) (VoteCount, bool) {
	tally := Tally(votes, players)
	if len(tally) == 0 {
		return VoteCount{}, false
	}
	return tally[0], true
}

// RevealSummary is what the reveal screen shows once a round ends.
type RevealSummary struct {
	Word      string          `json:"word"`
	Category  string          `json:"category"`
	Imposters []models.Player `json:"imposters"`
	// MostVoted is nil for local rounds and rounds nobody voted in.
	MostVoted *models.Player `json:"mostVoted,omitempty"`
	VoteCount int            `json:"voteCount"`
	// Caught reports whether the most voted player was an imposter.
	Caught bool `json:"caught"`
}

// Summarize builds the reveal summary for a room snapshot.
func Summarize(room *models.Room) RevealSummary {
	s := RevealSummary{
		Word:      room.CurrentWord,
		Category:  room.CurrentCategory,
		Imposters: Imposters(room.Players),
	}
	top, ok := MostVoted(room.Votes, room.Players)
	if !ok {
		return s
	}
	s.VoteCount = top.Count
	if p, found := room.Player(top.SuspectID); found {
		s.MostVoted = &p
		s.Caught = p.IsImposter
	}
	return s
}
