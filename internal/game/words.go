// internal/game/words.go
package game

import (
	"math/rand/v2"
	"slices"
)

// Rand is the pseudo-random source used by selection and role assignment.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRand draws from the math/rand/v2 global source.
var DefaultRand Rand = globalRand{}

// Selection is the secret word for a round and the label of its source.
type Selection struct {
	Word     string `json:"word"`
	Category string `json:"category"`
}

type candidate struct {
	word     string
	category string
}

// SelectWord picks the round's word.
//
// When categoryIDs names the custom pot and customPool is non-empty, a word is drawn from
// the pool, preferring entries not yet in usedWords. Otherwise the candidates are every word
// of every selected category at every selected difficulty, again preferring unused words.
// An exhausted pool falls back to the full candidate set, so repeats become possible.
func (c *Catalog) SelectWord(rng Rand, categoryIDs []string, difficulties []Difficulty, usedWords, customPool []string) (Selection, error) {
	if rng == nil {
		rng = DefaultRand
	}

	if IsCustomSelection(categoryIDs) && len(customPool) > 0 {
		return Selection{Word: pickWord(rng, customPool, usedWords), Category: CustomCategoryName}, nil
	}

	if len(difficulties) == 0 {
		return Selection{}, ErrNoCategories
	}

	var selected []Category
	for _, cat := range c.Categories {
		if cat.Custom || !slices.Contains(categoryIDs, cat.ID) {
			continue
		}
		selected = append(selected, cat)
	}
	if len(selected) == 0 {
		return Selection{}, ErrNoCategories
	}

	var pool []candidate
	for _, cat := range selected {
		tiers := c.Words[cat.ID]
		for _, diff := range difficulties {
			for _, w := range tiers[diff] {
				pool = append(pool, candidate{word: w, category: cat.Name})
			}
		}
	}
	if len(pool) == 0 {
		return Selection{}, ErrEmptyPool
	}

	unused := make([]candidate, 0, len(pool))
	for _, cand := range pool {
		if !slices.Contains(usedWords, cand.word) {
			unused = append(unused, cand)
		}
	}
	if len(unused) == 0 {
		// every candidate was shown already; repeats are allowed now
		unused = pool
	}

	pick := unused[rng.IntN(len(unused))]
	return Selection{Word: pick.word, Category: pick.category}, nil
}

// SelectWord draws from the embedded catalog.
func SelectWord(rng Rand, categoryIDs []string, difficulties []Difficulty, usedWords, customPool []string) (Selection, error) {
	return DefaultCatalog().SelectWord(rng, categoryIDs, difficulties, usedWords, customPool)
}

func pickWord(rng Rand, pool, used []string) string {
	available := make([]string, 0, len(pool))
	for _, w := range pool {
		if !slices.Contains(used, w) {
			available = append(available, w)
		}
	}
	if len(available) == 0 {
		available = pool
	}
	return available[rng.IntN(len(available))]
}
