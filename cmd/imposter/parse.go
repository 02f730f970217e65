package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/jason-s-yu/imposter/internal/game"
	"github.com/jason-s-yu/imposter/internal/models"
)

// parseList splits "a, b,c" into trimmed lower-case items.
func parseList(arg string) []string {
	var out []string
	for _, part := range strings.Split(arg, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseCategories resolves category ids. "all" selects every category except the pot.
func parseCategories(c *game.Catalog, arg string) ([]string, error) {
	ids := parseList(arg)
	if slices.Contains(ids, "all") {
		var all []string
		for _, cat := range c.Categories {
			if !cat.Custom {
				all = append(all, cat.ID)
			}
		}
		return all, nil
	}
	for _, id := range ids {
		if id == game.CustomCategoryID {
			continue
		}
		if _, ok := c.Category(id); !ok {
			return nil, fmt.Errorf("unknown category %q", id)
		}
	}
	if len(ids) == 0 {
		return nil, game.ErrNoCategories
	}
	return ids, nil
}

func parseDifficulties(arg string) ([]game.Difficulty, error) {
	var out []game.Difficulty
	for _, item := range parseList(arg) {
		i := slices.IndexFunc(game.Difficulties, func(d game.Difficulty) bool {
			return strings.EqualFold(string(d), item)
		})
		if i < 0 {
			return nil, fmt.Errorf("unknown difficulty %q", item)
		}
		out = append(out, game.Difficulties[i])
	}
	if len(out) == 0 {
		return nil, game.ErrNoCategories
	}
	return out, nil
}

// parseTimer accepts one of the timer presets in seconds.
func parseTimer(arg string) (int, error) {
	secs, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || !slices.Contains(game.TimerPresets, secs) {
		return 0, fmt.Errorf("timer must be one of %v", game.TimerPresets)
	}
	return secs, nil
}

// findPlayer matches a 1-based index or a case-insensitive name.
func findPlayer(players []models.Player, arg string) (models.Player, bool) {
	arg = strings.TrimSpace(arg)
	if n, err := strconv.Atoi(arg); err == nil {
		if n >= 1 && n <= len(players) {
			return players[n-1], true
		}
		return models.Player{}, false
	}
	for _, p := range players {
		if strings.EqualFold(p.Name, arg) {
			return p, true
		}
	}
	return models.Player{}, false
}

// splitCommand returns the first word and the rest of the line.
func splitCommand(line string) (string, string) {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	return strings.ToLower(cmd), strings.TrimSpace(rest)
}
