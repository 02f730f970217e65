package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jason-s-yu/imposter/internal/game"
	"github.com/jason-s-yu/imposter/internal/models"
)

// terminal serialises prompts and screen output.
type terminal struct {
	mu  sync.Mutex
	in  *bufio.Scanner
	out io.Writer
}

func newTerminal(in io.Reader, out io.Writer) *terminal {
	return &terminal{in: bufio.NewScanner(in), out: out}
}

func (t *terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

func (t *terminal) notify(msg string) {
	if msg != "" {
		t.printf("! %s\n", msg)
	}
}

// readLine returns the next line of input; ok is false at EOF.
func (t *terminal) readLine() (string, bool) {
	if !t.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(t.in.Text()), true
}

func (t *terminal) ask(prompt string) string {
	t.printf("%s: ", prompt)
	line, _ := t.readLine()
	return line
}

func (t *terminal) showRole(name string, v game.RoleView) {
	t.printf("\n== %s ==\n", name)
	if v.IsImposter {
		t.printf("You are the IMPOSTER. Category: %s\n", v.Category)
		return
	}
	t.printf("Category: %s\nWord: %s\n", v.Category, v.Word)
}

func (t *terminal) showSummary(s game.RevealSummary) {
	t.printf("\nThe word was %q (%s)\n", s.Word, s.Category)
	names := make([]string, 0, len(s.Imposters))
	for _, p := range s.Imposters {
		names = append(names, p.Name)
	}
	t.printf("Imposters: %s\n", strings.Join(names, ", "))
	if s.MostVoted == nil {
		return
	}
	verdict := "innocent"
	if s.Caught {
		verdict = "an imposter"
	}
	t.printf("Most voted: %s with %d vote(s), who was %s\n", s.MostVoted.Name, s.VoteCount, verdict)
}

func (t *terminal) showPlayers(players []models.Player, hostID string) {
	for i, p := range players {
		tag := ""
		if p.ID == hostID {
			tag = " (host)"
		}
		t.printf("  %d. %s%s\n", i+1, p.Name, tag)
	}
}
