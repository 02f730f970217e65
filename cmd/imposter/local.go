package main

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jason-s-yu/imposter/internal/game"
	"github.com/jason-s-yu/imposter/internal/room"
)

const localHelp = `setup commands:
  players                 list players
  add                     add a player
  remove <n>              remove player n
  rename <n> <name>       rename player n
  cats <id,id|all>        toggle categories
  diff <easy,medium,...>  toggle difficulties
  timer <0|60|120|180>    discussion timer in seconds
  imposters <1|2>         imposter count
  start                   deal a round
  quit`

// runLocal plays pass-and-play rounds on this terminal until the user quits.
func runLocal(term *terminal) {
	s := game.NewLocalSession()
	term.printf("%s\n", localHelp)
	for {
		switch s.Phase {
		case game.LocalSetup:
			if !localSetup(term, s) {
				return
			}
		case game.LocalPassing:
			if !localPass(term, s) {
				return
			}
		case game.LocalDiscussion:
			if !localDiscuss(term, s) {
				return
			}
		case game.LocalReveal:
			if !localReveal(term, s) {
				return
			}
		}
	}
}

func localSetup(term *terminal, s *game.LocalSession) bool {
	term.printf("setup> ")
	line, ok := term.readLine()
	if !ok {
		return false
	}
	cmd, arg := splitCommand(line)
	var err error
	switch cmd {
	case "":
	case "players":
		term.showPlayers(s.Players, "")
		term.printf("categories: %s | difficulty: %v | timer: %ds | imposters: %d\n",
			strings.Join(s.Categories, ","), s.Difficulties, s.TimerDuration, s.ImposterCount)
	case "add":
		p := s.AddPlayer()
		term.printf("added %s\n", p.Name)
	case "remove":
		var n int
		if n, err = strconv.Atoi(arg); err == nil {
			err = s.RemovePlayer(n - 1)
		}
	case "rename":
		idx, name, _ := strings.Cut(arg, " ")
		var n int
		if n, err = strconv.Atoi(idx); err == nil {
			err = s.RenamePlayer(n-1, strings.TrimSpace(name))
		}
	case "cats":
		if arg == "all" {
			s.ToggleAllCategories()
			break
		}
		var ids []string
		if ids, err = parseCategories(game.DefaultCatalog(), arg); err == nil {
			for _, id := range ids {
				s.ToggleCategory(id)
			}
		}
	case "diff":
		var ds []game.Difficulty
		if ds, err = parseDifficulties(arg); err == nil {
			for _, d := range ds {
				s.ToggleDifficulty(d)
			}
		}
	case "timer":
		s.TimerDuration, err = parseTimer(arg)
	case "imposters":
		var n int
		if n, err = strconv.Atoi(arg); err == nil {
			err = s.SetImposterCount(n)
		}
	case "start":
		err = s.Start()
	case "quit":
		return false
	default:
		term.printf("%s\n", localHelp)
	}
	if err != nil {
		term.notify(localMessage(err))
	}
	return true
}

func localPass(term *terminal, s *game.LocalSession) bool {
	p, ok := s.CurrentPlayer()
	if !ok {
		return false
	}
	term.printf("\nPass the device to %s and press enter.", p.Name)
	if _, ok := term.readLine(); !ok {
		return false
	}
	v, err := s.Reveal()
	if err != nil {
		term.notify(localMessage(err))
		return true
	}
	term.showRole(p.Name, v)
	if v.IsImposter {
		term.printf("Press enter to hide.")
	} else {
		term.printf("Press enter to hide, or type 'skip' if you don't know this word.")
	}
	line, ok := term.readLine()
	if !ok {
		return false
	}
	if strings.EqualFold(line, "skip") && !v.IsImposter {
		if err := s.SkipWord(); err != nil {
			term.notify(localMessage(err))
		} else {
			term.printf("\nNew word dealt. Start passing again.\n")
		}
		return true
	}
	term.printf("\033[2J\033[H")
	if err := s.Next(); err != nil {
		term.notify(localMessage(err))
	}
	return true
}

func localDiscuss(term *terminal, s *game.LocalSession) bool {
	if starter, ok := s.StartingPlayer(); ok {
		term.printf("\nDiscussion! %s starts. Type 'time' for the clock, 'end' to reveal.\n", starter.Name)
	}
	for {
		term.printf("discussion> ")
		line, ok := term.readLine()
		if !ok {
			return false
		}
		switch strings.ToLower(line) {
		case "time":
			if secs, ok := s.Remaining(); ok {
				term.printf("%d:%02d left\n", secs/60, secs%60)
			} else {
				term.printf("no timer\n")
			}
		case "end":
			if err := s.EndDiscussion(); err != nil {
				term.notify(localMessage(err))
			}
			return true
		case "quit":
			return false
		}
	}
}

func localReveal(term *terminal, s *game.LocalSession) bool {
	term.showSummary(s.Summary())
	for {
		term.printf("'again' to play another round, 'setup' to change settings, 'quit' to leave: ")
		line, ok := term.readLine()
		if !ok {
			return false
		}
		switch strings.ToLower(line) {
		case "again":
			if err := s.PlayAgain(); err != nil {
				term.notify(localMessage(err))
				continue
			}
			return true
		case "setup":
			s.BackToSetup()
			return true
		case "quit":
			return false
		}
	}
}

func localMessage(err error) string {
	if errors.Is(err, game.ErrWrongPhase) {
		return err.Error()
	}
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return "expected a number"
	}
	if msg := room.UserMessage(err); msg != "Connection failed." {
		return msg
	}
	return err.Error()
}
