package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/jason-s-yu/imposter/internal/game"
	"github.com/jason-s-yu/imposter/internal/models"
	"github.com/jason-s-yu/imposter/internal/room"
	"github.com/jason-s-yu/imposter/internal/store"
)

const onlineHelp = `room commands:
  players | share | help | quit
  host, lobby:   cats <id,id|all|custom>  diff <easy,...>  timer <secs>  imposters <n>  start
  word pot:      word <text>  (host) done
  playing:       vote <n|name>  time  (host) end
  reveal:        (host) restart`

// online drives one player's session in a shared room.
type online struct {
	term      *terminal
	manager   *room.Manager
	guard     *room.Guard
	shareBase string

	tracker *room.Tracker
	cats    []string
	diffs   []game.Difficulty
}

func (o *online) host(ctx context.Context, name string) error {
	var created *models.Room
	err := o.guard.Do("create", func() error {
		var err error
		created, err = o.manager.CreateRoom(ctx, models.NewPlayer(name))
		return err
	})
	if err != nil {
		return err
	}
	o.term.printf("Room %s created.\n", created.RoomCode)
	o.share(created.RoomCode)
	return o.play(ctx, created, created.Players[0])
}

func (o *online) join(ctx context.Context, name, input string) error {
	code, ok := room.CodeFromInput(input)
	if !ok {
		return fmt.Errorf("%w: %q", store.ErrRoomNotFound, input)
	}
	me := models.NewPlayer(name)
	var joined *models.Room
	err := o.guard.Do("join", func() error {
		var err error
		joined, err = o.manager.JoinRoom(ctx, code, me)
		return err
	})
	if err != nil {
		return err
	}
	o.term.printf("Joined room %s.\n", joined.RoomCode)
	return o.play(ctx, joined, me)
}

func (o *online) share(code string) {
	link, err := room.ShareURL(o.shareBase, code)
	if err != nil {
		o.term.notify(err.Error())
		return
	}
	o.term.printf("Share link: %s\n", link)
	if qr, err := room.ShareQR(link); err == nil {
		o.term.printf("%s\n", qr)
	}
}

// play subscribes to the room and runs the command loop until quit, EOF or ctx ends.
func (o *online) play(ctx context.Context, initial *models.Room, me models.Player) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.tracker = room.NewTracker(me.ID, initial)
	o.cats = []string{"animals", "food", "objects"}
	o.diffs = []game.Difficulty{game.Easy}

	unsubscribe, err := o.manager.Subscribe(ctx, initial.RoomCode, o.tracker.Update)
	if err != nil {
		return err
	}
	defer unsubscribe()

	o.term.printf("%s\n", onlineHelp)
	o.render(nil, initial)
	go o.watch(ctx, initial)

	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, ok := o.term.readLine()
			if !ok {
				return
			}
			lines <- line
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := o.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// watch redraws whenever a snapshot moves the room somewhere new.
func (o *online) watch(ctx context.Context, last *models.Room) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.tracker.Changed():
			next := o.tracker.Snapshot()
			o.render(last, next)
			last = next
		}
	}
}

func (o *online) render(prev, next *models.Room) {
	if prev != nil && prev.GameState == next.GameState {
		if next.GameState == models.StateLobby && len(prev.Players) != len(next.Players) {
			o.term.printf("\nPlayers (%d):\n", len(next.Players))
			o.term.showPlayers(next.Players, next.HostID)
		}
		if next.GameState == models.StatePlaying && len(prev.Votes) != len(next.Votes) {
			o.term.printf("%d of %d players have voted\n", len(next.Votes), len(next.Players))
		}
		return
	}

	switch next.GameState {
	case models.StateLobby:
		o.term.printf("\n-- Lobby %s --\n", next.RoomCode)
		o.term.showPlayers(next.Players, next.HostID)
		if !o.tracker.IsHost() {
			o.term.printf("Waiting for the host to start.\n")
		}
	case models.StateInput:
		o.term.printf("\n-- Word pot --\nEveryone: add words with 'word <text>'.\n")
	case models.StatePlaying:
		if v, ok := o.tracker.View(); ok {
			o.term.showRole("Your role", v)
			if v.Starting != "" {
				o.term.printf("%s starts the discussion.\n", v.Starting)
			}
		}
	case models.StateReveal:
		o.term.showSummary(game.Summarize(next))
	}
}

// handle runs one command line. It returns true when the user quits.
func (o *online) handle(ctx context.Context, line string) bool {
	cmd, arg := splitCommand(line)
	snap := o.tracker.Snapshot()
	me := o.tracker.PlayerID()

	var err error
	switch cmd {
	case "":
	case "quit":
		return true
	case "help":
		o.term.printf("%s\n", onlineHelp)
	case "players":
		o.term.showPlayers(snap.Players, snap.HostID)
	case "share":
		o.share(snap.RoomCode)
	case "cats":
		if arg == game.CustomCategoryID {
			o.cats = []string{game.CustomCategoryID}
			break
		}
		var cats []string
		if cats, err = parseCategories(game.DefaultCatalog(), arg); err == nil {
			o.cats = cats
		}
	case "diff":
		var diffs []game.Difficulty
		if diffs, err = parseDifficulties(arg); err == nil {
			o.diffs = diffs
		}
	case "timer":
		var secs int
		if secs, err = parseTimer(arg); err == nil {
			settings := snap.Settings
			settings.TimerDuration = secs
			err = o.guard.Do("settings", func() error {
				_, err := o.manager.UpdateSettings(ctx, snap, me, settings)
				return err
			})
		}
	case "imposters":
		var n int
		if n, err = strconv.Atoi(arg); err == nil {
			settings := snap.Settings
			settings.ImposterCount = n
			err = o.guard.Do("settings", func() error {
				_, err := o.manager.UpdateSettings(ctx, snap, me, settings)
				return err
			})
		}
	case "start":
		err = o.guard.Do("start", func() error {
			_, err := o.manager.StartRound(ctx, snap, me, room.RoundConfig{
				Categories:   slices.Clone(o.cats),
				Difficulties: slices.Clone(o.diffs),
				Settings:     snap.Settings,
			})
			return err
		})
	case "word":
		err = o.guard.Do("word", func() error {
			return o.manager.ContributeWord(ctx, snap, arg)
		})
	case "done":
		err = o.guard.Do("finalize", func() error {
			_, err := o.manager.FinalizePot(ctx, snap, me)
			return err
		})
	case "vote":
		suspect, ok := findPlayer(snap.Players, arg)
		if !ok {
			err = room.ErrInvalidVote
			break
		}
		err = o.guard.Do("vote", func() error {
			_, err := o.manager.CastVote(ctx, snap, me, suspect.ID)
			return err
		})
		if err == nil {
			o.term.printf("Voted for %s.\n", suspect.Name)
		}
	case "time":
		if secs, ok := game.Remaining(snap.StartedAt, snap.Settings.TimerDuration, time.Now()); ok {
			o.term.printf("%d:%02d left\n", secs/60, secs%60)
		} else {
			o.term.printf("no timer\n")
		}
	case "end":
		err = o.guard.Do("end", func() error {
			_, err := o.manager.EndRound(ctx, snap, me)
			return err
		})
	case "restart":
		err = o.guard.Do("restart", func() error {
			_, err := o.manager.Restart(ctx, snap, me)
			return err
		})
	default:
		o.term.printf("%s\n", onlineHelp)
	}

	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			o.term.notify("expected a number")
		} else {
			o.term.notify(room.UserMessage(err))
		}
	}
	return false
}
