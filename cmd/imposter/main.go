// cmd/imposter is the terminal client: local pass-and-play on one device, or hosting and
// joining a shared room through the sync gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/jason-s-yu/imposter/internal/config"
	"github.com/jason-s-yu/imposter/internal/room"
	"github.com/jason-s-yu/imposter/internal/store"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	mode := flag.String("mode", "local", "local, host or join")
	name := flag.String("name", "", "your display name (host and join)")
	roomArg := flag.String("room", "", "room code or share link to join")
	flag.Parse()

	cfg, err := config.LoadClient()
	if err != nil {
		logrus.Fatal(err)
	}
	// the client is interactive, keep library logs out of the way unless asked for
	logger := config.NewLogger(cfg.LogLevel)
	if cfg.LogLevel == "info" {
		logger.SetLevel(logrus.WarnLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	term := newTerminal(os.Stdin, os.Stdout)

	switch *mode {
	case "local":
		runLocal(term)
	case "host", "join":
		if err := cfg.Validate(); err != nil {
			term.notify(room.UserMessage(err))
			os.Exit(1)
		}
		remote, err := store.NewRemote(cfg.SyncURL, cfg.APIKey, nil, logger)
		if err != nil {
			term.notify(room.UserMessage(fmt.Errorf("%w: %w", store.ErrNotConfigured, err)))
			os.Exit(1)
		}
		o := &online{
			term:      term,
			manager:   room.NewManager(remote, room.WithLogger(logger)),
			guard:     room.NewGuard(),
			shareBase: cfg.ShareBaseURL,
		}
		playerName := strings.TrimSpace(*name)
		if playerName == "" {
			playerName = term.ask("Your name")
		}
		if *mode == "host" {
			err = o.host(ctx, playerName)
		} else {
			input := *roomArg
			if input == "" {
				input = term.ask("Room code or link")
			}
			err = o.join(ctx, playerName, input)
		}
		if err != nil {
			term.notify(room.UserMessage(err))
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}
}
