// cmd/db/main.go applies or reports the rooms table migrations.
package main

import (
	"flag"

	"github.com/jason-s-yu/imposter/internal/config"
	"github.com/jason-s-yu/imposter/internal/database"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	status := flag.Bool("status", false, "print migration status instead of migrating")
	flag.Parse()

	cfg, err := config.LoadServer()
	if err != nil {
		logrus.Fatal(err)
	}
	logger := config.NewLogger(cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		logger.Fatal("IMPOSTER_DATABASE_URL is not set")
	}

	if *status {
		if err := database.Status(cfg.DatabaseURL); err != nil {
			logger.Fatal(err)
		}
		return
	}
	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal(err)
	}
	logger.Info("migrations applied")
}
