// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/imposter/internal/auth"
	"github.com/jason-s-yu/imposter/internal/cache"
	"github.com/jason-s-yu/imposter/internal/config"
	"github.com/jason-s-yu/imposter/internal/database"
	"github.com/jason-s-yu/imposter/internal/handlers"
	"github.com/jason-s-yu/imposter/internal/middleware"
	"github.com/jason-s-yu/imposter/internal/store"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

// apiKeyTTL is how long keys minted with -issue-key stay valid.
const apiKeyTTL = 90 * 24 * time.Hour

func main() {
	issueKey := flag.String("issue-key", "", "print an API key for the given client name and exit")
	flag.Parse()

	cfg, err := config.LoadServer()
	if err != nil {
		logrus.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid config: %v", err)
	}
	logger := config.NewLogger(cfg.LogLevel)

	issuer, err := auth.NewIssuer(cfg.JWTSecret, apiKeyTTL)
	if err != nil {
		logger.Fatal(err)
	}
	if *issueKey != "" {
		key, err := issuer.CreateAPIKey(*issueKey)
		if err != nil {
			logger.Fatal(err)
		}
		fmt.Println(key)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeBackend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("failed to open %s backend: %v", cfg.Backend, err)
	}
	defer closeBackend()

	gw := handlers.NewGateway(backend, issuer, middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst), logger)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           gw.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("shutdown: %v", err)
		}
	}()

	logger.WithField("backend", cfg.Backend).Infof("Running on %s", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
}

// openBackend connects the configured store and returns a function releasing it.
func openBackend(ctx context.Context, cfg *config.ServerConfig, logger logrus.FieldLogger) (store.Client, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		if err := database.Migrate(cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return store.NewPostgres(pool, logger), pool.Close, nil
	case config.BackendRedis:
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRedis(rdb, logger), func() { _ = rdb.Close() }, nil
	default:
		return store.NewMemory(), func() {}, nil
	}
}
