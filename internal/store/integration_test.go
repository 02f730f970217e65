package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jason-s-yu/imposter/internal/cache"
	"github.com/jason-s-yu/imposter/internal/database"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func requireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("IMPOSTER_INTEGRATION") != "1" {
		t.Skip("set IMPOSTER_INTEGRATION=1 to run backend integration tests")
	}
}

func quietLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func TestPostgresContract(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("imposter"),
		postgres.WithUsername("imposter"),
		postgres.WithPassword("imposter"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(url))

	pool, err := database.Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	runClientContract(t, NewPostgres(pool, quietLogger()), "PGRS")
}

func TestRedisContract(t *testing.T) {
	requireIntegration(t)
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	rdb, err := cache.Connect(ctx, endpoint, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	runClientContract(t, NewRedis(rdb, quietLogger()), "RDIS")
}
