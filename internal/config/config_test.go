package config

import (
	"testing"

	"github.com/jason-s-yu/imposter/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 20.0, cfg.RateLimit)
	assert.Equal(t, 40, cfg.RateBurst)

	assert.Error(t, cfg.Validate(), "jwt secret is required")
}

func TestLoadServerFromEnv(t *testing.T) {
	t.Setenv("IMPOSTER_BACKEND", "postgres")
	t.Setenv("IMPOSTER_JWT_SECRET", "s3cret")
	t.Setenv("IMPOSTER_REDIS_DB", "3")

	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.Backend)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Error(t, cfg.Validate(), "postgres needs a database url")

	t.Setenv("IMPOSTER_DATABASE_URL", "postgres://u:p@localhost/db")
	cfg, err = LoadServer()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestClientValidate(t *testing.T) {
	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.Validate(), store.ErrNotConfigured)
	assert.Equal(t, "http://localhost:5173", cfg.ShareBaseURL)

	t.Setenv("IMPOSTER_SYNC_URL", "http://localhost:8080")
	t.Setenv("IMPOSTER_API_KEY", "key")
	cfg, err = LoadClient()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
}

func TestNewLogger(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, NewLogger("debug").GetLevel())
	assert.Equal(t, logrus.InfoLevel, NewLogger("loud").GetLevel())
}
