// Package config loads settings from the environment (and an optional .env file) with viper.
// Every key can be set as IMPOSTER_<KEY>, e.g. IMPOSTER_DATABASE_URL.
package config

import (
	"fmt"
	"strings"

	"github.com/jason-s-yu/imposter/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Backend names the store the gateway serves rooms from.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
	BackendRedis    Backend = "redis"
)

// ServerConfig configures the sync gateway.
type ServerConfig struct {
	Backend     Backend `mapstructure:"backend"`
	ListenAddr  string  `mapstructure:"listen_addr"`
	DatabaseURL string  `mapstructure:"database_url"`
	RedisAddr   string  `mapstructure:"redis_addr"`
	RedisDB     int     `mapstructure:"redis_db"`
	JWTSecret   string  `mapstructure:"jwt_secret"`
	LogLevel    string  `mapstructure:"log_level"`
	RateLimit   float64 `mapstructure:"rate_limit"`
	RateBurst   int     `mapstructure:"rate_burst"`
}

// ClientConfig configures the terminal client.
type ClientConfig struct {
	SyncURL      string `mapstructure:"sync_url"`
	APIKey       string `mapstructure:"api_key"`
	ShareBaseURL string `mapstructure:"share_base_url"`
	LogLevel     string `mapstructure:"log_level"`
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("IMPOSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("backend", string(BackendMemory))
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("rate_limit", 20.0)
	v.SetDefault("rate_burst", 40)
	v.SetDefault("sync_url", "")
	v.SetDefault("api_key", "")
	v.SetDefault("share_base_url", "http://localhost:5173")
	return v
}

// LoadServer reads the gateway configuration. It does not validate it.
func LoadServer() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := newViper().Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}
	return &cfg, nil
}

// LoadClient reads the terminal client configuration. It does not validate it.
func LoadClient() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := newViper().Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse client config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *ServerConfig) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("IMPOSTER_JWT_SECRET is required")
	}
	switch c.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("IMPOSTER_DATABASE_URL is required for the postgres backend")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("IMPOSTER_REDIS_ADDR is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("rate limit and burst must be positive")
	}
	return nil
}

// Validate reports store.ErrNotConfigured when the shared store credentials are absent.
func (c *ClientConfig) Validate() error {
	if c.SyncURL == "" || c.APIKey == "" {
		return store.ErrNotConfigured
	}
	return nil
}

// NewLogger builds the process logger at the configured level, falling back to info.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
