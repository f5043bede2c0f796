package config_test

import (
	"bytes"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iitslamaa/travel-scorer/internal/config"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func required() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost/travel",
		"REDIS_URL":    "redis://localhost:6379",
		"BEARER_TOKEN": "secret",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(env(required()), discardLogger())
	require.NoError(t, err)

	want := config.Defaults()
	want.DatabaseURL = "postgres://localhost/travel"
	want.RedisURL = "redis://localhost:6379"
	want.BearerToken = "secret"
	assert.Equal(t, want, cfg)
}

func TestLoad_Overrides(t *testing.T) {
	vars := required()
	vars["PORT"] = "9090"
	vars["MACRO_CACHE_TTL"] = "24h"
	vars["NEGATIVE_CACHE_TTL"] = "0s"
	vars["RATE_LIMIT_PER_MINUTE"] = "120"
	vars["MIGRATIONS_DIR"] = "/srv/migrations"

	cfg, err := config.Load(env(vars), discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.MacroCacheTTL)
	assert.Equal(t, time.Duration(0), cfg.NegativeCacheTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.Equal(t, "/srv/migrations", cfg.MigrationsDir)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	vars := required()
	vars["VISA_CACHE_TTL"] = "soon"
	vars["RECORDS_CACHE_TTL"] = "-1h"
	vars["RATE_LIMIT_PER_MINUTE"] = "zero"

	var buf bytes.Buffer
	cfg, err := config.Load(env(vars), slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, cfg.VisaCacheTTL)
	assert.Equal(t, 6*time.Hour, cfg.RecordsCacheTTL)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Contains(t, buf.String(), "key=VISA_CACHE_TTL")
	assert.Contains(t, buf.String(), "key=RATE_LIMIT_PER_MINUTE")
}

func TestLoad_MissingRequired(t *testing.T) {
	vars := required()
	delete(vars, "REDIS_URL")
	delete(vars, "BEARER_TOKEN")

	_, err := config.Load(env(vars), discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_URL")
	assert.Contains(t, err.Error(), "BEARER_TOKEN")
	assert.NotContains(t, err.Error(), "DATABASE_URL")
}
