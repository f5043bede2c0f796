// Package config reads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config captures everything main needs to wire the server.
type Config struct {
	Port               string
	DatabaseURL        string
	RedisURL           string
	BearerToken        string
	MacroCacheTTL      time.Duration
	NegativeCacheTTL   time.Duration
	AdvisoryCacheTTL   time.Duration
	VisaCacheTTL       time.Duration
	RecordsCacheTTL    time.Duration
	HTTPClientTimeout  time.Duration
	RateLimitPerMinute int
	MigrationsDir      string
}

// Defaults returns the configuration used for every unset optional variable.
func Defaults() Config {
	return Config{
		Port:               "8080",
		MacroCacheTTL:      12 * time.Hour,
		NegativeCacheTTL:   5 * time.Minute,
		AdvisoryCacheTTL:   6 * time.Hour,
		VisaCacheTTL:       5 * time.Minute,
		RecordsCacheTTL:    6 * time.Hour,
		HTTPClientTimeout:  10 * time.Second,
		RateLimitPerMinute: 60,
		MigrationsDir:      "migrations",
	}
}

// FromEnv builds a Config from the process environment.
func FromEnv(log *slog.Logger) (Config, error) {
	return Load(os.Getenv, log)
}

// Load builds a Config from getenv. Missing required variables are an error;
// malformed optional values fall back to their default with a warning.
func Load(getenv func(string) string, log *slog.Logger) (Config, error) {
	cfg := Defaults()
	r := reader{getenv: getenv, log: log}

	cfg.DatabaseURL = r.required("DATABASE_URL")
	cfg.RedisURL = r.required("REDIS_URL")
	cfg.BearerToken = r.required("BEARER_TOKEN")
	if len(r.missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %w", errors.Join(r.missing...))
	}

	cfg.Port = r.str("PORT", cfg.Port)
	cfg.MigrationsDir = r.str("MIGRATIONS_DIR", cfg.MigrationsDir)
	cfg.MacroCacheTTL = r.duration("MACRO_CACHE_TTL", cfg.MacroCacheTTL)
	cfg.NegativeCacheTTL = r.duration("NEGATIVE_CACHE_TTL", cfg.NegativeCacheTTL)
	cfg.AdvisoryCacheTTL = r.duration("ADVISORY_CACHE_TTL", cfg.AdvisoryCacheTTL)
	cfg.VisaCacheTTL = r.duration("VISA_CACHE_TTL", cfg.VisaCacheTTL)
	cfg.RecordsCacheTTL = r.duration("RECORDS_CACHE_TTL", cfg.RecordsCacheTTL)
	cfg.HTTPClientTimeout = r.duration("HTTP_CLIENT_TIMEOUT", cfg.HTTPClientTimeout)
	cfg.RateLimitPerMinute = r.positiveInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)

	return cfg, nil
}

type reader struct {
	getenv  func(string) string
	log     *slog.Logger
	missing []error
}

func (r *reader) required(key string) string {
	v := r.getenv(key)
	if v == "" {
		r.missing = append(r.missing, errors.New(key))
	}
	return v
}

func (r *reader) str(key, fallback string) string {
	if v := r.getenv(key); v != "" {
		return v
	}
	return fallback
}

// duration accepts Go duration syntax; NEGATIVE_CACHE_TTL=0 disables negative
// caching, so zero is valid.
func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	v := r.getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		r.log.Warn("invalid duration, using default", "key", key, "value", v, "default", fallback.String())
		return fallback
	}
	return d
}

func (r *reader) positiveInt(key string, fallback int) int {
	v := r.getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		r.log.Warn("invalid integer, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}
