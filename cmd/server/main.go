package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iitslamaa/travel-scorer/internal/advisory"
	"github.com/iitslamaa/travel-scorer/internal/api"
	"github.com/iitslamaa/travel-scorer/internal/cache"
	"github.com/iitslamaa/travel-scorer/internal/config"
	"github.com/iitslamaa/travel-scorer/internal/cost"
	"github.com/iitslamaa/travel-scorer/internal/country"
	"github.com/iitslamaa/travel-scorer/internal/facts"
	"github.com/iitslamaa/travel-scorer/internal/macro"
	"github.com/iitslamaa/travel-scorer/internal/metrics"
	"github.com/iitslamaa/travel-scorer/internal/seasonality"
	"github.com/iitslamaa/travel-scorer/internal/storage"
	"github.com/iitslamaa/travel-scorer/internal/ttlcache"
	"github.com/iitslamaa/travel-scorer/internal/upstream"
	"github.com/iitslamaa/travel-scorer/internal/visa"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.FromEnv(log)
	if err != nil {
		return err
	}

	ctx := context.Background()

	// Connect to PostgreSQL.
	pool, err := storage.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := storage.RunMigrations(ctx, pool, os.DirFS(cfg.MigrationsDir)); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("migrations applied", "dir", cfg.MigrationsDir)

	// Connect to Redis.
	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	repo := storage.NewRepository(pool)
	httpClient := upstream.NewHTTPClient(cfg.HTTPClientTimeout)

	sources, calendar, advisories, err := buildSources(cfg, repo, httpClient, m, log)
	if err != nil {
		return err
	}

	merger := facts.NewMerger(sources, m, log)
	handlers := api.NewHandlers(merger, cache.NewCache(redisClient, cfg.RecordsCacheTTL), repo, advisories, calendar, log)

	router := api.NewRouter(handlers, api.RouterConfig{
		Token:              cfg.BearerToken,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Metrics:            promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}, pool, api.PingFunc(func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	}), log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

// buildSources wires every facts source with its cache and fallback tier.
func buildSources(cfg config.Config, repo *storage.Repository, client *http.Client, m *metrics.Metrics, log *slog.Logger) (facts.Sources, *seasonality.Calendar, *advisory.Service, error) {
	var none facts.Sources

	snapshot, err := advisory.Snapshot()
	if err != nil {
		return none, nil, nil, fmt.Errorf("loading advisory snapshot: %w", err)
	}
	advisories := advisory.NewService(advisory.NewFeedClient(client, log), snapshot,
		cfg.AdvisoryCacheTTL, cfg.NegativeCacheTTL, m, log)

	visaRows, err := visa.EmbeddedRows()
	if err != nil {
		return none, nil, nil, fmt.Errorf("loading visa snapshot: %w", err)
	}
	overrides, err := visa.EmbeddedOverrides()
	if err != nil {
		return none, nil, nil, fmt.Errorf("loading visa overrides: %w", err)
	}
	visas := visa.NewService(repo, visaRows, overrides, cfg.VisaCacheTTL, m, log)

	staticGDP, err := macro.StaticGDP()
	if err != nil {
		return none, nil, nil, fmt.Errorf("loading static gdp: %w", err)
	}
	staticFX, err := macro.StaticFX()
	if err != nil {
		return none, nil, nil, fmt.Errorf("loading static fx: %w", err)
	}
	gdpCache := ttlcache.New[*float64](cfg.MacroCacheTTL,
		ttlcache.WithNegativeTTL(cfg.NegativeCacheTTL),
		ttlcache.WithObserver(m.CacheLookup("gdp")),
	)
	fxCache := ttlcache.New[map[string]float64](cfg.MacroCacheTTL,
		ttlcache.WithNegativeTTL(cfg.NegativeCacheTTL),
		ttlcache.WithObserver(m.CacheLookup("fx")),
	)
	gdp := macro.NewWithFallback(macro.NewGDPProvider(client, gdpCache, m, log), staticGDP)
	fx := macro.NewWithFallback(macro.NewFXProvider(client, fxCache, country.CurrencyByISO2(), m, log), staticFX)

	estimator, err := cost.DefaultEstimator()
	if err != nil {
		return none, nil, nil, err
	}
	calendar, err := seasonality.DefaultCalendar()
	if err != nil {
		return none, nil, nil, err
	}

	return facts.Sources{
		Advisory:    advisories,
		Visa:        visas,
		GDP:         gdp,
		FX:          fx,
		Spend:       estimator,
		Seasonality: calendar,
	}, calendar, advisories, nil
}
