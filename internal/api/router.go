package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

// RouterConfig holds the router's non-handler settings.
type RouterConfig struct {
	Token              string
	RateLimitPerMinute int
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// NewRouter builds and returns the Chi router with all routes configured.
// Reads are public; writing preferences and refreshing the record cache
// require bearer auth. Rate limiting is applied per IP.
func NewRouter(handlers *Handlers, cfg RouterConfig, db, redisClient Pinger, log *slog.Logger) *chi.Mux {
	limit := cfg.RateLimitPerMinute
	if limit <= 0 {
		limit = 60
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httprate.LimitByIP(limit, time.Minute))
	r.Use(UserID)

	r.Get("/api/v1/health", HealthHandlerFunc(db, redisClient, log))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Get("/api/v1/countries", handlers.ListCountries)
	r.Get("/api/v1/countries/{iso2}", handlers.GetCountry)
	r.Get("/api/v1/advisories", handlers.ListAdvisories)
	r.Get("/api/v1/seasonality", handlers.Seasonality)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(cfg.Token))
		r.Put("/api/v1/score-weights", handlers.PutScoreWeights)
		r.Post("/api/v1/countries/refresh", handlers.RefreshCountries)
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
