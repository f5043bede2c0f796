package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/iitslamaa/travel-scorer/internal/cache"
	"github.com/iitslamaa/travel-scorer/internal/country"
	"github.com/iitslamaa/travel-scorer/internal/facts"
	"github.com/iitslamaa/travel-scorer/internal/scoring"
)

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	collector  RecordCollector
	cache      RecordCache
	weights    WeightsRepo
	advisories AdvisoryLister
	seasons    SeasonCalendar
	now        func() time.Time
	assembling singleflight.Group
	log        *slog.Logger
}

// HandlerOption configures Handlers.
type HandlerOption func(*Handlers)

// WithNow overrides the clock used for the cache period and default month.
func WithNow(now func() time.Time) HandlerOption {
	return func(h *Handlers) { h.now = now }
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(collector RecordCollector, cache RecordCache, weights WeightsRepo, advisories AdvisoryLister, seasons SeasonCalendar, log *slog.Logger, opts ...HandlerOption) *Handlers {
	h := &Handlers{
		collector:  collector,
		cache:      cache,
		weights:    weights,
		advisories: advisories,
		seasons:    seasons,
		now:        time.Now,
		log:        log,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// records returns the unscored record list for the current month.
// Cache hit → return. Miss → assemble once across concurrent callers, cache, return.
func (h *Handlers) records(ctx context.Context) ([]facts.Record, error) {
	period := cache.Period(h.now())

	cached, err := h.cache.Get(ctx, period)
	if err != nil {
		h.log.Error("cache get failed", "period", period, "err", err)
	}
	if cached != nil {
		return cached, nil
	}

	v, err, _ := h.assembling.Do(period, func() (any, error) {
		return h.assemble(context.WithoutCancel(ctx), period)
	})
	if err != nil {
		return nil, err
	}
	return v.([]facts.Record), nil
}

func (h *Handlers) assemble(ctx context.Context, period string) ([]facts.Record, error) {
	records, err := h.collector.Collect(ctx, nil)
	if err != nil {
		return nil, err
	}
	if err := h.cache.Set(ctx, period, records); err != nil {
		h.log.Warn("cache set failed after assembly", "period", period, "err", err)
	}
	return records, nil
}

// weightsFor loads the caller's weights. Any failure falls back to the
// defaults without surfacing an error.
func (h *Handlers) weightsFor(ctx context.Context) scoring.Weights {
	userID, ok := UserIDFrom(ctx)
	if !ok {
		return scoring.DefaultWeights()
	}

	w, err := h.weights.GetScoreWeights(ctx, userID)
	if err != nil {
		h.log.Warn("loading score weights failed, using defaults", "user_id", userID, "err", err)
		return scoring.DefaultWeights()
	}
	if w == nil {
		return scoring.DefaultWeights()
	}
	if err := w.Validate(); err != nil {
		h.log.Warn("stored score weights invalid, using defaults", "user_id", userID, "err", err)
		return scoring.DefaultWeights()
	}
	return *w
}

// ListCountries handles GET /api/v1/countries.
func (h *Handlers) ListCountries(w http.ResponseWriter, r *http.Request) {
	records, err := h.records(r.Context())
	if err != nil {
		h.log.Error("assembling countries failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, facts.Score(records, h.weightsFor(r.Context())))
}

type countryDetail struct {
	facts.Record
	Score scoring.Composite `json:"score"`
}

// GetCountry handles GET /api/v1/countries/{iso2}.
func (h *Handlers) GetCountry(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "iso2"))
	if _, ok := country.ByISO2(code); !ok {
		writeError(w, http.StatusNotFound, "country not found")
		return
	}

	records, err := h.records(r.Context())
	if err != nil {
		h.log.Error("assembling countries failed", "iso2", code, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	for _, rec := range records {
		if rec.ISO2 != code {
			continue
		}
		weights := h.weightsFor(r.Context())
		composite := scoring.Score(rec.Facts.Inputs(), weights)
		rec.Facts.ScoreTotal = composite.Total
		writeJSON(w, http.StatusOK, countryDetail{Record: rec, Score: composite})
		return
	}

	writeError(w, http.StatusNotFound, "country not found")
}

// ListAdvisories handles GET /api/v1/advisories.
func (h *Handlers) ListAdvisories(w http.ResponseWriter, r *http.Request) {
	list, err := h.advisories.List(r.Context())
	if err != nil {
		h.log.Error("listing advisories failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

type seasonalityResponse struct {
	Month    int      `json:"month"`
	Peak     []string `json:"peak"`
	Shoulder []string `json:"shoulder"`
}

// Seasonality handles GET /api/v1/seasonality?month=N.
func (h *Handlers) Seasonality(w http.ResponseWriter, r *http.Request) {
	month := h.now().Month()
	if raw := r.URL.Query().Get("month"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 12 {
			writeError(w, http.StatusBadRequest, "month must be an integer between 1 and 12")
			return
		}
		month = time.Month(n)
	}

	peak, shoulder := h.seasons.ForMonth(month)
	resp := seasonalityResponse{Month: int(month), Peak: peak, Shoulder: shoulder}
	if resp.Peak == nil {
		resp.Peak = []string{}
	}
	if resp.Shoulder == nil {
		resp.Shoulder = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// PutScoreWeights handles PUT /api/v1/score-weights.
func (h *Handlers) PutScoreWeights(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusBadRequest, "X-User-ID header must be a UUID")
		return
	}

	var weights scoring.Weights
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<12))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&weights); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := weights.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.weights.UpsertScoreWeights(r.Context(), userID, weights); err != nil {
		h.log.Error("upsert score weights failed", "user_id", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to store score weights")
		return
	}

	writeJSON(w, http.StatusOK, weights)
}

// RefreshCountries handles POST /api/v1/countries/refresh.
// Drops the cached list for the current month and reassembles it.
func (h *Handlers) RefreshCountries(w http.ResponseWriter, r *http.Request) {
	period := cache.Period(h.now())

	if err := h.cache.Delete(r.Context(), period); err != nil {
		h.log.Warn("cache delete failed", "period", period, "err", err)
	}

	records, err := h.assemble(r.Context(), period)
	if err != nil {
		h.log.Error("refresh failed", "period", period, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to assemble countries")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"period": period, "count": len(records)})
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandlerFunc handles GET /api/v1/health, answering 503 when either
// store fails its ping.
func HealthHandlerFunc(db, redis Pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := "ok"
		checks := map[string]string{"db": "ok", "redis": "ok"}

		if err := db.Ping(ctx); err != nil {
			log.Error("health check: db ping failed", "err", err)
			checks["db"], status = "error", "degraded"
		}
		if err := redis.Ping(ctx); err != nil {
			log.Error("health check: redis ping failed", "err", err)
			checks["redis"], status = "error", "degraded"
		}

		code := http.StatusOK
		if status != "ok" {
			code = http.StatusServiceUnavailable
		}
		checks["status"] = status
		writeJSON(w, code, checks)
	}
}
