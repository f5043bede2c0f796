package visa

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/iitslamaa/travel-scorer/internal/metrics"
	"github.com/iitslamaa/travel-scorer/internal/ttlcache"
)

var (
	//go:embed snapshot.json
	snapshotJSON []byte

	//go:embed overrides.json
	overridesJSON []byte
)

const indexKey = "visa"

// RowSource returns the rows of the latest stored snapshot version.
type RowSource interface {
	LatestVisaSnapshot(ctx context.Context) ([]Row, error)
}

// EmbeddedRows returns the snapshot compiled into the binary.
func EmbeddedRows() ([]Row, error) {
	var rows []Row
	if err := json.Unmarshal(snapshotJSON, &rows); err != nil {
		return nil, fmt.Errorf("decoding embedded visa snapshot: %w", err)
	}
	return rows, nil
}

// EmbeddedOverrides returns the manual overrides compiled into the binary.
func EmbeddedOverrides() (map[string]Override, error) {
	var out map[string]Override
	if err := json.Unmarshal(overridesJSON, &out); err != nil {
		return nil, fmt.Errorf("decoding visa overrides: %w", err)
	}
	return out, nil
}

// Service builds the visa index from the stored snapshot, falling back to the
// embedded rows when the store is empty or unreachable.
type Service struct {
	source    RowSource
	fallback  []Row
	overrides map[string]Override
	cache     *ttlcache.Cache[map[string]Facts]
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// NewService constructs a Service whose index is rebuilt at most once per ttl.
// source may be nil.
func NewService(source RowSource, fallback []Row, overrides map[string]Override, ttl time.Duration, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		source:    source,
		fallback:  fallback,
		overrides: overrides,
		cache:     ttlcache.New[map[string]Facts](ttl, ttlcache.WithObserver(m.CacheLookup("visa"))),
		metrics:   m,
		log:       log,
	}
}

// Index returns iso2 -> Facts for every country with visa data.
func (s *Service) Index(ctx context.Context) (map[string]Facts, error) {
	return s.cache.GetOrFetch(ctx, indexKey, func(ctx context.Context) (map[string]Facts, error) {
		return Resolve(FactsFromRows(s.rows(ctx)), s.overrides), nil
	})
}

func (s *Service) rows(ctx context.Context) []Row {
	if s.source == nil {
		return s.fallback
	}
	rows, err := s.source.LatestVisaSnapshot(ctx)
	s.metrics.ProviderFetch("visa_store", err)
	if err != nil {
		s.log.Warn("visa snapshot unavailable, using embedded rows", "source", "visa", "err", err)
		return s.fallback
	}
	if len(rows) == 0 {
		s.log.Info("visa snapshot empty, using embedded rows", "source", "visa")
		return s.fallback
	}
	return rows
}
