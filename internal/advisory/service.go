package advisory

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/iitslamaa/travel-scorer/internal/country"
	"github.com/iitslamaa/travel-scorer/internal/metrics"
	"github.com/iitslamaa/travel-scorer/internal/ttlcache"
)

const feedKey = "advisories"

// Feed is satisfied by FeedClient.
type Feed interface {
	Fetch(ctx context.Context) ([]RawEntry, error)
}

// Service resolves advisories for every seeded country from the embedded
// snapshot overlaid with the live feed.
type Service struct {
	feed     Feed
	snapshot []RawEntry
	seeds    []country.Seed
	cache    *ttlcache.Cache[[]RawEntry]
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// NewService constructs a Service. The feed result is cached for ttl and a
// failed feed read for negativeTTL.
func NewService(feed Feed, snapshot []RawEntry, ttl, negativeTTL time.Duration, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		feed:     feed,
		snapshot: snapshot,
		seeds:    country.Seeds(),
		cache: ttlcache.New[[]RawEntry](ttl,
			ttlcache.WithNegativeTTL(negativeTTL),
			ttlcache.WithObserver(m.CacheLookup("advisory")),
		),
		metrics: m,
		log:     log,
	}
}

// Resolve implements the merger's advisory source. It never fails: without
// the feed it resolves from the snapshot alone.
func (s *Service) Resolve(ctx context.Context) (map[string]*Advisory, error) {
	live, err := s.cache.GetOrFetch(ctx, feedKey, func(ctx context.Context) ([]RawEntry, error) {
		entries, err := s.feed.Fetch(ctx)
		s.metrics.ProviderFetch("advisory_feed", err)
		return entries, err
	})
	if err != nil {
		s.log.Warn("advisory feed unavailable, using snapshot", "source", "advisory", "err", err)
		live = nil
	}
	return Resolve(Overlay(s.snapshot, live), s.seeds), nil
}

// List returns the non-nil advisories sorted by ISO2.
func (s *Service) List(ctx context.Context) ([]Advisory, error) {
	resolved, err := s.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Advisory, 0, len(resolved))
	for _, a := range resolved {
		if a != nil {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ISO2 < out[j].ISO2 })
	return out, nil
}
