package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics provides observability for the aggregation pipeline.
type Metrics struct {
	// Upstream provider calls by provider and outcome
	ProviderFetches *prometheus.CounterVec

	// Cache lookups by cache name and result (hit, miss, negative)
	CacheLookups *prometheus.CounterVec

	// Full merge of all sources for the country list
	AggregationLatency prometheus.Histogram
}

// New creates a Metrics instance registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProviderFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travelscore_provider_fetches_total",
			Help: "Total upstream provider fetches by provider and outcome",
		}, []string{"provider", "outcome"}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travelscore_cache_lookups_total",
			Help: "Total cache lookups by cache and result",
		}, []string{"cache", "result"}),

		AggregationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "travelscore_aggregation_duration_seconds",
			Help:    "Duration of assembling the full country record list",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
}

// ProviderFetch records one upstream call; a nil err counts as ok.
func (m *Metrics) ProviderFetch(provider string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.ProviderFetches.WithLabelValues(provider, outcome).Inc()
}

// CacheLookup returns an observer suitable for ttlcache.WithObserver.
func (m *Metrics) CacheLookup(cache string) func(result string) {
	return func(result string) {
		if m != nil {
			m.CacheLookups.WithLabelValues(cache, result).Inc()
		}
	}
}

// ObserveAggregation records how long one record-list assembly took.
func (m *Metrics) ObserveAggregation(d time.Duration) {
	if m != nil {
		m.AggregationLatency.Observe(d.Seconds())
	}
}
