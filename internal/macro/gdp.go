package macro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/iitslamaa/travel-scorer/internal/metrics"
	"github.com/iitslamaa/travel-scorer/internal/ttlcache"
	"github.com/iitslamaa/travel-scorer/internal/upstream"
)

const (
	worldBankDefaultURL = "https://api.worldbank.org/v2/country"
	gdpIndicator        = "NY.GDP.PCAP.CD"
	gdpConcurrency      = 8
)

// GDPProvider looks up the latest GDP per capita in current USD from the
// World Bank, one request per country.
type GDPProvider struct {
	baseURL string
	client  *http.Client
	cache   *ttlcache.Cache[*float64]
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewGDPProvider constructs a GDPProvider against the World Bank API. A nil
// cached value records that the country has no data.
func NewGDPProvider(client *http.Client, cache *ttlcache.Cache[*float64], m *metrics.Metrics, log *slog.Logger) *GDPProvider {
	return NewGDPProviderWithURL(worldBankDefaultURL, client, cache, m, log)
}

// NewGDPProviderWithURL constructs a GDPProvider pointing at a custom base URL (for tests).
func NewGDPProviderWithURL(baseURL string, client *http.Client, cache *ttlcache.Cache[*float64], m *metrics.Metrics, log *slog.Logger) *GDPProvider {
	return &GDPProvider{baseURL: baseURL, client: client, cache: cache, metrics: m, log: log}
}

type wbPoint struct {
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// Lookup implements Provider.
func (p *GDPProvider) Lookup(ctx context.Context, codes []string) map[string]float64 {
	out := make(map[string]float64)
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(gdpConcurrency)
	for _, code := range normalizeCodes(codes) {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					p.log.Error("gdp lookup panicked", "iso2", code, "recover", r)
				}
			}()
			v, fetchErr := p.cache.GetOrFetch(gCtx, "gdp:"+code, func(ctx context.Context) (*float64, error) {
				v, err := p.fetch(ctx, code)
				p.metrics.ProviderFetch("worldbank", err)
				return v, err
			})
			if fetchErr != nil {
				if !errors.Is(fetchErr, ttlcache.ErrCachedFailure) {
					p.log.Warn("gdp fetch failed", "source", "worldbank", "iso2", code, "err", fetchErr)
				}
				return nil
			}
			if v != nil {
				mu.Lock()
				out[code] = *v
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (p *GDPProvider) fetch(ctx context.Context, iso2 string) (*float64, error) {
	endpoint := fmt.Sprintf("%s/%s/indicator/%s?format=json&per_page=70", p.baseURL, iso2, gdpIndicator)

	var raw []json.RawMessage
	if err := upstream.GetJSON(ctx, p.client, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("worldbank gdp for %s: %w", iso2, err)
	}
	if len(raw) < 2 {
		return nil, fmt.Errorf("worldbank gdp for %s: unexpected payload", iso2)
	}

	var points []wbPoint
	if err := json.Unmarshal(raw[1], &points); err != nil {
		return nil, fmt.Errorf("decoding worldbank points for %s: %w", iso2, err)
	}
	// Points come newest first.
	for _, pt := range points {
		if pt.Value != nil && !math.IsNaN(*pt.Value) && !math.IsInf(*pt.Value, 0) {
			v := *pt.Value
			return &v, nil
		}
	}
	return nil, nil
}
