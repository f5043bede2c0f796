package macro

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iitslamaa/travel-scorer/internal/metrics"
	"github.com/iitslamaa/travel-scorer/internal/ttlcache"
	"github.com/iitslamaa/travel-scorer/internal/upstream"
)

const (
	fxDefaultURL = "https://api.exchangerate.host/latest?base=USD"
	fxCacheKey   = "USD"
)

// FXProvider looks up how many local currency units buy one USD, mapping
// each country to its currency.
type FXProvider struct {
	url        string
	client     *http.Client
	cache      *ttlcache.Cache[map[string]float64]
	currencies map[string]string
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// NewFXProvider constructs an FXProvider against exchangerate.host.
// currencies maps ISO2 to ISO 4217.
func NewFXProvider(client *http.Client, cache *ttlcache.Cache[map[string]float64], currencies map[string]string, m *metrics.Metrics, log *slog.Logger) *FXProvider {
	return NewFXProviderWithURL(fxDefaultURL, client, cache, currencies, m, log)
}

// NewFXProviderWithURL constructs an FXProvider pointing at a custom URL (for tests).
func NewFXProviderWithURL(url string, client *http.Client, cache *ttlcache.Cache[map[string]float64], currencies map[string]string, m *metrics.Metrics, log *slog.Logger) *FXProvider {
	return &FXProvider{url: url, client: client, cache: cache, currencies: currencies, metrics: m, log: log}
}

// fxPayload covers the response shapes of the supported rate APIs.
type fxPayload struct {
	Success         *bool              `json:"success"`
	Rates           map[string]float64 `json:"rates"`
	Quotes          map[string]float64 `json:"quotes"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

// Tried in order; the first shape yielding any rate wins.
var fxShapes = []func(fxPayload) map[string]float64{
	func(p fxPayload) map[string]float64 { return p.Rates },
	func(p fxPayload) map[string]float64 { return stripQuotePrefix(p.Quotes) },
	func(p fxPayload) map[string]float64 { return p.ConversionRates },
}

// stripQuotePrefix turns {"USDEUR": 0.9} into {"EUR": 0.9}.
func stripQuotePrefix(quotes map[string]float64) map[string]float64 {
	if len(quotes) == 0 {
		return nil
	}
	out := make(map[string]float64, len(quotes))
	for k, v := range quotes {
		if cur, ok := strings.CutPrefix(strings.ToUpper(k), "USD"); ok && cur != "" {
			out[cur] = v
		}
	}
	return out
}

func (p fxPayload) normalize() (map[string]float64, error) {
	if p.Success != nil && !*p.Success {
		return nil, errors.New("rate api reported failure")
	}
	for _, shape := range fxShapes {
		rates := shape(p)
		if len(rates) == 0 {
			continue
		}
		out := make(map[string]float64, len(rates)+1)
		for k, v := range rates {
			if v > 0 {
				out[strings.ToUpper(k)] = v
			}
		}
		if _, ok := out["USD"]; !ok {
			out["USD"] = 1
		}
		return out, nil
	}
	return nil, errors.New("no rates in payload")
}

// Lookup implements Provider.
func (p *FXProvider) Lookup(ctx context.Context, codes []string) map[string]float64 {
	out := make(map[string]float64)

	rates, err := p.cache.GetOrFetch(ctx, fxCacheKey, func(ctx context.Context) (map[string]float64, error) {
		r, err := p.fetch(ctx)
		p.metrics.ProviderFetch("fx", err)
		return r, err
	})
	if err != nil {
		if !errors.Is(err, ttlcache.ErrCachedFailure) {
			p.log.Warn("fx fetch failed", "source", "fx", "err", err)
		}
		return out
	}

	for _, code := range normalizeCodes(codes) {
		cur, ok := p.currencies[code]
		if !ok {
			continue
		}
		if v, ok := rates[cur]; ok {
			out[code] = v
		}
	}
	return out
}

func (p *FXProvider) fetch(ctx context.Context) (map[string]float64, error) {
	var payload fxPayload
	if err := upstream.GetJSON(ctx, p.client, p.url, &payload); err != nil {
		return nil, fmt.Errorf("fx rates: %w", err)
	}
	rates, err := payload.normalize()
	if err != nil {
		return nil, fmt.Errorf("fx rates: %w", err)
	}
	return rates, nil
}
