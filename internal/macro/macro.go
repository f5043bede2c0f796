// Package macro provides batched macroeconomic indicator lookups: GDP per
// capita and foreign-exchange rates against USD.
package macro

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

// Provider is a batched indicator lookup. Codes without a value are absent
// from the result; a lookup never fails as a whole.
type Provider interface {
	Lookup(ctx context.Context, codes []string) map[string]float64
}

// WithFallback serves static values for codes the primary provider could not
// answer.
type WithFallback struct {
	primary Provider
	static  map[string]float64
}

// NewWithFallback wraps primary with a static value table.
func NewWithFallback(primary Provider, static map[string]float64) *WithFallback {
	return &WithFallback{primary: primary, static: static}
}

// Lookup implements Provider.
func (f *WithFallback) Lookup(ctx context.Context, codes []string) map[string]float64 {
	out := f.primary.Lookup(ctx, codes)
	if out == nil {
		out = make(map[string]float64)
	}
	for _, c := range normalizeCodes(codes) {
		if _, ok := out[c]; ok {
			continue
		}
		if v, ok := f.static[c]; ok {
			out[c] = v
		}
	}
	return out
}

var (
	//go:embed gdp_fallback.json
	gdpFallbackJSON []byte

	//go:embed fx_fallback.json
	fxFallbackJSON []byte
)

// StaticGDP returns the embedded GDP-per-capita table keyed by ISO2.
func StaticGDP() (map[string]float64, error) {
	return decodeStatic("gdp", gdpFallbackJSON)
}

// StaticFX returns the embedded local-currency-per-USD table keyed by ISO2.
func StaticFX() (map[string]float64, error) {
	return decodeStatic("fx", fxFallbackJSON)
}

func decodeStatic(name string, data []byte) (map[string]float64, error) {
	var out map[string]float64
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding static %s table: %w", name, err)
	}
	return out, nil
}

// normalizeCodes upper-cases, trims and de-duplicates codes, dropping blanks.
func normalizeCodes(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
