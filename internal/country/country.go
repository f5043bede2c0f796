package country

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

//go:embed countries.csv
var seedCSV []byte

// Seed is one static country or territory record.
type Seed struct {
	ISO2      string   `json:"iso2"`
	ISO3      string   `json:"iso3"`
	Name      string   `json:"name"`
	Region    string   `json:"region,omitempty"`
	Subregion string   `json:"subregion,omitempty"`
	Territory bool     `json:"territory"`
	Currency  string   `json:"-"`
	Aliases   []string `json:"-"`
}

var (
	seeds     = mustLoad(seedCSV)
	byISO2    = index(seeds, func(s Seed) string { return s.ISO2 })
	byISO3    = index(seeds, func(s Seed) string { return s.ISO3 })
	byNameKey = nameIndex(seeds)
)

// Seeds returns a copy of the full seed list ordered by ISO2.
func Seeds() []Seed {
	out := make([]Seed, len(seeds))
	copy(out, seeds)
	return out
}

// Codes returns every seeded ISO2 code in seed order.
func Codes() []string {
	out := make([]string, len(seeds))
	for i, s := range seeds {
		out[i] = s.ISO2
	}
	return out
}

// ByISO2 looks up a seed by its exact upper-case alpha-2 code.
func ByISO2(code string) (Seed, bool) {
	s, ok := byISO2[code]
	return s, ok
}

// ByISO3 looks up a seed by alpha-3 code, case-insensitively.
func ByISO3(code string) (Seed, bool) {
	s, ok := byISO3[strings.ToUpper(strings.TrimSpace(code))]
	return s, ok
}

// ByExactName resolves a name or alias after NameKey normalization.
// There is no substring or fuzzy fallback.
func ByExactName(name string) (Seed, bool) {
	k := NameKey(name)
	if k == "" {
		return Seed{}, false
	}
	s, ok := byNameKey[k]
	return s, ok
}

// CurrencyByISO2 maps every seeded code to its ISO 4217 currency.
func CurrencyByISO2() map[string]string {
	out := make(map[string]string, len(seeds))
	for _, s := range seeds {
		if s.Currency != "" {
			out[s.ISO2] = s.Currency
		}
	}
	return out
}

// IsValidISO2 reports whether s is exactly two upper-case ASCII letters.
func IsValidISO2(s string) bool {
	if len(s) != 2 {
		return false
	}
	for i := 0; i < 2; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// NameKey lowercases, strips accents and drops everything except a-z and 0-9,
// so "Türkiye", "turkiye" and "TURKIYE!" share a key.
func NameKey(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func mustLoad(data []byte) []Seed {
	out, err := parseSeeds(data)
	if err != nil {
		panic(fmt.Sprintf("country: loading embedded seeds: %v", err))
	}
	return out
}

func parseSeeds(data []byte) ([]Seed, error) {
	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading seed csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("seed csv has no rows")
	}

	out := make([]Seed, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != 8 {
			return nil, fmt.Errorf("row %d: want 8 columns, got %d", i+2, len(rec))
		}
		s := Seed{
			ISO2:      rec[0],
			ISO3:      rec[1],
			Name:      rec[2],
			Region:    rec[3],
			Subregion: rec[4],
			Territory: rec[5] == "1",
			Currency:  rec[6],
		}
		if !IsValidISO2(s.ISO2) {
			return nil, fmt.Errorf("row %d: invalid iso2 %q", i+2, s.ISO2)
		}
		if rec[7] != "" {
			s.Aliases = strings.Split(rec[7], "|")
		}
		out = append(out, s)
	}
	return out, nil
}

func index(list []Seed, key func(Seed) string) map[string]Seed {
	m := make(map[string]Seed, len(list))
	for _, s := range list {
		m[key(s)] = s
	}
	return m
}

// nameIndex keeps the first seed claiming a key so aliases never shadow names.
func nameIndex(list []Seed) map[string]Seed {
	m := make(map[string]Seed, len(list)*2)
	add := func(label string, s Seed) {
		k := NameKey(label)
		if k == "" {
			return
		}
		if _, taken := m[k]; !taken {
			m[k] = s
		}
	}
	for _, s := range list {
		add(s.Name, s)
	}
	for _, s := range list {
		for _, a := range s.Aliases {
			add(a, s)
		}
	}
	return m
}
