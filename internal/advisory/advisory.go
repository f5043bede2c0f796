// Package advisory normalizes government travel advisories into one record per
// country.
package advisory

import (
	"time"

	"github.com/iitslamaa/travel-scorer/internal/country"
)

// Advisory is a normalized advisory for one country.
type Advisory struct {
	ISO2      string `json:"iso2"`
	Level     int    `json:"level"`
	Summary   string `json:"summary"`
	UpdatedAt string `json:"updatedAt"`
	URL       string `json:"url"`
}

// RawEntry is an advisory as read from a feed or snapshot. Identifier is not
// validated; only entries whose identifier is an upper-case ISO2 code survive
// Resolve.
type RawEntry struct {
	Identifier string
	Level      int
	Summary    string
	URL        string
	Updated    time.Time
}

// Territories that never get their own advisory.
var dependentTerritories = map[string]bool{
	"AS": true,
	"GU": true,
	"MP": true,
	"PR": true,
	"VI": true,
	"UM": true,
}

// Microstates that share the advisory of the surrounding state.
var patronStates = map[string]string{
	"VA": "IT",
	"SM": "IT",
}

// Manually verified levels used only when nothing else applies.
var lastResortLevels = map[string]int{
	"AD": 1,
	"LI": 1,
	"MC": 1,
	"TV": 1,
	"NR": 1,
}

// Resolve maps every seed to its advisory, or nil when none applies.
func Resolve(entries []RawEntry, seeds []country.Seed) map[string]*Advisory {
	direct := make(map[string]RawEntry, len(entries))
	for _, e := range entries {
		if !country.IsValidISO2(e.Identifier) || !ValidLevel(e.Level) {
			continue
		}
		if prev, ok := direct[e.Identifier]; ok && prev.Updated.After(e.Updated) {
			continue
		}
		direct[e.Identifier] = e
	}

	out := make(map[string]*Advisory, len(seeds))
	for _, s := range seeds {
		out[s.ISO2] = resolveOne(s, direct)
	}
	return out
}

func resolveOne(s country.Seed, direct map[string]RawEntry) *Advisory {
	if dependentTerritories[s.ISO2] {
		return nil
	}
	if e, ok := direct[s.ISO2]; ok {
		return fromEntry(s.ISO2, e)
	}
	if patron, ok := patronStates[s.ISO2]; ok {
		if e, ok := direct[patron]; ok {
			return fromEntry(s.ISO2, e)
		}
	}
	if s.Territory {
		return nil
	}
	if level, ok := lastResortLevels[s.ISO2]; ok {
		return &Advisory{ISO2: s.ISO2, Level: level}
	}
	return nil
}

func fromEntry(iso2 string, e RawEntry) *Advisory {
	a := &Advisory{
		ISO2:    iso2,
		Level:   e.Level,
		Summary: DecodeSummary(e.Summary),
		URL:     e.URL,
	}
	if !e.Updated.IsZero() {
		a.UpdatedAt = e.Updated.UTC().Format(time.RFC3339)
	}
	return a
}

// ValidLevel reports whether level is one of the four advisory levels.
func ValidLevel(level int) bool {
	return level >= 1 && level <= 4
}

// Score maps a level to 0-100, higher is safer. Anything outside 1..4 counts
// as absent and scores a neutral 50.
func Score(level int) float64 {
	if !ValidLevel(level) {
		return 50
	}
	return float64(5-level) / 4 * 100
}
