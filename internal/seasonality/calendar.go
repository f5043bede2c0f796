package seasonality

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

//go:embed calendar.json
var calendarJSON []byte

// Calendar holds curated definitions keyed by ISO2.
type Calendar struct {
	defs map[string]Definition
}

// NewCalendar wraps explicit definitions; keys are upper-cased.
func NewCalendar(defs map[string]Definition) *Calendar {
	c := &Calendar{defs: make(map[string]Definition, len(defs))}
	for k, d := range defs {
		c.defs[strings.ToUpper(k)] = d
	}
	return c
}

// DefaultCalendar loads the embedded calendar.
func DefaultCalendar() (*Calendar, error) {
	var defs map[string]Definition
	if err := json.Unmarshal(calendarJSON, &defs); err != nil {
		return nil, fmt.Errorf("decoding seasonality calendar: %w", err)
	}
	return NewCalendar(defs), nil
}

// ForCountry evaluates month for iso2. ok is false when iso2 has no entry.
func (c *Calendar) ForCountry(iso2 string, month time.Month) (Result, bool) {
	def, ok := c.defs[iso2]
	if !ok {
		return Result{}, false
	}
	return Evaluate(def, month), true
}

// ForMonth lists the countries whose month falls in their best or shoulder
// season, each sorted by code.
func (c *Calendar) ForMonth(month time.Month) (peak, shoulder []string) {
	m := int(month)
	for code, def := range c.defs {
		switch {
		case slices.Contains(def.Best, m):
			peak = append(peak, code)
		case slices.Contains(def.Shoulder, m):
			shoulder = append(shoulder, code)
		}
	}
	slices.Sort(peak)
	slices.Sort(shoulder)
	return peak, shoulder
}
