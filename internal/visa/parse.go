package visa

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/iitslamaa/travel-scorer/internal/country"
)

// Row is one visa requirement row as stored in a snapshot, before
// classification.
type Row struct {
	ISO2        string `json:"iso2"`
	Requirement string `json:"requirement"`
	AllowedStay string `json:"allowedStay,omitempty"`
	Notes       string `json:"notes,omitempty"`
	SourceURL   string `json:"sourceUrl,omitempty"`
}

// DefaultSourceURL is recorded when a row carries no source of its own.
const DefaultSourceURL = "https://en.wikipedia.org/wiki/Visa_requirements_for_United_States_citizens"

type requirementRule struct {
	pattern *regexp.Regexp
	typ     Type
}

// Checked in order; the first match wins.
var requirementRules = []requirementRule{
	{regexp.MustCompile(`(?i)visa[- ]?free|not required`), TypeVisaFree},
	{regexp.MustCompile(`(?i)visa on arrival|\bvoa\b`), TypeVOA},
	{regexp.MustCompile(`(?i)\be-?visa\b|electronic travel authori[sz]ation|\beta\b`), TypeEVisa},
	{regexp.MustCompile(`(?i)entry permit|required permit`), TypeVisaRequired},
	{regexp.MustCompile(`(?i)not allowed|prohibit|\bban`), TypeBan},
}

// ClassifyRequirement maps free requirement text onto a Type, defaulting to
// TypeVisaRequired.
func ClassifyRequirement(text string) Type {
	for _, r := range requirementRules {
		if r.pattern.MatchString(text) {
			return r.typ
		}
	}
	return TypeVisaRequired
}

type durationRule struct {
	pattern *regexp.Regexp
	days    int
}

var durationRules = []durationRule{
	{regexp.MustCompile(`(?i)(\d{1,4})\s*day`), 1},
	{regexp.MustCompile(`(?i)(\d{1,3})\s*week`), 7},
	{regexp.MustCompile(`(?i)(\d{1,2})\s*month`), 30},
	{regexp.MustCompile(`(?i)(\d{1,2})\s*year`), 365},
}

// ParseAllowedDays reads a stay such as "90 days", "3 months" or "1 year" as a
// number of days. Months count as 30 days.
func ParseAllowedDays(text string) (int, bool) {
	for _, r := range durationRules {
		if m := r.pattern.FindStringSubmatch(text); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			return n * r.days, true
		}
	}
	return 0, false
}

var feePattern = regexp.MustCompile(`(?:US\$|\$|€|£)\s?(\d{1,4}(?:\.\d{1,2})?)`)

// ParseFee reads the first amount written as $N, US$N, €N or £N. The figure
// is taken at face value as USD.
func ParseFee(text string) (float64, bool) {
	m := feePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FactsFromRows classifies snapshot rows. Rows without a valid ISO2 code are
// skipped; a later row for the same code replaces an earlier one.
func FactsFromRows(rows []Row) map[string]Facts {
	out := make(map[string]Facts, len(rows))
	for _, r := range rows {
		iso2 := strings.ToUpper(strings.TrimSpace(r.ISO2))
		if !country.IsValidISO2(iso2) {
			continue
		}
		out[iso2] = factsFromRow(r)
	}
	return out
}

func factsFromRow(r Row) Facts {
	f := Facts{
		Type:      ClassifyRequirement(r.Requirement),
		Notes:     strings.TrimSpace(r.Notes),
		SourceURL: r.SourceURL,
	}
	if f.SourceURL == "" {
		f.SourceURL = DefaultSourceURL
	}
	if d, ok := ParseAllowedDays(r.AllowedStay); ok {
		f.AllowedDays = &d
	} else if d, ok := ParseAllowedDays(r.Requirement); ok {
		f.AllowedDays = &d
	}
	if fee, ok := ParseFee(r.Notes); ok {
		f.FeeUSD = &fee
	}
	f.Ease = Ease(f.Type, f.FeeUSD)
	return f
}
