// Package visa resolves visa-ease facts per destination country for a
// reference passport.
package visa

import (
	"strings"

	"github.com/iitslamaa/travel-scorer/internal/country"
)

// Type is the kind of entry requirement.
type Type string

const (
	TypeVisaFree     Type = "visa_free"
	TypeVOA          Type = "voa"
	TypeEVisa        Type = "evisa"
	TypeVisaRequired Type = "visa_required"
	TypeBan          Type = "ban"
)

// ParseType maps a stored type name onto Type. The legacy entry_permit and
// any unknown name become TypeVisaRequired.
func ParseType(s string) Type {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeVisaFree, TypeVOA, TypeEVisa, TypeVisaRequired, TypeBan:
		return t
	default:
		return TypeVisaRequired
	}
}

// Facts are the visa facts for one destination.
type Facts struct {
	Type        Type     `json:"visaType"`
	AllowedDays *int     `json:"allowedDays,omitempty"`
	FeeUSD      *float64 `json:"feeUsd,omitempty"`
	Ease        float64  `json:"ease"`
	Notes       string   `json:"notes,omitempty"`
	SourceURL   string   `json:"sourceUrl"`
}

// Override replaces the snapshot value of every non-nil field.
type Override struct {
	Type        *Type    `json:"visaType,omitempty"`
	AllowedDays *int     `json:"allowedDays,omitempty"`
	FeeUSD      *float64 `json:"feeUsd,omitempty"`
	Ease        *float64 `json:"ease,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
	SourceURL   *string  `json:"sourceUrl,omitempty"`
}

// Ease scores how easy entry is, 0-100, from the type and whether a fee is
// charged. A zero fee counts as no fee.
func Ease(t Type, feeUSD *float64) float64 {
	hasFee := feeUSD != nil && *feeUSD > 0
	switch t {
	case TypeVisaFree:
		return 100
	case TypeVOA:
		if hasFee {
			return 75
		}
		return 90
	case TypeEVisa:
		if hasFee {
			return 35
		}
		return 50
	case TypeBan:
		return 0
	default:
		return 30
	}
}

// Resolve applies overrides on top of the snapshot. Keys that are not valid
// ISO2 codes after upper-casing are dropped.
func Resolve(snapshot map[string]Facts, overrides map[string]Override) map[string]Facts {
	out := make(map[string]Facts, len(snapshot)+len(overrides))
	for k, f := range snapshot {
		if country.IsValidISO2(k) {
			out[k] = f
		}
	}

	for k, o := range overrides {
		iso2 := strings.ToUpper(strings.TrimSpace(k))
		if !country.IsValidISO2(iso2) {
			continue
		}
		base, ok := out[iso2]
		if !ok {
			base = Facts{Type: TypeVisaRequired}
		}
		out[iso2] = apply(base, o)
	}
	return out
}

func apply(f Facts, o Override) Facts {
	if o.Type != nil {
		f.Type = ParseType(string(*o.Type))
	}
	if o.AllowedDays != nil {
		d := *o.AllowedDays
		f.AllowedDays = &d
	}
	if o.FeeUSD != nil {
		fee := *o.FeeUSD
		f.FeeUSD = &fee
	}
	if o.Notes != nil {
		f.Notes = *o.Notes
	}
	if o.SourceURL != nil {
		f.SourceURL = *o.SourceURL
	}
	if o.Ease != nil {
		f.Ease = *o.Ease
	} else {
		f.Ease = Ease(f.Type, f.FeeUSD)
	}
	return f
}
