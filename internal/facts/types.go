// Package facts assembles the per-country facts records served by the API.
package facts

import (
	"github.com/iitslamaa/travel-scorer/internal/advisory"
	"github.com/iitslamaa/travel-scorer/internal/cost"
	"github.com/iitslamaa/travel-scorer/internal/country"
	"github.com/iitslamaa/travel-scorer/internal/scoring"
	"github.com/iitslamaa/travel-scorer/internal/seasonality"
	"github.com/iitslamaa/travel-scorer/internal/visa"
)

// Record is one country in the aggregated list. Advisory is null when no
// advisory applies; Facts is always present, possibly empty.
type Record struct {
	ISO2      string        `json:"iso2"`
	ISO3      string        `json:"iso3"`
	Name      string        `json:"name"`
	Region    string        `json:"region"`
	Subregion string        `json:"subregion"`
	Territory bool          `json:"territory"`
	Advisory  *AdvisoryInfo `json:"advisory"`
	Facts     Facts         `json:"facts"`
}

// AdvisoryInfo is the advisory block of a Record.
type AdvisoryInfo struct {
	Level     int     `json:"level"`
	Score     float64 `json:"score"`
	UpdatedAt string  `json:"updatedAt"`
	URL       string  `json:"url"`
	Summary   string  `json:"summary"`
}

// Facts holds every optional per-country field. Each source writes only its
// own fields; a nil or empty field means the data is unavailable.
type Facts struct {
	AdvisoryScore *float64 `json:"advisoryScore,omitempty"`
	AdvisoryLevel *int     `json:"advisoryLevel,omitempty"`

	Seasonality            *float64          `json:"seasonality,omitempty"`
	SeasonalityTodayScore  *float64          `json:"fmSeasonalityTodayScore,omitempty"`
	SeasonalityTodayLabel  seasonality.Label `json:"fmSeasonalityTodayLabel,omitempty"`
	SeasonalityBestMonths  []int             `json:"fmSeasonalityBestMonths,omitempty"`
	SeasonalityNotes       string            `json:"fmSeasonalityNotes,omitempty"`
	SeasonalityHasDualPeak bool              `json:"fmSeasonalityHasDualPeak,omitempty"`

	VisaEase        *float64  `json:"visaEase,omitempty"`
	VisaType        visa.Type `json:"visaType,omitempty"`
	VisaAllowedDays *int      `json:"visaAllowedDays,omitempty"`
	VisaFeeUSD      *float64  `json:"visaFeeUsd,omitempty"`
	VisaNotes       string    `json:"visaNotes,omitempty"`
	VisaSourceURL   string    `json:"visaSourceUrl,omitempty"`

	DailySpend            *cost.DailySpend `json:"dailySpend,omitempty"`
	AffordabilityCategory *int             `json:"affordabilityCategory,omitempty"`
	Affordability         *float64         `json:"affordability,omitempty"`
	AffordabilityBand     cost.Band        `json:"affordabilityBand,omitempty"`

	GDPPerCapitaUSD *float64 `json:"gdpPerCapitaUsd,omitempty"`
	FXLocalPerUSD   *float64 `json:"fxLocalPerUSD,omitempty"`

	ScoreTotal *int `json:"scoreTotal,omitempty"`
}

func newRecord(s country.Seed) Record {
	return Record{
		ISO2:      s.ISO2,
		ISO3:      s.ISO3,
		Name:      s.Name,
		Region:    s.Region,
		Subregion: s.Subregion,
		Territory: s.Territory,
	}
}

// Inputs extracts the scoring factors from f.
func (f Facts) Inputs() scoring.Inputs {
	return scoring.Inputs{
		Advisory:      f.AdvisoryScore,
		Visa:          f.VisaEase,
		Affordability: f.Affordability,
		Seasonality:   f.Seasonality,
	}
}

func (f *Facts) setAdvisory(a *advisory.Advisory) {
	if a == nil {
		return
	}
	score := advisory.Score(a.Level)
	level := a.Level
	f.AdvisoryScore = &score
	f.AdvisoryLevel = &level
}

func (f *Facts) setVisa(v visa.Facts) {
	ease := v.Ease
	f.VisaEase = &ease
	f.VisaType = v.Type
	f.VisaAllowedDays = v.AllowedDays
	f.VisaFeeUSD = v.FeeUSD
	f.VisaNotes = v.Notes
	f.VisaSourceURL = v.SourceURL
}

func (f *Facts) setSeasonality(r seasonality.Result) {
	score := r.TodayScore
	f.Seasonality = &score
	f.SeasonalityTodayScore = &score
	f.SeasonalityTodayLabel = r.TodayLabel
	f.SeasonalityBestMonths = r.BestMonths
	f.SeasonalityNotes = r.Notes
	f.SeasonalityHasDualPeak = r.HasDualPeak
}

// applyAffordability runs after every source has been merged.
func (f *Facts) applyAffordability() {
	if f.DailySpend == nil {
		return
	}
	a := cost.Classify(*f.DailySpend)
	bucket, score := a.Bucket, a.Score
	f.AffordabilityCategory = &bucket
	f.Affordability = &score
	f.AffordabilityBand = a.Band
}

func advisoryInfo(a *advisory.Advisory) *AdvisoryInfo {
	if a == nil {
		return nil
	}
	return &AdvisoryInfo{
		Level:     a.Level,
		Score:     advisory.Score(a.Level),
		UpdatedAt: a.UpdatedAt,
		URL:       a.URL,
		Summary:   a.Summary,
	}
}
