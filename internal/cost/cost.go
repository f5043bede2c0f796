// Package cost estimates a traveler's daily spend per country and buckets it
// into an affordability tier.
package cost

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
)

// Base USD rates at a scale factor of 1.0.
const (
	baseFoodUSD       = 25
	baseTransportUSD  = 15
	baseActivitiesUSD = 15
	baseHotelUSD      = 70

	hostelShareOfHotel = 0.4

	// Indices at or below this are relative price levels with a 0.6 baseline;
	// larger ones are on a 100 baseline.
	relativeScaleMax = 3
	relativeBaseline = 0.6
	percentBaseline  = 100

	minScale = 0.4
	maxScale = 3.0
)

// Indices are the optional price indices available for one country.
type Indices struct {
	CostOfLiving *float64 `json:"costOfLiving,omitempty"`
	Food         *float64 `json:"food,omitempty"`
	Housing      *float64 `json:"housing,omitempty"`
	Transport    *float64 `json:"transport,omitempty"`
}

// DailySpend is an estimated day's spend in whole USD. TotalUSD is always the
// sum of food, transport, activities and hotel.
type DailySpend struct {
	FoodUSD       int  `json:"foodUsd"`
	TransportUSD  int  `json:"transportUsd"`
	ActivitiesUSD int  `json:"activitiesUsd"`
	HotelUSD      int  `json:"hotelUsd"`
	HostelUSD     *int `json:"hostelUsd,omitempty"`
	TotalUSD      int  `json:"totalUsd"`
}

// NewDailySpend builds a DailySpend with the total filled in.
func NewDailySpend(food, transport, activities, hotel int, hostel *int) DailySpend {
	return DailySpend{
		FoodUSD:       food,
		TransportUSD:  transport,
		ActivitiesUSD: activities,
		HotelUSD:      hotel,
		HostelUSD:     hostel,
		TotalUSD:      food + transport + activities + hotel,
	}
}

// Scale converts a price index into a dimensionless factor clamped to
// [0.4, 3.0]. ok is false for missing, non-positive or non-finite indices.
func Scale(index *float64) (float64, bool) {
	if index == nil || math.IsNaN(*index) || math.IsInf(*index, 0) || *index <= 0 {
		return 0, false
	}
	v := *index
	var s float64
	if v <= relativeScaleMax {
		s = v / relativeBaseline
	} else {
		s = v / percentBaseline
	}
	return math.Min(maxScale, math.Max(minScale, s)), true
}

// scaleOr returns the first usable factor among indices, or 1.0.
func scaleOr(indices ...*float64) float64 {
	for _, idx := range indices {
		if s, ok := Scale(idx); ok {
			return s
		}
	}
	return 1
}

// Estimate derives a DailySpend from price indices. Sector indices fall back
// to the cost-of-living index; activities always use it. It returns nil when
// no index is usable.
func Estimate(idx Indices) *DailySpend {
	_, col := Scale(idx.CostOfLiving)
	_, food := Scale(idx.Food)
	_, housing := Scale(idx.Housing)
	_, transport := Scale(idx.Transport)
	if !col && !food && !housing && !transport {
		return nil
	}

	hotel := roundUSD(baseHotelUSD * scaleOr(idx.Housing, idx.CostOfLiving))
	hostel := roundUSD(float64(hotel) * hostelShareOfHotel)
	ds := NewDailySpend(
		roundUSD(baseFoodUSD*scaleOr(idx.Food, idx.CostOfLiving)),
		roundUSD(baseTransportUSD*scaleOr(idx.Transport, idx.CostOfLiving)),
		roundUSD(baseActivitiesUSD*scaleOr(idx.CostOfLiving)),
		hotel,
		&hostel,
	)
	return &ds
}

func roundUSD(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return int(math.Round(v))
}

// Hand-collected per-country figures that take precedence over the estimate.
// Activities amounts are hand-set; the source table lists only food,
// transport and lodging.
var seedSpend = map[string]DailySpend{
	"US": NewDailySpend(60, 25, 30, 150, intPtr(50)),
	"TH": NewDailySpend(20, 8, 10, 50, intPtr(15)),
	"JP": NewDailySpend(45, 20, 25, 120, intPtr(45)),
	"MX": NewDailySpend(25, 12, 15, 70, intPtr(25)),
}

func intPtr(v int) *int { return &v }

//go:embed indices.json
var indicesJSON []byte

// Estimator serves a DailySpend per country from seed figures first and price
// indices second.
type Estimator struct {
	seeds   map[string]DailySpend
	indices map[string]Indices
}

// NewEstimator constructs an Estimator from explicit tables.
func NewEstimator(seeds map[string]DailySpend, indices map[string]Indices) *Estimator {
	return &Estimator{seeds: seeds, indices: indices}
}

// DefaultEstimator uses the built-in seed figures and embedded indices.
func DefaultEstimator() (*Estimator, error) {
	var indices map[string]Indices
	if err := json.Unmarshal(indicesJSON, &indices); err != nil {
		return nil, fmt.Errorf("decoding price indices: %w", err)
	}
	return NewEstimator(seedSpend, indices), nil
}

// ForCountry returns the daily spend for iso2, or nil when nothing is known.
func (e *Estimator) ForCountry(iso2 string) *DailySpend {
	if ds, ok := e.seeds[iso2]; ok {
		out := ds
		if ds.HostelUSD != nil {
			out.HostelUSD = intPtr(*ds.HostelUSD)
		}
		return &out
	}
	idx, ok := e.indices[iso2]
	if !ok {
		return nil
	}
	return Estimate(idx)
}
