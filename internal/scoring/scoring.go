// Package scoring reduces per-country factor scores to one weighted
// travelability score.
package scoring

import (
	"errors"
	"fmt"
	"math"
)

// Factor names a scored dimension.
type Factor string

const (
	FactorAdvisory      Factor = "advisory"
	FactorVisa          Factor = "visa"
	FactorAffordability Factor = "affordability"
	FactorSeasonality   Factor = "seasonality"
)

// Factors lists every factor in evaluation order.
var Factors = []Factor{FactorAdvisory, FactorVisa, FactorAffordability, FactorSeasonality}

// Weights are relative factor weights. They need not sum to 1.
type Weights struct {
	Advisory      float64 `json:"advisory"`
	Visa          float64 `json:"visa"`
	Affordability float64 `json:"affordability"`
	Seasonality   float64 `json:"seasonality"`
}

// DefaultWeights weighs every factor equally.
func DefaultWeights() Weights {
	return Weights{Advisory: 1, Visa: 1, Affordability: 1, Seasonality: 1}
}

var ErrAllZero = errors.New("at least one weight must be positive")

// Validate rejects negative, NaN or infinite weights and an all-zero set.
func (w Weights) Validate() error {
	var sum float64
	for _, f := range Factors {
		v := w.weight(f)
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("weight %s must be a finite non-negative number, got %v", f, v)
		}
		sum += v
	}
	if sum == 0 {
		return ErrAllZero
	}
	return nil
}

func (w Weights) weight(f Factor) float64 {
	switch f {
	case FactorAdvisory:
		return w.Advisory
	case FactorVisa:
		return w.Visa
	case FactorAffordability:
		return w.Affordability
	case FactorSeasonality:
		return w.Seasonality
	}
	return 0
}

// Inputs holds 0-100 factor values; nil means the underlying data is missing.
type Inputs struct {
	Advisory      *float64
	Visa          *float64
	Affordability *float64
	Seasonality   *float64
}

func (in Inputs) value(f Factor) *float64 {
	switch f {
	case FactorAdvisory:
		return in.Advisory
	case FactorVisa:
		return in.Visa
	case FactorAffordability:
		return in.Affordability
	case FactorSeasonality:
		return in.Seasonality
	}
	return nil
}

// Contribution is one present factor's input to the total.
type Contribution struct {
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
}

// Composite is the scored result. Total is nil when no weighted factor is
// present.
type Composite struct {
	Total     *int                    `json:"total"`
	PerFactor map[Factor]Contribution `json:"perFactor"`
}

// Score averages the present factors by weight. Missing factors are left out
// of both sums rather than counted as zero.
func Score(in Inputs, w Weights) Composite {
	c := Composite{PerFactor: make(map[Factor]Contribution, len(Factors))}
	var sum, weights float64
	for _, f := range Factors {
		v := in.value(f)
		if v == nil || math.IsNaN(*v) {
			continue
		}
		wt := w.weight(f)
		c.PerFactor[f] = Contribution{Value: *v, Weight: wt}
		sum += *v * wt
		weights += wt
	}
	if weights > 0 {
		total := int(math.Floor(sum/weights + 0.5))
		c.Total = &total
	}
	return c
}
