package scoring_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iitslamaa/travel-scorer/internal/scoring"
)

func ptr(v float64) *float64 { return &v }

func TestScore_OnlyPresentFactorsCount(t *testing.T) {
	c := scoring.Score(scoring.Inputs{Advisory: ptr(80), Visa: ptr(60)}, scoring.DefaultWeights())
	require.NotNil(t, c.Total)
	assert.Equal(t, 70, *c.Total)
	assert.Len(t, c.PerFactor, 2)
	assert.Equal(t, scoring.Contribution{Value: 80, Weight: 1}, c.PerFactor[scoring.FactorAdvisory])
}

func TestScore_NothingPresent(t *testing.T) {
	c := scoring.Score(scoring.Inputs{}, scoring.DefaultWeights())
	assert.Nil(t, c.Total)
	assert.Empty(t, c.PerFactor)
}

func TestScore_ZeroWeightOnPresentFactors(t *testing.T) {
	w := scoring.Weights{Seasonality: 1}
	c := scoring.Score(scoring.Inputs{Advisory: ptr(80)}, w)
	assert.Nil(t, c.Total)
}

func TestScore_Weighted(t *testing.T) {
	w := scoring.Weights{Advisory: 3, Visa: 1, Affordability: 0, Seasonality: 1}
	in := scoring.Inputs{Advisory: ptr(100), Visa: ptr(50), Affordability: ptr(0), Seasonality: ptr(25)}
	c := scoring.Score(in, w)
	require.NotNil(t, c.Total)
	// (300 + 50 + 0 + 25) / 5
	assert.Equal(t, 75, *c.Total)
}

func TestScore_RoundsHalfUp(t *testing.T) {
	c := scoring.Score(scoring.Inputs{Advisory: ptr(75), Visa: ptr(30)}, scoring.DefaultWeights())
	require.NotNil(t, c.Total)
	assert.Equal(t, 53, *c.Total)
}

func TestWeights_Validate(t *testing.T) {
	assert.NoError(t, scoring.DefaultWeights().Validate())
	assert.NoError(t, scoring.Weights{Visa: 0.5}.Validate())
	assert.ErrorIs(t, scoring.Weights{}.Validate(), scoring.ErrAllZero)
	assert.Error(t, scoring.Weights{Advisory: -1, Visa: 2}.Validate())
	assert.Error(t, scoring.Weights{Advisory: math.NaN()}.Validate())
	assert.Error(t, scoring.Weights{Advisory: math.Inf(1)}.Validate())
}
