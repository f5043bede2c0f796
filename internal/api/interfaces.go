package api

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iitslamaa/travel-scorer/internal/advisory"
	"github.com/iitslamaa/travel-scorer/internal/facts"
	"github.com/iitslamaa/travel-scorer/internal/scoring"
)

// RecordCollector defines the record assembly needed by handlers.
type RecordCollector interface {
	Collect(ctx context.Context, codes []string) ([]facts.Record, error)
}

// RecordCache defines the cache operations needed by handlers.
type RecordCache interface {
	Get(ctx context.Context, period string) ([]facts.Record, error)
	Set(ctx context.Context, period string, records []facts.Record) error
	Delete(ctx context.Context, period string) error
}

// WeightsRepo defines the preference storage needed by handlers.
type WeightsRepo interface {
	GetScoreWeights(ctx context.Context, userID uuid.UUID) (*scoring.Weights, error)
	UpsertScoreWeights(ctx context.Context, userID uuid.UUID, w scoring.Weights) error
}

// AdvisoryLister is satisfied by advisory.Service.
type AdvisoryLister interface {
	List(ctx context.Context) ([]advisory.Advisory, error)
}

// SeasonCalendar is satisfied by seasonality.Calendar.
type SeasonCalendar interface {
	ForMonth(month time.Month) (peak, shoulder []string)
}
