package facts

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iitslamaa/travel-scorer/internal/advisory"
	"github.com/iitslamaa/travel-scorer/internal/cost"
	"github.com/iitslamaa/travel-scorer/internal/country"
	"github.com/iitslamaa/travel-scorer/internal/macro"
	"github.com/iitslamaa/travel-scorer/internal/metrics"
	"github.com/iitslamaa/travel-scorer/internal/scoring"
	"github.com/iitslamaa/travel-scorer/internal/seasonality"
	"github.com/iitslamaa/travel-scorer/internal/visa"
)

// AdvisorySource is satisfied by advisory.Service.
type AdvisorySource interface {
	Resolve(ctx context.Context) (map[string]*advisory.Advisory, error)
}

// VisaSource is satisfied by visa.Service.
type VisaSource interface {
	Index(ctx context.Context) (map[string]visa.Facts, error)
}

// SpendEstimator is satisfied by cost.Estimator.
type SpendEstimator interface {
	ForCountry(iso2 string) *cost.DailySpend
}

// SeasonCalendar is satisfied by seasonality.Calendar.
type SeasonCalendar interface {
	ForCountry(iso2 string, month time.Month) (seasonality.Result, bool)
}

// Sources are the merger's inputs. A nil source is treated as having no data.
type Sources struct {
	Advisory    AdvisorySource
	Visa        VisaSource
	GDP         macro.Provider
	FX          macro.Provider
	Spend       SpendEstimator
	Seasonality SeasonCalendar
}

// Merger fans out to every source and assembles one Record per country.
type Merger struct {
	src     Sources
	seeds   []country.Seed
	now     func() time.Time
	metrics *metrics.Metrics
	log     *slog.Logger
}

// Option configures a Merger.
type Option func(*Merger)

// WithNow overrides the clock used to pick the current month.
func WithNow(now func() time.Time) Option {
	return func(m *Merger) { m.now = now }
}

// WithSeeds restricts the merger to an explicit country list.
func WithSeeds(seeds []country.Seed) Option {
	return func(m *Merger) { m.seeds = seeds }
}

// NewMerger constructs a Merger over all seeded countries.
func NewMerger(src Sources, m *metrics.Metrics, log *slog.Logger, opts ...Option) *Merger {
	mg := &Merger{
		src:     src,
		seeds:   country.Seeds(),
		now:     time.Now,
		metrics: m,
		log:     log,
	}
	for _, o := range opts {
		o(mg)
	}
	return mg
}

// batch is the output of the per-source fetch phase.
type batch struct {
	advisories map[string]*advisory.Advisory
	visas      map[string]visa.Facts
	gdp        map[string]float64
	fx         map[string]float64
}

// Collect assembles unscored records for codes, or for every country when
// codes is empty. Unknown codes are skipped. Records are sorted by name.
// Source failures only leave fields empty.
func (mg *Merger) Collect(ctx context.Context, codes []string) ([]Record, error) {
	start := time.Now()
	defer func() { mg.metrics.ObserveAggregation(time.Since(start)) }()

	seeds := mg.selectSeeds(codes)
	iso2s := make([]string, len(seeds))
	for i, s := range seeds {
		iso2s[i] = s.ISO2
	}

	b := mg.fetchBatch(ctx, iso2s)
	month := mg.now().Month()

	records := make([]Record, len(seeds))
	var g errgroup.Group
	g.SetLimit(16)
	for i, s := range seeds {
		g.Go(func() error {
			records[i] = mg.assemble(s, b, month)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("assembling country records: %w", err)
	}

	slices.SortFunc(records, func(x, y Record) int {
		return cmp.Or(cmp.Compare(x.Name, y.Name), cmp.Compare(x.ISO2, y.ISO2))
	})
	return records, nil
}

// Merge collects records for codes and scores them with w.
func (mg *Merger) Merge(ctx context.Context, codes []string, w scoring.Weights) ([]Record, error) {
	records, err := mg.Collect(ctx, codes)
	if err != nil {
		return nil, err
	}
	return Score(records, w), nil
}

// Score returns a copy of records with ScoreTotal computed from w. It runs
// exactly once per response, after affordability is final.
func Score(records []Record, w scoring.Weights) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		r.Facts.ScoreTotal = scoring.Score(r.Facts.Inputs(), w).Total
		out[i] = r
	}
	return out
}

func (mg *Merger) selectSeeds(codes []string) []country.Seed {
	if len(codes) == 0 {
		return slices.Clone(mg.seeds)
	}
	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		want[c] = true
	}
	var out []country.Seed
	for _, s := range mg.seeds {
		if want[s.ISO2] {
			out = append(out, s)
		}
	}
	return out
}

func (mg *Merger) fetchBatch(ctx context.Context, iso2s []string) batch {
	var b batch
	g, gCtx := errgroup.WithContext(ctx)

	if mg.src.Advisory != nil {
		g.Go(mg.guard("advisory", func() error {
			a, err := mg.src.Advisory.Resolve(gCtx)
			b.advisories = a
			return err
		}))
	}
	if mg.src.Visa != nil {
		g.Go(mg.guard("visa", func() error {
			v, err := mg.src.Visa.Index(gCtx)
			b.visas = v
			return err
		}))
	}
	if mg.src.GDP != nil {
		g.Go(mg.guard("gdp", func() error {
			b.gdp = mg.src.GDP.Lookup(gCtx, iso2s)
			return nil
		}))
	}
	if mg.src.FX != nil {
		g.Go(mg.guard("fx", func() error {
			b.fx = mg.src.FX.Lookup(gCtx, iso2s)
			return nil
		}))
	}

	_ = g.Wait()
	return b
}

// guard turns a source failure or panic into a logged, empty result so the
// errgroup never cancels its siblings.
func (mg *Merger) guard(source string, fn func() error) func() error {
	return func() error {
		defer func() {
			if r := recover(); r != nil {
				mg.log.Error("source panicked", "source", source, "recover", r)
			}
		}()
		if err := fn(); err != nil {
			mg.log.Warn("source failed", "source", source, "err", err)
		}
		return nil
	}
}

func (mg *Merger) assemble(s country.Seed, b batch, month time.Month) Record {
	rec := newRecord(s)
	f := &rec.Facts

	mg.isolate(s.ISO2, "advisory", func() {
		a := b.advisories[s.ISO2]
		rec.Advisory = advisoryInfo(a)
		f.setAdvisory(a)
	})
	mg.isolate(s.ISO2, "visa", func() {
		if v, ok := b.visas[s.ISO2]; ok {
			f.setVisa(v)
		}
	})
	mg.isolate(s.ISO2, "gdp", func() {
		if v, ok := b.gdp[s.ISO2]; ok {
			f.GDPPerCapitaUSD = &v
		}
	})
	mg.isolate(s.ISO2, "fx", func() {
		if v, ok := b.fx[s.ISO2]; ok {
			f.FXLocalPerUSD = &v
		}
	})
	if mg.src.Spend != nil {
		mg.isolate(s.ISO2, "cost", func() {
			f.DailySpend = mg.src.Spend.ForCountry(s.ISO2)
		})
	}
	if mg.src.Seasonality != nil {
		mg.isolate(s.ISO2, "seasonality", func() {
			if r, ok := mg.src.Seasonality.ForCountry(s.ISO2, month); ok {
				f.setSeasonality(r)
			}
		})
	}

	mg.isolate(s.ISO2, "affordability", f.applyAffordability)
	return rec
}

// isolate runs one source's contribution to one country. A panic discards
// only the rest of that contribution.
func (mg *Merger) isolate(iso2, source string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			mg.log.Error("source panicked", "source", source, "iso2", iso2, "recover", r)
		}
	}()
	fn()
}
