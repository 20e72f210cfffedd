// Package resolver decides which date's metrics are displayed for a query.
//
// A request for a past date is answered as-is or fails. A request for the
// current business date that fails, or comes back without prices, walks the
// fallback window one date at a time and settles on the most recent date
// with data, announcing the substitution once.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/railpulse-portal/internal/common"
	"github.com/bobmcallan/railpulse-portal/internal/dates"
	"github.com/bobmcallan/railpulse-portal/internal/models"
	"github.com/bobmcallan/railpulse-portal/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	// ErrSuperseded is returned when a newer query started while this one was in flight.
	ErrSuperseded = errors.New("resolution superseded by a newer query")
	// ErrEmptyResult marks a successful response that carried no price rows.
	ErrEmptyResult = errors.New("no price data")
)

// FallbackNoticeDuration keeps the substitution notice up longer than usual.
const FallbackNoticeDuration = 6 * time.Second

// MetricsFetcher is the backend read used during resolution.
type MetricsFetcher interface {
	FetchMetrics(ctx context.Context, date string, symbols []string) (*models.MetricsResponse, error)
}

// Outcome is a committed resolution.
type Outcome struct {
	Dataset    *models.ResolvedDataset
	Notice     *models.Notice
	Generation uint64
}

// Resolver holds per-session fallback state. Safe for concurrent use.
type Resolver struct {
	fetcher MetricsFetcher
	cal     *dates.Calendar
	logger  *common.Logger

	mu                sync.Mutex
	generation        uint64
	query             models.DatedSymbolQuery
	fallbackAttempted bool
	actualDate        string
}

// New creates a Resolver.
func New(fetcher MetricsFetcher, cal *dates.Calendar, logger *common.Logger) *Resolver {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Resolver{fetcher: fetcher, cal: cal, logger: logger}
}

// Begin starts a new cycle for q and returns its generation. A query that
// differs from the current one clears the fallback state.
func (r *Resolver) Begin(q models.DatedSymbolQuery) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if q.Key() != r.query.Key() {
		r.fallbackAttempted = false
		r.actualDate = ""
	}
	r.query = q
	r.generation++
	return r.generation
}

// Reset clears the fallback flag and recorded actual date so the next
// resolution starts from the requested date again.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.fallbackAttempted = false
	r.actualDate = ""
	r.mu.Unlock()
}

// Current returns the query of the current cycle.
func (r *Resolver) Current() models.DatedSymbolQuery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.query
}

// ActualDate returns the date whose data was last displayed, if any.
func (r *Resolver) ActualDate() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.actualDate
}

// RecommendationDate is the date the dependent recommendations fetch uses:
// the resolved actual date, or the requested date when nothing resolved.
func (r *Resolver) RecommendationDate() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.actualDate != "" {
		return r.actualDate
	}
	return r.query.Date
}

// Resolve starts a cycle for q and runs it.
func (r *Resolver) Resolve(ctx context.Context, q models.DatedSymbolQuery) (*Outcome, error) {
	return r.Run(ctx, r.Begin(q))
}

// Revalidate re-runs the current query in a new generation.
func (r *Resolver) Revalidate(ctx context.Context) (*Outcome, error) {
	return r.Resolve(ctx, r.Current())
}

// Run resolves the cycle started by Begin. Results of a superseded
// generation are discarded with ErrSuperseded.
func (r *Resolver) Run(ctx context.Context, gen uint64) (*Outcome, error) {
	r.mu.Lock()
	q := r.query
	attempted, recorded := r.fallbackAttempted, r.actualDate
	r.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "resolver.resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("requested_date", q.Date),
		attribute.String("symbols", q.SymbolParam()),
		attribute.Int64("generation", int64(gen)),
	)

	start := time.Now()
	today := r.cal.IsToday(q.Date)

	resp, err := r.fetcher.FetchMetrics(ctx, q.Date, q.Symbols)
	if err == nil && (!today || (resp != nil && len(resp.Prices) > 0)) {
		return r.commit(gen, q, q.Date, resp, false, nil)
	}
	if !today {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Warn().Str("date", q.Date).Str("error", err.Error()).Msg("metrics request failed for past date")
		return nil, r.failure(gen, err)
	}

	origErr := err
	if origErr != nil {
		r.logger.Info().Str("date", q.Date).Str("error", origErr.Error()).Msg("no metrics for today, checking earlier dates")
	} else {
		r.logger.Info().Str("date", q.Date).Msg("empty metrics for today, checking earlier dates")
	}

	if attempted {
		// Same query after an earlier substitution: re-read that date without a new walk.
		if recorded != "" && recorded != q.Date {
			if data, ferr := r.fetchNonEmpty(ctx, recorded, q.Symbols); ferr == nil {
				return r.commit(gen, q, recorded, data, true, nil)
			}
		}
	} else {
		window := r.cal.FallbackWindow()
		for _, candidate := range window[1:] {
			if r.superseded(gen) {
				return nil, ErrSuperseded
			}
			if cerr := ctx.Err(); cerr != nil {
				return nil, r.failure(gen, cerr)
			}

			data, ferr := r.tryCandidate(ctx, candidate, q.Symbols)
			if ferr != nil {
				r.logger.Debug().Str("candidate", candidate).Str("error", ferr.Error()).Msg("fallback candidate skipped")
				continue
			}

			notice := &models.Notice{
				Level:    models.NoticeSuccess,
				Message:  fmt.Sprintf("No data for today. Showing data from %s.", r.cal.DaysAgoLabel(candidate)),
				Duration: FallbackNoticeDuration,
				Created:  time.Now(),
			}
			r.logger.Info().
				Str("requested_date", q.Date).
				Str("actual_date", candidate).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Msg("resolved metrics from fallback date")
			return r.commit(gen, q, candidate, data, true, notice)
		}
	}

	if origErr != nil {
		span.RecordError(origErr)
		span.SetStatus(codes.Error, "fallback exhausted")
		r.logger.Warn().Str("date", q.Date).Str("error", origErr.Error()).Msg("no metrics found within fallback window")
		return nil, r.failure(gen, origErr)
	}
	// Today answered successfully but empty and nothing earlier had data: show "no data".
	return r.commit(gen, q, q.Date, resp, false, nil)
}

func (r *Resolver) tryCandidate(ctx context.Context, date string, symbols []string) (*models.MetricsResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "resolver.candidate")
	defer span.End()
	span.SetAttributes(attribute.String("candidate_date", date))

	data, err := r.fetchNonEmpty(ctx, date, symbols)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("prices", len(data.Prices)))
	return data, nil
}

func (r *Resolver) fetchNonEmpty(ctx context.Context, date string, symbols []string) (*models.MetricsResponse, error) {
	data, err := r.fetcher.FetchMetrics(ctx, date, symbols)
	if err != nil {
		return nil, err
	}
	if data == nil || len(data.Prices) == 0 {
		return nil, fmt.Errorf("%s: %w", date, ErrEmptyResult)
	}
	return data, nil
}

// failure reports err for cycle gen, or ErrSuperseded once a newer cycle started.
func (r *Resolver) failure(gen uint64, err error) error {
	if r.superseded(gen) {
		return ErrSuperseded
	}
	return err
}

func (r *Resolver) superseded(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return gen != r.generation
}

func (r *Resolver) commit(gen uint64, q models.DatedSymbolQuery, actual string, resp *models.MetricsResponse, fallback bool, notice *models.Notice) (*Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.generation {
		r.logger.Debug().Str("date", q.Date).Int64("generation", int64(gen)).Msg("discarding superseded resolution")
		return nil, ErrSuperseded
	}

	r.actualDate = actual
	r.fallbackAttempted = fallback

	ds := &models.ResolvedDataset{
		RequestedDate: q.Date,
		ActualDate:    actual,
		Symbols:       q.Symbols,
		IsFallback:    actual != q.Date,
	}
	if resp != nil {
		ds.Prices = resp.Prices
		ds.Metrics = resp.Metrics
	}
	return &Outcome{Dataset: ds, Notice: notice, Generation: gen}, nil
}
