// Package dashboard runs the metrics and recommendations fetch cycles behind
// one dashboard view and turns their results into a render-ready snapshot.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/railpulse-portal/internal/client"
	"github.com/bobmcallan/railpulse-portal/internal/common"
	"github.com/bobmcallan/railpulse-portal/internal/dates"
	"github.com/bobmcallan/railpulse-portal/internal/models"
	"github.com/bobmcallan/railpulse-portal/internal/resolver"
	"github.com/bobmcallan/railpulse-portal/internal/symbols"
)

// Backend is the subset of the API client a session needs.
type Backend interface {
	resolver.MetricsFetcher
	FetchRecommendations(ctx context.Context, date string) (*models.RecommendationSet, error)
	RunETLPipeline(ctx context.Context, forceRefresh bool) (*models.AdminRunResponse, error)
	GenerateRecommendations(ctx context.Context, date string, force bool) (*models.AdminRecommendationsResponse, error)
	AdminEnabled() bool
	InvalidateReads()
}

// AdminNoticeDuration is how long admin success notices stay visible.
const AdminNoticeDuration = 5 * time.Second

// Session owns the state of one dashboard: the selected query, the resolved
// metrics, the dependent recommendations and pending notices.
type Session struct {
	backend  Backend
	cal      *dates.Calendar
	catalog  *symbols.Catalog
	resolver *resolver.Resolver
	notices  *Notifier
	logger   *common.Logger

	mu         sync.RWMutex
	query      models.DatedSymbolQuery
	dataset    *models.ResolvedDataset
	metricsErr error
	metricsAt  time.Time // last completed metrics cycle
	recs       *models.RecommendationSet
	recsErr    error
	recsDate   string
	recsAt     time.Time
	lastAdmin  *models.AdminActionResult
}

// NewSession creates a session with the default selection for today.
func NewSession(backend Backend, cal *dates.Calendar, catalog *symbols.Catalog, logger *common.Logger) *Session {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if catalog == nil {
		catalog = symbols.DefaultCatalog()
	}
	s := &Session{
		backend:  backend,
		cal:      cal,
		catalog:  catalog,
		resolver: resolver.New(backend, cal, logger),
		notices:  NewNotifier(0),
		logger:   logger,
	}
	s.SetQuery("", nil)
	return s
}

// SetQuery selects a date and symbols. A blank date means today; no symbols
// means the catalog defaults. Changing the query discards the previous results.
func (s *Session) SetQuery(date string, syms []string) models.DatedSymbolQuery {
	if date == "" {
		date = s.cal.Today()
	}
	if len(models.NormalizeSymbols(syms)) == 0 {
		syms = s.catalog.Defaults
	}
	q := models.NewQuery(date, syms)

	s.mu.Lock()
	defer s.mu.Unlock()
	if q.Key() != s.query.Key() {
		s.dataset, s.metricsErr = nil, nil
		s.recs, s.recsErr, s.recsDate = nil, nil, ""
	}
	s.query = q
	s.resolver.Begin(q)
	return q
}

// Query returns the selected query.
func (s *Session) Query() models.DatedSymbolQuery {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// Notices returns the session's notice queue.
func (s *Session) Notices() *Notifier { return s.notices }

// Calendar returns the session's business calendar.
func (s *Session) Calendar() *dates.Calendar { return s.cal }

// Catalog returns the symbol catalog.
func (s *Session) Catalog() *symbols.Catalog { return s.catalog }

// AdminEnabled reports whether admin actions are offered.
func (s *Session) AdminEnabled() bool { return s.backend.AdminEnabled() }

// Dataset returns the last resolved metrics, or nil.
func (s *Session) Dataset() *models.ResolvedDataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset
}

// Recommendations returns the last loaded recommendation set, or nil.
func (s *Session) Recommendations() *models.RecommendationSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recs
}

// LoadMetrics runs the metrics cycle for the selected query.
// A failure is kept for display and announced once as an error notice.
func (s *Session) LoadMetrics(ctx context.Context) error {
	q := s.Query()
	out, err := s.resolver.Resolve(ctx, q)
	return s.applyMetrics(q, out, err)
}

// RevalidateMetrics re-runs the metrics cycle for the current query,
// keeping the fallback state, and reloads the recommendations when the
// resolved date moved.
func (s *Session) RevalidateMetrics(ctx context.Context) error {
	q := s.Query()
	before := s.resolver.RecommendationDate()
	out, err := s.resolver.Revalidate(ctx)
	if err = s.applyMetrics(q, out, err); err != nil {
		return err
	}
	if s.resolver.RecommendationDate() != before {
		_ = s.LoadRecommendations(ctx)
	}
	return nil
}

// RevalidateDue runs whichever cycles are older than their interval.
func (s *Session) RevalidateDue(ctx context.Context, metricsEvery, recsEvery time.Duration) {
	if s.since(&s.metricsAt) >= metricsEvery {
		if err := s.RevalidateMetrics(ctx); err != nil {
			s.logger.Debug().Str("error", err.Error()).Msg("metrics revalidation failed")
		}
	}
	// A moved resolved date has already reloaded the recommendations.
	if s.since(&s.recsAt) >= recsEvery {
		_ = s.LoadRecommendations(ctx)
	}
}

func (s *Session) since(at *time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(*at)
}

func (s *Session) applyMetrics(q models.DatedSymbolQuery, out *resolver.Outcome, err error) error {
	if errors.Is(err, resolver.ErrSuperseded) {
		return err
	}

	s.mu.Lock()
	if q.Key() != s.query.Key() {
		s.mu.Unlock()
		return resolver.ErrSuperseded
	}
	s.metricsAt = time.Now()
	if err != nil {
		s.metricsErr = err
	} else {
		s.dataset = out.Dataset
		s.metricsErr = nil
	}
	s.mu.Unlock()

	if err != nil {
		s.notices.Error(fmt.Sprintf("Failed to load market data: %s", err.Error()))
		return err
	}
	if out.Notice != nil {
		s.notices.Add(*out.Notice)
	}
	s.logger.Debug().
		Str("requested_date", out.Dataset.RequestedDate).
		Str("actual_date", out.Dataset.ActualDate).
		Int("prices", len(out.Dataset.Prices)).
		Bool("fallback", out.Dataset.IsFallback).
		Int64("generation", int64(out.Generation)).
		Msg("metrics cycle complete")
	return nil
}

// LoadRecommendations runs the recommendations cycle keyed on the resolved
// date. Failures are logged and shown as an unavailable panel, never as a notice.
func (s *Session) LoadRecommendations(ctx context.Context) error {
	q := s.Query()
	date := s.resolver.RecommendationDate()

	set, err := s.backend.FetchRecommendations(ctx, date)

	s.mu.Lock()
	defer s.mu.Unlock()
	if q.Key() != s.query.Key() {
		return resolver.ErrSuperseded
	}
	s.recsDate = date
	s.recsAt = time.Now()
	if err != nil {
		s.recs, s.recsErr = nil, err
		s.logger.Warn().Str("date", date).Str("error", err.Error()).Msg("failed to load recommendations")
		return err
	}
	s.recs, s.recsErr = set, nil
	return nil
}

// Load runs the metrics cycle then the dependent recommendations cycle.
// Only a metrics failure is returned.
func (s *Session) Load(ctx context.Context) error {
	err := s.LoadMetrics(ctx)
	if errors.Is(err, resolver.ErrSuperseded) {
		return err
	}
	_ = s.LoadRecommendations(ctx)
	return err
}

// Refresh drops cached reads and fallback state, then reloads both cycles concurrently.
func (s *Session) Refresh(ctx context.Context) error {
	s.resolver.Reset()
	s.backend.InvalidateReads()

	var wg sync.WaitGroup
	var metricsErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		metricsErr = s.LoadMetrics(ctx)
	}()
	go func() {
		defer wg.Done()
		_ = s.LoadRecommendations(ctx)
	}()
	wg.Wait()

	// The metrics cycle may have moved to a fallback date after recommendations started.
	s.mu.RLock()
	stale := s.recsDate != s.resolver.RecommendationDate()
	s.mu.RUnlock()
	if stale {
		_ = s.LoadRecommendations(ctx)
	}

	s.notices.Success("Data refreshed!", 0)
	return metricsErr
}

// DataRefresh is the refresh that follows a successful admin action.
func (s *Session) DataRefresh(ctx context.Context) error {
	return s.Refresh(ctx)
}

// RunETL triggers the backend pipeline and reports the outcome as a notice.
func (s *Session) RunETL(ctx context.Context, forceRefresh bool) (*models.AdminActionResult, error) {
	if !s.backend.AdminEnabled() {
		return nil, client.ErrAdminDisabled
	}
	resp, err := s.backend.RunETLPipeline(ctx, forceRefresh)
	if err != nil {
		s.notices.Error(fmt.Sprintf("ETL failed: %s", err.Error()))
		s.logger.Error().Bool("force_refresh", forceRefresh).Str("error", err.Error()).Msg("ETL pipeline request failed")
		return nil, err
	}

	result := models.NewRunResult(resp)
	s.recordAdmin(result)
	if !result.Success {
		s.notices.Error("ETL pipeline failed. Check the logs for details.")
		return &result, nil
	}

	s.notices.Success(fmt.Sprintf("ETL completed successfully! Processed %d symbols.", result.ProcessedCount), AdminNoticeDuration)
	s.logger.Info().Int("processed", result.ProcessedCount).Int("failed", result.FailedCount).Msg("ETL pipeline completed")
	_ = s.DataRefresh(ctx)
	return &result, nil
}

// GenerateRecommendations asks the backend to (re)generate recommendations for the selected date.
func (s *Session) GenerateRecommendations(ctx context.Context, force bool) (*models.AdminActionResult, error) {
	if !s.backend.AdminEnabled() {
		return nil, client.ErrAdminDisabled
	}
	date := s.Query().Date
	resp, err := s.backend.GenerateRecommendations(ctx, date, force)
	if err != nil {
		s.notices.Error(fmt.Sprintf("Recommendation generation failed: %s", err.Error()))
		s.logger.Error().Str("date", date).Str("error", err.Error()).Msg("recommendation generation request failed")
		return nil, err
	}

	result := models.NewRecommendationsResult(resp, date)
	s.recordAdmin(result)
	if !result.Success {
		s.notices.Error("Failed to generate recommendations. Check the logs for details.")
		return &result, nil
	}

	s.notices.Success(fmt.Sprintf("Recommendations generated successfully for %s!", date), AdminNoticeDuration)
	_ = s.DataRefresh(ctx)
	return &result, nil
}

func (s *Session) recordAdmin(r models.AdminActionResult) {
	s.mu.Lock()
	s.lastAdmin = &r
	s.mu.Unlock()
}

// LastAdminResult returns the outcome of the most recent admin action, or nil.
func (s *Session) LastAdminResult() *models.AdminActionResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAdmin
}
