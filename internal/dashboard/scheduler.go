package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/railpulse-portal/internal/common"
)

// Scheduler revalidates a session on two independent timers.
type Scheduler struct {
	Cron *cron.Cron
	// AfterRun, when set, is called after every revalidation.
	AfterRun func()

	session *Session
	logger  *common.Logger
	timeout time.Duration
	ctx     context.Context
}

// NewScheduler creates a scheduler for session. Each run is bounded by timeout.
func NewScheduler(ctx context.Context, session *Session, timeout time.Duration, logger *common.Logger) *Scheduler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		Cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		session: session,
		logger:  logger,
		timeout: timeout,
		ctx:     ctx,
	}
}

// RegisterAll registers the metrics and recommendations revalidation timers.
func (s *Scheduler) RegisterAll(metricsEvery, recsEvery time.Duration) error {
	if metricsEvery <= 0 || recsEvery <= 0 {
		return fmt.Errorf("refresh intervals must be positive: metrics=%s recommendations=%s", metricsEvery, recsEvery)
	}
	if _, err := s.Cron.AddFunc("@every "+metricsEvery.String(), s.RevalidateMetricsNow); err != nil {
		return fmt.Errorf("register metrics refresh: %w", err)
	}
	if _, err := s.Cron.AddFunc("@every "+recsEvery.String(), s.RevalidateRecommendationsNow); err != nil {
		return fmt.Errorf("register recommendations refresh: %w", err)
	}
	return nil
}

// Start starts the timers.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Int("entries", len(s.Cron.Entries())).Msg("dashboard scheduler started")
}

// Stop stops the timers and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("dashboard scheduler stopped")
}

// RevalidateMetricsNow runs one metrics cycle. A changed actual date also
// reloads the recommendations that depend on it.
func (s *Scheduler) RevalidateMetricsNow() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	defer s.afterRun()

	if err := s.session.RevalidateMetrics(ctx); err != nil {
		s.logger.Debug().Str("error", err.Error()).Msg("scheduled metrics revalidation failed")
	}
}

// RevalidateRecommendationsNow runs one recommendations cycle.
func (s *Scheduler) RevalidateRecommendationsNow() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	defer s.afterRun()
	_ = s.session.LoadRecommendations(ctx)
}

func (s *Scheduler) afterRun() {
	if s.AfterRun != nil {
		s.AfterRun()
	}
}

// cronLogger routes cron's internal logging through the portal logger.
type cronLogger struct {
	logger *common.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Debug().Str("kv", fmt.Sprint(keysAndValues...)).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Error().Str("error", err.Error()).Str("kv", fmt.Sprint(keysAndValues...)).Msg("cron: " + msg)
}
