package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/railpulse-portal/internal/client"
	"github.com/bobmcallan/railpulse-portal/internal/dashboard"
	"github.com/bobmcallan/railpulse-portal/internal/dates"
	"github.com/bobmcallan/railpulse-portal/internal/models"
)

// queryFlags are the date and symbol selection shared by the read commands.
type queryFlags struct {
	date    string
	symbols string
}

func (q *queryFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&q.date, "date", "", "Business date YYYY-MM-DD (today if not provided)")
	cmd.Flags().StringVar(&q.symbols, "symbols", "", "Comma-separated tickers (catalog defaults if not provided)")
}

// session builds a dashboard session for the flags.
func (q *queryFlags) session(env *environment) (*dashboard.Session, error) {
	if q.date != "" && !dates.ValidDate(q.date) {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", q.date)
	}
	s := env.core.NewSession()
	s.SetQuery(q.date, s.Catalog().Parse(q.symbols))
	return s, nil
}

func newHealthCmd(env *environment) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the RailPulse backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), env.cfg.API.GetTimeout())
			defer cancel()

			h, err := env.core.Client.FetchHealth(ctx)
			out := cmd.OutOrStdout()
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render("backend down: "+err.Error()))
				return err
			}
			fmt.Fprintf(out, "%s %s (%s)\n", successStyle.Render("backend "+h.Status), env.core.Client.BaseURL(), h.Timestamp)
			return nil
		},
	}
}

func newMetricsCmd(env *environment) *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show market metrics, falling back to the latest day with data",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := q.session(env)
			if err != nil {
				return err
			}
			ctx, cancel := env.requestContext(cmd.Context())
			defer cancel()

			loadErr := s.LoadMetrics(ctx)
			v := s.View()
			renderNotices(cmd.OutOrStdout(), v.Notices)
			renderMetrics(cmd.OutOrStdout(), v)
			return loadErr
		},
	}
	q.bind(cmd)
	return cmd
}

func newRecommendationsCmd(env *environment) *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:     "recommendations",
		Aliases: []string{"recs"},
		Short:   "Show AI recommendations for the displayed market date",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := q.session(env)
			if err != nil {
				return err
			}
			ctx, cancel := env.requestContext(cmd.Context())
			defer cancel()

			// Recommendations follow the date the metrics resolved to.
			if err := s.Load(ctx); err != nil && !errors.Is(err, context.Canceled) {
				env.logger.Debug().Str("error", err.Error()).Msg("metrics load failed, using requested date")
			}
			v := s.View()
			renderRecommendations(cmd.OutOrStdout(), v.Recs)
			return nil
		},
	}
	q.bind(cmd)
	return cmd
}

func newWatchCmd(env *environment) *cobra.Command {
	var q queryFlags
	var metricsEvery, recsEvery time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the dashboard on screen and revalidate it on timers",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := q.session(env)
			if err != nil {
				return err
			}
			if metricsEvery <= 0 {
				metricsEvery = env.cfg.Dashboard.GetMetricsRefresh()
			}
			if recsEvery <= 0 {
				recsEvery = env.cfg.Dashboard.GetRecommendationsRefresh()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			var mu sync.Mutex
			render := func() {
				mu.Lock()
				defer mu.Unlock()
				v := s.View()
				fmt.Fprintln(out, subtleStyle.Render("updated "+time.Now().Format(time.Kitchen)))
				renderNotices(out, v.Notices)
				renderMetrics(out, v)
				renderRecommendations(out, v.Recs)
			}

			loadCtx, cancel := env.requestContext(ctx)
			_ = s.Load(loadCtx)
			cancel()
			render()

			steps := len(env.core.Calendar.FallbackWindow()) + 1
			sched := dashboard.NewScheduler(ctx, s, env.cfg.API.GetTimeout()*time.Duration(steps), env.logger)
			sched.AfterRun = render
			if err := sched.RegisterAll(metricsEvery, recsEvery); err != nil {
				return err
			}
			sched.Start()
			<-ctx.Done()
			sched.Stop()
			return nil
		},
	}
	q.bind(cmd)
	cmd.Flags().DurationVar(&metricsEvery, "metrics-every", 0, "Metrics revalidation interval (config default)")
	cmd.Flags().DurationVar(&recsEvery, "recommendations-every", 0, "Recommendations revalidation interval (config default)")
	return cmd
}

func newAdminCmd(env *environment) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Trigger backend pipeline actions (requires the app secret)",
	}

	var etlForce, etlYes bool
	etl := &cobra.Command{
		Use:   "etl",
		Short: "Run the ETL pipeline for today",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := env.core.NewSession()
			return runAdmin(cmd, env, s, etlYes, "Run the ETL pipeline now?", func(ctx context.Context) (*models.AdminActionResult, error) {
				return s.RunETL(ctx, etlForce)
			})
		},
	}
	etl.Flags().BoolVar(&etlForce, "force", false, "Refetch data that is already stored")
	etl.Flags().BoolVarP(&etlYes, "yes", "y", false, "Skip the confirmation prompt")

	var recDate string
	var recForce, recYes bool
	recommend := &cobra.Command{
		Use:   "recommend",
		Short: "Generate AI recommendations for a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			if recDate != "" && !dates.ValidDate(recDate) {
				return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", recDate)
			}
			s := env.core.NewSession()
			s.SetQuery(recDate, nil)
			prompt := fmt.Sprintf("Generate recommendations for %s?", s.Query().Date)
			return runAdmin(cmd, env, s, recYes, prompt, func(ctx context.Context) (*models.AdminActionResult, error) {
				return s.GenerateRecommendations(ctx, recForce)
			})
		},
	}
	recommend.Flags().StringVar(&recDate, "date", "", "Business date YYYY-MM-DD (today if not provided)")
	recommend.Flags().BoolVar(&recForce, "force", false, "Regenerate even if recommendations exist")
	recommend.Flags().BoolVarP(&recYes, "yes", "y", false, "Skip the confirmation prompt")

	admin.AddCommand(etl, recommend)
	return admin
}

// runAdmin confirms, runs one admin action and prints its notices and result.
func runAdmin(cmd *cobra.Command, env *environment, s *dashboard.Session, yes bool, prompt string,
	action func(context.Context) (*models.AdminActionResult, error)) error {
	out := cmd.OutOrStdout()
	if !s.AdminEnabled() {
		fmt.Fprintln(out, errorStyle.Render("Admin actions are disabled: set RAILPULSE_APP_SECRET or [admin] secret."))
		return client.ErrAdminDisabled
	}
	if !yes {
		ok, err := env.confirm(prompt)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, subtleStyle.Render("Cancelled"))
			return nil
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
	defer cancel()

	result, err := action(ctx)
	renderNotices(out, s.View().Notices)
	if err != nil {
		return err
	}
	renderAdminResult(out, result)
	return nil
}
