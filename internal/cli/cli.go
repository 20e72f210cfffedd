// Package cli is the terminal front end: it drives the same client, resolver
// and dashboard session as the portal and prints the results.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bobmcallan/railpulse-portal/internal/app"
	"github.com/bobmcallan/railpulse-portal/internal/common"
	"github.com/bobmcallan/railpulse-portal/internal/config"
)

// environment carries what the commands share once the root has loaded config.
type environment struct {
	configFiles []string
	apiURL      string
	timezone    string
	logLevel    string

	cfg     *config.Config
	core    *app.Core
	logger  *common.Logger
	confirm func(message string) (bool, error)
}

// NewRootCmd creates the railpulse command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&environment{confirm: confirmPrompt})
}

func newRootCmd(env *environment) *cobra.Command {
	root := &cobra.Command{
		Use:   "railpulse",
		Short: "RailPulse market dashboard in the terminal",
		Long: `railpulse reads daily market metrics and AI recommendations from the RailPulse backend.
When today's data is not published yet it shows the most recent day that has data.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return env.load()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if env.core != nil {
				return env.core.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringSliceVarP(&env.configFiles, "config", "c", nil, "Configuration file path (repeatable)")
	root.PersistentFlags().StringVar(&env.apiURL, "api-url", "", "RailPulse backend URL (overrides config)")
	root.PersistentFlags().StringVar(&env.timezone, "timezone", "", "Business timezone (overrides config)")
	root.PersistentFlags().StringVar(&env.logLevel, "log-level", "warn", "Log level for diagnostics on stderr")

	root.AddCommand(newHealthCmd(env))
	root.AddCommand(newMetricsCmd(env))
	root.AddCommand(newRecommendationsCmd(env))
	root.AddCommand(newWatchCmd(env))
	root.AddCommand(newAdminCmd(env))
	root.AddCommand(newVersionCmd())

	return root
}

func (e *environment) load() error {
	cfg, err := config.LoadFromFiles(e.configFiles...)
	if err != nil {
		return err
	}
	if e.apiURL != "" {
		cfg.API.URL = e.apiURL
	}
	if e.timezone != "" {
		cfg.Dashboard.Timezone = e.timezone
	}
	if issues := cfg.Validate(); len(issues) > 0 {
		return fmt.Errorf("invalid configuration: %v", issues)
	}

	if e.logger == nil {
		e.logger = common.NewLoggerFromConfig(config.LoggingConfig{
			Level:   e.logLevel,
			Outputs: []string{"console"},
		})
	}

	core, err := app.NewCore(cfg, e.logger)
	if err != nil {
		return err
	}
	e.cfg = cfg
	e.core = core
	return nil
}

// requestContext bounds one command by a full fallback walk of requests.
func (e *environment) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	steps := len(e.core.Calendar.FallbackWindow()) + 1
	return context.WithTimeout(parent, e.cfg.API.GetTimeout()*time.Duration(steps))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		// Needs no configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "railpulse %s (build %s, commit %s)\n",
				config.GetVersion(), config.GetBuild(), config.GetGitCommit())
		},
	}
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
