package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/railpulse-portal/internal/cache"
	"github.com/bobmcallan/railpulse-portal/internal/client"
	"github.com/bobmcallan/railpulse-portal/internal/common"
	"github.com/bobmcallan/railpulse-portal/internal/config"
	"github.com/bobmcallan/railpulse-portal/internal/dashboard"
	"github.com/bobmcallan/railpulse-portal/internal/dates"
	"github.com/bobmcallan/railpulse-portal/internal/handlers"
	"github.com/bobmcallan/railpulse-portal/internal/mcp"
	"github.com/bobmcallan/railpulse-portal/internal/symbols"
)

// Core is the domain stack shared by the portal server and the CLI.
type Core struct {
	Calendar *dates.Calendar
	Catalog  *symbols.Catalog
	Cache    *cache.ResponseCache
	Client   *client.Client

	logger *common.Logger
}

// App holds all application components and dependencies.
type App struct {
	*Core
	Config *config.Config
	Logger *common.Logger

	// HTTP handlers
	PageHandler         *handlers.PageHandler
	HealthHandler       *handlers.HealthHandler
	VersionHandler      *handlers.VersionHandler
	DashboardHandler    *handlers.DashboardHandler
	ServerHealthHandler *handlers.ServerHealthHandler
	ProxyHandler        *handlers.ProxyHandler
	AdminHandler        *handlers.AdminHandler // nil when no admin secret is configured
	MCPHandler          *mcp.Handler
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	// Validate environment setting
	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.IsDevMode() {
		logger.Warn().Msg("running in dev mode")
	} else if env != "prod" && env != "" {
		logger.Warn().
			Str("environment", cfg.Environment).
			Msg("unrecognized environment value, defaulting to prod behavior")
	}

	core, err := NewCore(cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Core = core
	a.initHandlers()

	logger.Info().
		Str("api_url", cfg.API.URL).
		Str("timezone", cfg.Dashboard.Timezone).
		Bool("admin_enabled", a.Client.AdminEnabled()).
		Msg("application initialization complete")

	return a, nil
}

// NewCore builds the calendar, symbol catalog, cache and API client.
func NewCore(cfg *config.Config, logger *common.Logger) (*Core, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	cal, err := dates.NewCalendar(cfg.Dashboard.Timezone)
	if err != nil {
		return nil, fmt.Errorf("dashboard timezone: %w", err)
	}

	catalog := symbols.DefaultCatalog()
	if path := cfg.Dashboard.SymbolsFile; path != "" {
		catalog, err = symbols.LoadCatalog(path)
		if err != nil {
			return nil, fmt.Errorf("symbols file: %w", err)
		}
	}
	if len(cfg.Dashboard.DefaultSymbols) > 0 {
		catalog = catalog.WithDefaults(cfg.Dashboard.DefaultSymbols)
	}

	c := &Core{
		Calendar: cal.WithWindow(cfg.Dashboard.FallbackDays),
		Catalog:  catalog,
		Cache:    cache.New(cfg.Cache.GetTTL(), cfg.Cache.MaxEntries),
		logger:   logger,
	}
	c.Client = client.New(cfg.API, cfg.Admin, logger, client.WithCache(c.Cache))
	return c, nil
}

// NewSession creates a dashboard session over the shared client.
func (c *Core) NewSession() *dashboard.Session {
	return dashboard.NewSession(c.Client, c.Calendar, c.Catalog, c.logger)
}

// Close releases cached responses.
func (c *Core) Close() error {
	if c.Cache != nil {
		c.Cache.Clear()
	}
	return nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	devMode := a.Config.IsDevMode()
	timeout := a.Config.API.GetTimeout()

	a.PageHandler = handlers.NewPageHandler(a.Logger, devMode)
	a.HealthHandler = handlers.NewHealthHandler(a.Logger)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.ServerHealthHandler = handlers.NewServerHealthHandler(a.Logger, a.Client)
	a.ProxyHandler = handlers.NewProxyHandler(a.Logger, a.Client.Fetcher(), a.Client.BaseURL())

	// A dashboard render runs up to a full fallback walk of sequential requests.
	walk := timeout * time.Duration(len(a.Calendar.FallbackWindow())+1)
	sessions := dashboard.NewStore(a.NewSession, dashboard.DefaultSessionTTL, dashboard.DefaultMaxSessions)
	a.DashboardHandler = handlers.NewDashboardHandler(a.Logger, devMode, sessions, walk,
		a.Config.Dashboard.GetMetricsRefresh(), a.Config.Dashboard.GetRecommendationsRefresh())

	if a.Client.AdminEnabled() {
		a.AdminHandler = handlers.NewAdminHandler(a.Logger, a.NewSession, 0)
	}

	a.MCPHandler = mcp.NewHandler(a.Client, a.Calendar, a.Catalog, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close closes all application resources.
func (a *App) Close() error {
	if a.Core == nil {
		return nil
	}
	return a.Core.Close()
}
