package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	API         APIConfig       `toml:"api"`
	Admin       AdminConfig     `toml:"admin"`
	Dashboard   DashboardConfig `toml:"dashboard"`
	Cache       CacheConfig     `toml:"cache"`
	Logging     LoggingConfig   `toml:"logging"`
	Tracing     TracingConfig   `toml:"tracing"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// APIConfig contains RailPulse backend settings.
type APIConfig struct {
	URL        string `toml:"url"`
	Timeout    string `toml:"timeout"`
	Retries    int    `toml:"retries"`
	RetryDelay string `toml:"retry_delay"`
}

// GetTimeout parses and returns the per-request timeout.
func (c *APIConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 15*time.Second)
}

// GetRetryDelay parses and returns the base delay for retried reads.
func (c *APIConfig) GetRetryDelay() time.Duration {
	return parseDuration(c.RetryDelay, time.Second)
}

// AdminConfig holds the admin secret. Admin features are enabled only when it is set.
type AdminConfig struct {
	Secret string `toml:"secret"`
}

// Enabled reports whether admin actions are available.
func (c AdminConfig) Enabled() bool {
	return strings.TrimSpace(c.Secret) != ""
}

// DashboardConfig contains dashboard behaviour settings.
type DashboardConfig struct {
	Timezone               string   `toml:"timezone"`
	FallbackDays           int      `toml:"fallback_days"`
	DefaultSymbols         []string `toml:"default_symbols"`
	SymbolsFile            string   `toml:"symbols_file"`
	MetricsRefresh         string   `toml:"metrics_refresh"`
	RecommendationsRefresh string   `toml:"recommendations_refresh"`
}

// GetMetricsRefresh returns the metrics revalidation interval.
func (c *DashboardConfig) GetMetricsRefresh() time.Duration {
	return parseDuration(c.MetricsRefresh, 5*time.Minute)
}

// GetRecommendationsRefresh returns the recommendations revalidation interval.
func (c *DashboardConfig) GetRecommendationsRefresh() time.Duration {
	return parseDuration(c.RecommendationsRefresh, 10*time.Minute)
}

// CacheConfig controls the read-response cache used by the API client.
// A zero or unparseable TTL disables caching.
type CacheConfig struct {
	TTL        string `toml:"ttl"`
	MaxEntries int    `toml:"max_entries"`
}

// GetTTL parses and returns the cache TTL.
func (c *CacheConfig) GetTTL() time.Duration {
	return parseDuration(c.TTL, 0)
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// TracingConfig toggles OpenTelemetry span export.
type TracingConfig struct {
	Enabled bool `toml:"enabled"`
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> .env -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// A missing .env is normal; real environment variables always win.
	_ = godotenv.Load()

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies RAILPULSE_* environment variable overrides to config.
// The NEXT_PUBLIC_* names are honoured for deployments carried over from the web client.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("RAILPULSE_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("RAILPULSE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("RAILPULSE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if url := os.Getenv("NEXT_PUBLIC_API_URL"); url != "" {
		config.API.URL = url
	}
	if url := os.Getenv("RAILPULSE_API_URL"); url != "" {
		config.API.URL = url
	}
	if timeout := os.Getenv("RAILPULSE_API_TIMEOUT"); timeout != "" {
		config.API.Timeout = timeout
	}
	if secret := os.Getenv("NEXT_PUBLIC_APP_SECRET"); secret != "" {
		config.Admin.Secret = secret
	}
	if secret := os.Getenv("RAILPULSE_APP_SECRET"); secret != "" {
		config.Admin.Secret = secret
	}
	if tz := os.Getenv("RAILPULSE_TIMEZONE"); tz != "" {
		config.Dashboard.Timezone = tz
	}
	if symbols := os.Getenv("RAILPULSE_DEFAULT_SYMBOLS"); symbols != "" {
		config.Dashboard.DefaultSymbols = splitList(symbols)
	}
	if file := os.Getenv("RAILPULSE_SYMBOLS_FILE"); file != "" {
		config.Dashboard.SymbolsFile = file
	}
	if ttl := os.Getenv("RAILPULSE_CACHE_TTL"); ttl != "" {
		config.Cache.TTL = ttl
	}
	if level := os.Getenv("RAILPULSE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("RAILPULSE_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if tracing := os.Getenv("RAILPULSE_TRACING_ENABLED"); tracing != "" {
		if b, err := strconv.ParseBool(tracing); err == nil {
			config.Tracing.Enabled = b
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate returns a list of human-readable problems with mandatory settings.
func (c *Config) Validate() []string {
	var issues []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port must be between 1 and 65535 (got %d)", c.Server.Port))
	}
	if strings.TrimSpace(c.API.URL) == "" {
		issues = append(issues, "api.url is required (or set RAILPULSE_API_URL)")
	} else if !strings.HasPrefix(c.API.URL, "http://") && !strings.HasPrefix(c.API.URL, "https://") {
		issues = append(issues, fmt.Sprintf("api.url must start with http:// or https:// (got %q)", c.API.URL))
	}
	if _, err := time.LoadLocation(c.Dashboard.Timezone); err != nil {
		issues = append(issues, fmt.Sprintf("dashboard.timezone %q is not a known IANA zone", c.Dashboard.Timezone))
	}
	if c.Dashboard.FallbackDays < 1 {
		issues = append(issues, "dashboard.fallback_days must be at least 1")
	}
	if c.API.Retries < 0 {
		issues = append(issues, "api.retries must not be negative")
	}
	return issues
}

// IsDevMode reports whether the portal runs with environment = "dev".
func (c *Config) IsDevMode() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "dev")
}
