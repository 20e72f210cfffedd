package config

// DefaultAPIURL is the production RailPulse backend.
const DefaultAPIURL = "https://railpulse-production.up.railway.app"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "prod",
		Server: ServerConfig{
			Port: 4241,
			Host: "localhost",
		},
		API: APIConfig{
			URL:        DefaultAPIURL,
			Timeout:    "15s",
			Retries:    0,
			RetryDelay: "1s",
		},
		Dashboard: DashboardConfig{
			Timezone:               "Asia/Kolkata",
			FallbackDays:           7,
			DefaultSymbols:         []string{"AAPL", "MSFT", "SPY", "BTC-USD"},
			MetricsRefresh:         "5m",
			RecommendationsRefresh: "10m",
		},
		Cache: CacheConfig{
			TTL:        "30s",
			MaxEntries: 256,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Outputs:    []string{"console"},
			FilePath:   "logs/railpulse-portal.log",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
	}
}
