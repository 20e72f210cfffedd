package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/bobmcallan/railpulse-portal/internal/cache"
	"github.com/bobmcallan/railpulse-portal/internal/common"
	"github.com/bobmcallan/railpulse-portal/internal/config"
	"github.com/bobmcallan/railpulse-portal/internal/models"
)

// Client exposes the RailPulse backend endpoints.
// Admin availability is fixed at construction from the admin secret.
type Client struct {
	baseURL    string
	secret     string
	retries    int
	retryDelay time.Duration
	fetcher    *Fetcher
	cache      *cache.ResponseCache
	logger     *common.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithCache serves metrics and recommendations reads from c while fresh.
func WithCache(c *cache.ResponseCache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithFetcher replaces the transport.
func WithFetcher(f *Fetcher) Option {
	return func(cl *Client) { cl.fetcher = f }
}

// New creates a Client for the configured backend.
func New(api config.APIConfig, admin config.AdminConfig, logger *common.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	c := &Client{
		baseURL:    strings.TrimRight(api.URL, "/"),
		retries:    api.Retries,
		retryDelay: api.GetRetryDelay(),
		logger:     logger,
	}
	if admin.Enabled() {
		c.secret = strings.TrimSpace(admin.Secret)
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetcher == nil {
		c.fetcher = NewFetcher(api.GetTimeout(), logger)
	}
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Fetcher returns the underlying transport.
func (c *Client) Fetcher() *Fetcher { return c.fetcher }

// AdminEnabled reports whether admin calls may be made.
func (c *Client) AdminEnabled() bool { return c.secret != "" }

// FetchHealth calls GET /healthz. Never cached.
func (c *Client) FetchHealth(ctx context.Context) (*models.HealthResponse, error) {
	u, err := BuildURL(c.baseURL, "/healthz", nil)
	if err != nil {
		return nil, err
	}
	var out models.HealthResponse
	if err := c.fetcher.FetchJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchMetrics calls GET /metrics with the symbols comma-joined under "symbol".
func (c *Client) FetchMetrics(ctx context.Context, date string, symbols []string) (*models.MetricsResponse, error) {
	params := map[string]string{"date": date}
	if len(symbols) > 0 {
		params["symbol"] = strings.Join(symbols, ",")
	}
	var out models.MetricsResponse
	if err := c.read(ctx, "/metrics", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchRecommendations calls GET /recommendations.
func (c *Client) FetchRecommendations(ctx context.Context, date string) (*models.RecommendationSet, error) {
	var out models.RecommendationSet
	if err := c.read(ctx, "/recommendations", map[string]string{"date": date}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunETLPipeline triggers POST /admin/run-today. Fails with *ConfigError
// before any network call when admin is disabled.
func (c *Client) RunETLPipeline(ctx context.Context, forceRefresh bool) (*models.AdminRunResponse, error) {
	if !c.AdminEnabled() {
		return nil, ErrAdminDisabled
	}
	params := map[string]string{"app_secret": c.secret}
	if forceRefresh {
		params["force_refresh"] = "true"
	}
	var out models.AdminRunResponse
	if err := c.admin(ctx, "/admin/run-today", params, &out, ""); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateRecommendations triggers POST /admin/generate-recommendations for date.
func (c *Client) GenerateRecommendations(ctx context.Context, date string, force bool) (*models.AdminRecommendationsResponse, error) {
	if !c.AdminEnabled() {
		return nil, ErrAdminDisabled
	}
	params := map[string]string{"app_secret": c.secret, "date": date}
	if force {
		params["force"] = "true"
	}
	var out models.AdminRecommendationsResponse
	if err := c.admin(ctx, "/admin/generate-recommendations", params, &out, "/recommendations"); err != nil {
		return nil, err
	}
	return &out, nil
}

// InvalidateReads drops every cached read so the next fetch reaches the backend.
func (c *Client) InvalidateReads() {
	c.cache.Clear()
}

func (c *Client) read(ctx context.Context, endpoint string, params map[string]string, out any) error {
	u, err := BuildURL(c.baseURL, endpoint, params)
	if err != nil {
		return err
	}

	key := cache.MakeKey(http.MethodGet, u)
	if hit, ok := c.cache.Get(key); ok {
		c.logger.Debug().Str("url", u).Msg("backend read served from cache")
		return json.Unmarshal(hit.Body, out)
	}

	var raw json.RawMessage
	if c.retries > 0 {
		err = c.fetcher.FetchJSONWithRetry(ctx, u, &raw, c.retries, c.retryDelay)
	} else {
		err = c.fetcher.FetchJSON(ctx, u, &raw)
	}
	if err != nil {
		return err
	}

	if err := decode(u, raw, out); err != nil {
		return err
	}
	c.cache.Set(key, &cache.CachedResponse{StatusCode: http.StatusOK, Body: raw})
	return nil
}

// admin posts to endpoint, then drops the cached reads under invalidates,
// or every cached read when invalidates is empty.
func (c *Client) admin(ctx context.Context, endpoint string, params map[string]string, out any, invalidates string) error {
	u, err := BuildURL(c.baseURL, endpoint, params)
	if err != nil {
		return err
	}
	err = c.fetcher.PostJSON(ctx, u, out)
	// Pipeline runs change what reads return, whatever their outcome.
	if invalidates == "" {
		c.InvalidateReads()
	} else {
		n := c.cache.InvalidatePrefix(invalidates)
		c.logger.Debug().Str("endpoint", invalidates).Int("removed", n).Msg("cached reads invalidated")
	}
	return err
}
