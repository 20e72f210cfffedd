package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bobmcallan/railpulse-portal/internal/cache"
	"github.com/bobmcallan/railpulse-portal/internal/config"
)

const metricsBody = `{
	"date": "2025-01-15",
	"symbols": ["AAPL", "MSFT"],
	"prices": [
		{"trade_date":"2025-01-15","symbol":"AAPL","open":185.1,"high":188.2,"low":184.0,"close":187.5,"adj_close":187.5,"volume":51200000,"source":"yahoo"},
		{"trade_date":"2025-01-15","symbol":"MSFT","open":410,"high":415.5,"low":409.2,"close":412.37,"adj_close":412.37,"volume":21500000,"source":"yahoo"}
	],
	"metrics": [
		{"trade_date":"2025-01-15","symbol":"AAPL","return_pct":1.2,"ma7":183.4,"ma30":180.1,"rsi14":61.5,"vol7":1.1,"high20":190,"low20":175}
	]
}`

func newTestClient(url, secret string, opts ...Option) *Client {
	return New(config.APIConfig{URL: url, Timeout: "5s"}, config.AdminConfig{Secret: secret}, nil, opts...)
}

func TestFetchHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"healthy","timestamp":"2025-01-15T04:00:00Z"}`))
	}))
	defer srv.Close()

	h, err := newTestClient(srv.URL, "").FetchHealth(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if h.Status != "healthy" {
		t.Errorf("unexpected status %s", h.Status)
	}
}

func TestFetchMetrics_QueryAndDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metrics" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "AAPL,MSFT" {
			t.Errorf("expected symbol=AAPL,MSFT, got %q", got)
		}
		if got := r.URL.Query().Get("date"); got != "2025-01-15" {
			t.Errorf("expected date=2025-01-15, got %q", got)
		}
		w.Write([]byte(metricsBody))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL+"/", "").FetchMetrics(context.Background(), "2025-01-15", []string{"AAPL", "MSFT"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Prices) != 2 || len(resp.Metrics) != 1 {
		t.Fatalf("unexpected counts: %d prices, %d metrics", len(resp.Prices), len(resp.Metrics))
	}
	if resp.Prices[1].Close.String() != "412.37" {
		t.Errorf("unexpected close %s", resp.Prices[1].Close)
	}
}

func TestFetchMetrics_OmitsEmptyParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("expected no query params, got %q", r.URL.RawQuery)
		}
		w.Write([]byte(`{"date":"2025-01-15","symbols":[],"prices":[],"metrics":[]}`))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL, "").FetchMetrics(context.Background(), "", nil); err != nil {
		t.Fatal(err)
	}
}

func TestFetchRecommendations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recommendations" || r.URL.Query().Get("date") != "2025-01-14" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		w.Write([]byte(`{"date":"2025-01-14","scope":"portfolio","summary":"Calm","recommendations":["Hold"],"created_at":"2025-01-14T10:00:00Z"}`))
	}))
	defer srv.Close()

	set, err := newTestClient(srv.URL, "").FetchRecommendations(context.Background(), "2025-01-14")
	if err != nil {
		t.Fatal(err)
	}
	if set.Summary != "Calm" || len(set.Lines()) != 1 {
		t.Errorf("unexpected set %+v", set)
	}
}

func TestAdmin_DisabledRaisesConfigErrorWithoutNetwork(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	if c.AdminEnabled() {
		t.Fatal("admin must be disabled without a secret")
	}

	_, err := c.RunETLPipeline(context.Background(), false)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError, got %v", err)
	}
	_, err = c.GenerateRecommendations(context.Background(), "2025-01-15", true)
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError, got %v", err)
	}
	if !strings.Contains(cfgErr.Error(), "APP_SECRET not configured") {
		t.Errorf("unexpected message %q", cfgErr.Error())
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("expected no network calls, got %d", got)
	}
}

func TestRunETLPipeline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/admin/run-today" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("app_secret") != "s3cret" {
			t.Errorf("expected app_secret, got %q", q.Get("app_secret"))
		}
		if q.Get("force_refresh") != "true" {
			t.Errorf("expected force_refresh=true, got %q", q.Get("force_refresh"))
		}
		w.Write([]byte(`{"success":true,"message":"done","results":{"symbols_processed":4}}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(srv.URL, "s3cret").RunETLPipeline(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Results.SymbolsProcessed != 4 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestRunETLPipeline_OmitsForceWhenFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("force_refresh") {
			t.Error("force_refresh must be omitted when false")
		}
		w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL, "s3cret").RunETLPipeline(context.Background(), false); err != nil {
		t.Fatal(err)
	}
}

func TestGenerateRecommendations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/admin/generate-recommendations" || q.Get("date") != "2025-01-15" || q.Get("force") != "" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"detail":"Recommendations already exist"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, "s3cret").GenerateRecommendations(context.Background(), "2025-01-15", false)
	if err == nil || err.Error() != "Recommendations already exist" {
		t.Errorf("expected detail error, got %v", err)
	}
}

func TestReadCache_ServesAndInvalidates(t *testing.T) {
	var metricsCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/metrics":
			atomic.AddInt32(&metricsCalls, 1)
			w.Write([]byte(metricsBody))
		case "/admin/run-today":
			w.Write([]byte(`{"success":true}`))
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "s3cret", WithCache(cache.New(time.Minute, 16)))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.FetchMetrics(ctx, "2025-01-15", []string{"AAPL"}); err != nil {
			t.Fatal(err)
		}
	}
	if got := atomic.LoadInt32(&metricsCalls); got != 1 {
		t.Errorf("expected 1 backend call with cache, got %d", got)
	}

	if _, err := c.RunETLPipeline(ctx, false); err != nil {
		t.Fatal(err)
	}
	if _, err := c.FetchMetrics(ctx, "2025-01-15", []string{"AAPL"}); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt32(&metricsCalls); got != 2 {
		t.Errorf("expected admin call to invalidate cache, got %d calls", got)
	}
}

func TestReadCache_FailuresNotCached(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"No data"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "", WithCache(cache.New(time.Minute, 16)))
	for i := 0; i < 2; i++ {
		if _, err := c.FetchMetrics(context.Background(), "2025-01-15", nil); err == nil {
			t.Fatal("expected error")
		}
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("failures must not be cached, got %d calls", got)
	}
}

func TestRead_UsesRetryWhenConfigured(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(metricsBody))
	}))
	defer srv.Close()

	c := New(config.APIConfig{URL: srv.URL, Timeout: "5s", Retries: 2, RetryDelay: "1ms"}, config.AdminConfig{}, nil)
	if _, err := c.FetchMetrics(context.Background(), "2025-01-15", nil); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 calls, got %d", got)
	}
}

func TestReadCache_GenerateRecommendationsKeepsMetrics(t *testing.T) {
	var metricsCalls, recCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/metrics":
			atomic.AddInt32(&metricsCalls, 1)
			w.Write([]byte(metricsBody))
		case "/recommendations":
			atomic.AddInt32(&recCalls, 1)
			w.Write([]byte(`{"date":"2025-01-15","summary":"Steady","recommendations":["Hold"]}`))
		case "/admin/generate-recommendations":
			w.Write([]byte(`{"status":"success"}`))
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "s3cret", WithCache(cache.New(time.Minute, 16)))
	ctx := context.Background()

	read := func() {
		t.Helper()
		if _, err := c.FetchMetrics(ctx, "2025-01-15", []string{"AAPL"}); err != nil {
			t.Fatal(err)
		}
		if _, err := c.FetchRecommendations(ctx, "2025-01-15"); err != nil {
			t.Fatal(err)
		}
	}

	read()
	if _, err := c.GenerateRecommendations(ctx, "2025-01-15", false); err != nil {
		t.Fatal(err)
	}
	read()

	if got := atomic.LoadInt32(&metricsCalls); got != 1 {
		t.Errorf("metrics should stay cached, got %d calls", got)
	}
	if got := atomic.LoadInt32(&recCalls); got != 2 {
		t.Errorf("recommendations should be refetched, got %d calls", got)
	}
}
