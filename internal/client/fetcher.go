// Package client talks to the RailPulse backend.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bobmcallan/railpulse-portal/internal/common"
	"github.com/bobmcallan/railpulse-portal/internal/tracing"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// RequestError is a non-2xx backend response.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string { return e.Message }

// ClientError reports whether the backend rejected the request (4xx).
func (e *RequestError) ClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// ConfigError means required configuration is missing; no request was attempted.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// ErrAdminDisabled is returned by admin calls when no admin secret is configured.
var ErrAdminDisabled = &ConfigError{Message: "Admin functionality not available - APP_SECRET not configured"}

// errorBody is the backend's error envelope.
type errorBody struct {
	Detail string `json:"detail"`
}

// Fetcher performs single JSON requests against the backend.
type Fetcher struct {
	http    *resty.Client
	logger  *common.Logger
	onRetry func(attempt int, wait time.Duration, err error)
}

// NewFetcher creates a Fetcher whose requests are bounded by timeout.
func NewFetcher(timeout time.Duration, logger *common.Logger) *Fetcher {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{logger})
	return &Fetcher{http: c, logger: logger}
}

// FetchJSON issues one GET and decodes a 2xx body into out.
// Non-2xx responses fail with *RequestError. No retry, no caching.
func (f *Fetcher) FetchJSON(ctx context.Context, rawURL string, out any) error {
	body, err := f.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return err
	}
	return decode(rawURL, body, out)
}

// PostJSON issues one POST without a body and decodes a 2xx body into out.
func (f *Fetcher) PostJSON(ctx context.Context, rawURL string, out any) error {
	body, err := f.do(ctx, http.MethodPost, rawURL)
	if err != nil {
		return err
	}
	return decode(rawURL, body, out)
}

// FetchJSONWithRetry behaves like FetchJSON but retries failures other than 4xx,
// waiting baseDelay * 2^attempt between tries, for at most maxRetries+1 attempts.
// The last error is returned when every attempt fails.
func (f *Fetcher) FetchJSONWithRetry(ctx context.Context, rawURL string, out any, maxRetries int, baseDelay time.Duration) error {
	if maxRetries < 0 {
		maxRetries = 0
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 24 * time.Hour
	b.MaxElapsedTime = 0
	b.Reset()

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx)

	attempt := 0
	op := func() error {
		err := f.FetchJSON(ctx, rawURL, out)
		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.ClientError() {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		f.logger.Debug().
			Str("url", redactURL(rawURL)).
			Int("attempt", attempt).
			Int64("wait_ms", wait.Milliseconds()).
			Str("error", err.Error()).
			Msg("retrying backend request")
		if f.onRetry != nil {
			f.onRetry(attempt, wait, err)
		}
		attempt++
	}

	return backoff.RetryNotify(op, policy, notify)
}

// Response is a raw backend reply, used by the proxy.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Forward sends method to rawURL with an optional JSON body and returns the reply verbatim.
func (f *Fetcher) Forward(ctx context.Context, method, rawURL string, body []byte) (*Response, error) {
	req := f.http.R().SetContext(ctx).SetHeader("Content-Type", "application/json")
	if len(body) > 0 {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to reach backend: %w", err)
	}
	return &Response{
		StatusCode:  resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}, nil
}

func (f *Fetcher) do(ctx context.Context, method, rawURL string) ([]byte, error) {
	ctx, span := tracing.StartSpan(ctx, "client.fetch")
	defer span.End()

	safeURL := redactURL(rawURL)
	span.SetAttributes(attribute.String("http.method", method), attribute.String("http.url", safeURL))

	start := time.Now()
	resp, err := f.http.R().SetContext(ctx).Execute(method, rawURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		f.logger.Warn().Str("method", method).Str("url", safeURL).Str("error", err.Error()).Msg("backend request failed")
		return nil, fmt.Errorf("request to %s failed: %w", safeURL, err)
	}

	status := resp.StatusCode()
	span.SetAttributes(attribute.Int("http.status_code", status))
	f.logger.Debug().
		Str("method", method).
		Str("url", safeURL).
		Int("status", status).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("backend request")

	if status < 200 || status > 299 {
		reqErr := &RequestError{StatusCode: status, Message: errorMessage(status, resp.Body())}
		span.SetStatus(codes.Error, reqErr.Message)
		return nil, reqErr
	}
	return resp.Body(), nil
}

// errorMessage prefers the backend's {detail} text over the generic status line.
func errorMessage(status int, body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Detail != "" {
		return eb.Detail
	}
	return fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
}

func decode(rawURL string, body []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", redactURL(rawURL), err)
	}
	return nil
}

// BuildURL joins endpoint onto base and appends only the non-empty params.
func BuildURL(base, endpoint string, params map[string]string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url %q: %w", base, err)
	}
	ref, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	u = u.ResolveReference(ref)

	q := u.Query()
	for k, v := range params {
		if v != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// redactURL hides the admin secret before a URL reaches logs or spans.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("app_secret") {
		q.Set("app_secret", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// restyLogger routes resty's internal messages through the portal logger.
type restyLogger struct {
	l *common.Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) {
	r.l.Error().Msg(fmt.Sprintf(format, v...))
}

func (r restyLogger) Warnf(format string, v ...interface{}) {
	r.l.Warn().Msg(fmt.Sprintf(format, v...))
}

func (r restyLogger) Debugf(format string, v ...interface{}) {
	r.l.Debug().Msg(fmt.Sprintf(format, v...))
}
