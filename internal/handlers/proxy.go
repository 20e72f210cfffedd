package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/bobmcallan/railpulse-portal/internal/client"
	"github.com/bobmcallan/railpulse-portal/internal/common"
)

// ProxyPrefix is the portal path under which backend paths are forwarded.
const ProxyPrefix = "/api/proxy"

const maxProxyBody = 1 << 20

// Forwarder relays a raw request to the backend.
type Forwarder interface {
	Forward(ctx context.Context, method, rawURL string, body []byte) (*client.Response, error)
}

// ProxyHandler forwards GET and POST requests to the backend, returning
// status and body verbatim.
type ProxyHandler struct {
	logger    *common.Logger
	forwarder Forwarder
	baseURL   string
}

// NewProxyHandler creates a proxy to baseURL.
func NewProxyHandler(logger *common.Logger, forwarder Forwarder, baseURL string) *ProxyHandler {
	return &ProxyHandler{logger: logger, forwarder: forwarder, baseURL: strings.TrimRight(baseURL, "/")}
}

// ServeHTTP handles GET|POST /api/proxy/<path...>.
func (h *ProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Cache-Control", "no-store")

	target := h.baseURL + "/" + strings.TrimLeft(strings.TrimPrefix(r.URL.Path, ProxyPrefix), "/")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	var body []byte
	if r.Method == http.MethodPost && r.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, maxProxyBody))
		if err != nil {
			WriteJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid request body"})
			return
		}
	}

	resp, err := h.forwarder.Forward(r.Context(), r.Method, target, body)
	if err != nil {
		if h.logger != nil {
			h.logger.Error().Str("method", r.Method).Str("path", r.URL.Path).Str("error", err.Error()).Msg("proxy request failed")
		}
		WriteJSON(w, http.StatusInternalServerError, map[string]string{"detail": "Failed to fetch data from API"})
		return
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}
