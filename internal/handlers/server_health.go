package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bobmcallan/railpulse-portal/internal/common"
	"github.com/bobmcallan/railpulse-portal/internal/models"
)

// HealthChecker queries the backend health endpoint.
type HealthChecker interface {
	FetchHealth(ctx context.Context) (*models.HealthResponse, error)
}

// ServerHealthHandler reports the health of the RailPulse backend.
type ServerHealthHandler struct {
	logger  *common.Logger
	checker HealthChecker
	timeout time.Duration
}

// NewServerHealthHandler creates a new server health handler.
func NewServerHealthHandler(logger *common.Logger, checker HealthChecker) *ServerHealthHandler {
	return &ServerHealthHandler{logger: logger, checker: checker, timeout: 3 * time.Second}
}

// ServeHTTP handles GET /api/server-health.
func (h *ServerHealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	health, err := h.checker.FetchHealth(ctx)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn().Str("error", err.Error()).Msg("backend health check failed")
		}
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down"})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"backend":   health.Status,
		"timestamp": health.Timestamp,
	})
}
