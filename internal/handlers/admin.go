package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bobmcallan/railpulse-portal/internal/common"
	"github.com/bobmcallan/railpulse-portal/internal/dates"
	"github.com/bobmcallan/railpulse-portal/internal/models"
)

// AdminHandler exposes the backend admin actions as portal JSON endpoints.
// It is only routed when an admin secret is configured.
type AdminHandler struct {
	logger     *common.Logger
	newSession SessionFactory
	timeout    time.Duration
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(logger *common.Logger, newSession SessionFactory, timeout time.Duration) *AdminHandler {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &AdminHandler{logger: logger, newSession: newSession, timeout: timeout}
}

// HandleRunETL handles POST /api/admin/run-etl?force=.
func (h *AdminHandler) HandleRunETL(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session := h.newSession()
	result, err := session.RunETL(ctx, ParseBool(r.URL.Query().Get("force")))
	h.respond(w, models.ActionRunETL, result, err)
}

// HandleGenerateRecommendations handles POST /api/admin/generate-recommendations?date=&force=.
func (h *AdminHandler) HandleGenerateRecommendations(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	date := r.URL.Query().Get("date")
	if date != "" && !dates.ValidDate(date) {
		WriteError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	session := h.newSession()
	session.SetQuery(date, nil)
	result, err := session.GenerateRecommendations(ctx, ParseBool(r.URL.Query().Get("force")))
	h.respond(w, models.ActionGenerateRecommendations, result, err)
}

func (h *AdminHandler) respond(w http.ResponseWriter, action string, result *models.AdminActionResult, err error) {
	if err != nil {
		if h.logger != nil {
			h.logger.Warn().Str("action", action).Str("error", err.Error()).Msg("admin action failed")
		}
		WriteError(w, StatusForError(err), err.Error())
		return
	}

	status := "ok"
	if !result.Success {
		status = "failed"
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"message": result.Message,
		"result":  result,
	})
}
