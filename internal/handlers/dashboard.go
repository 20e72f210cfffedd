package handlers

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/bobmcallan/railpulse-portal/internal/common"
	"github.com/bobmcallan/railpulse-portal/internal/config"
	"github.com/bobmcallan/railpulse-portal/internal/dashboard"
	"github.com/bobmcallan/railpulse-portal/internal/dates"
	"github.com/bobmcallan/railpulse-portal/internal/models"
)

// SessionFactory returns a fresh dashboard session.
type SessionFactory func() *dashboard.Session

// SessionCookie carries the dashboard session ID between page loads.
const SessionCookie = "railpulse_session"

// DashboardHandler renders the market dashboard and runs its admin actions.
// Each browser keeps its session across reloads, so a reload revalidates the
// cycles that are due instead of starting over.
type DashboardHandler struct {
	logger       *common.Logger
	templates    *template.Template
	devMode      bool
	sessions     *dashboard.Store
	timeout      time.Duration
	metricsEvery time.Duration
	recsEvery    time.Duration
}

// NewDashboardHandler creates a new dashboard handler. metricsEvery also sets
// how often the rendered page reloads itself.
func NewDashboardHandler(logger *common.Logger, devMode bool, sessions *dashboard.Store, timeout, metricsEvery, recsEvery time.Duration) *DashboardHandler {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if metricsEvery <= 0 {
		metricsEvery = 5 * time.Minute
	}
	if recsEvery <= 0 {
		recsEvery = 10 * time.Minute
	}
	return &DashboardHandler{
		logger:       logger,
		templates:    LoadTemplates(FindPagesDir()),
		devMode:      devMode,
		sessions:     sessions,
		timeout:      timeout,
		metricsEvery: metricsEvery,
		recsEvery:    recsEvery,
	}
}

// ServeHTTP handles GET /dashboard?date=&symbols=&refresh= and
// POST /dashboard with form field action=run_etl|generate_recommendations.
// A manual refresh and an admin action both redirect back to the plain GET URL.
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	date := r.Form.Get("date")
	if date != "" && !dates.ValidDate(date) {
		http.Error(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	session := h.session(w, r)
	session.SetQuery(date, session.Catalog().Parse(r.Form.Get("symbols")))

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if r.Method == http.MethodPost {
		if !session.AdminEnabled() {
			http.NotFound(w, r)
			return
		}
		force := ParseBool(r.Form.Get("force"))
		switch action := r.Form.Get("action"); action {
		case models.ActionRunETL:
			_, _ = session.RunETL(ctx, force)
		case models.ActionGenerateRecommendations:
			_, _ = session.GenerateRecommendations(ctx, force)
		default:
			http.Error(w, "Unknown action", http.StatusBadRequest)
			return
		}
		http.Redirect(w, r, dashboardURL(r), http.StatusSeeOther)
		return
	}

	if ParseBool(r.Form.Get("refresh")) {
		_ = session.Refresh(ctx)
		http.Redirect(w, r, dashboardURL(r), http.StatusSeeOther)
		return
	}

	if session.Dataset() == nil {
		if err := session.Load(ctx); err != nil && h.logger != nil && !errors.Is(err, context.Canceled) {
			h.logger.Warn().Str("date", session.Query().Date).Str("error", err.Error()).Msg("dashboard metrics unavailable")
		}
	} else {
		session.RevalidateDue(ctx, h.metricsEvery, h.recsEvery)
	}

	data := map[string]interface{}{
		"Page":           "dashboard",
		"DevMode":        h.devMode,
		"PortalVersion":  config.GetVersion(),
		"RefreshSeconds": int(h.metricsEvery.Seconds()),
		"View":           session.View(),
	}

	w.Header().Set("Cache-Control", "no-store")
	if err := h.templates.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		if h.logger != nil {
			h.logger.Error().Str("template", "dashboard.html").Str("error", err.Error()).Msg("failed to render dashboard")
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// session returns the caller's session, issuing a cookie for a new one.
func (h *DashboardHandler) session(w http.ResponseWriter, r *http.Request) *dashboard.Session {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	newID, session := h.sessions.Acquire(id)
	if newID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    newID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return session
}

// dashboardURL is the GET URL for the request's date and symbols.
func dashboardURL(r *http.Request) string {
	v := url.Values{}
	for _, key := range []string{"date", "symbols"} {
		if s := r.Form.Get(key); s != "" {
			v.Set(key, s)
		}
	}
	if len(v) == 0 {
		return "/dashboard"
	}
	return "/dashboard?" + v.Encode()
}
