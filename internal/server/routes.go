package server

import (
	"net/http"

	"github.com/bobmcallan/railpulse-portal/internal/handlers"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// UI page routes (HTML templates)
	mux.HandleFunc("/", s.app.PageHandler.ServePage("landing.html", "landing"))
	mux.Handle("/dashboard", s.app.DashboardHandler)

	// Static files (CSS, JS, images)
	mux.HandleFunc("/static/", s.app.PageHandler.StaticFileHandler)

	// MCP endpoint (JSON-RPC over HTTP)
	if s.app.MCPHandler != nil {
		mux.Handle("/mcp", s.app.MCPHandler)
	}

	// API routes
	mux.HandleFunc("/api/health", s.app.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", s.app.VersionHandler.ServeHTTP)
	mux.HandleFunc("/api/server-health", s.app.ServerHealthHandler.ServeHTTP)
	mux.HandleFunc(handlers.ProxyPrefix+"/", func(w http.ResponseWriter, r *http.Request) {
		RouteResourceCollection(w, r, s.app.ProxyHandler.ServeHTTP, s.app.ProxyHandler.ServeHTTP)
	})

	// Admin routes exist only when an admin secret is configured.
	if admin := s.app.AdminHandler; admin != nil {
		mux.HandleFunc("/api/admin/run-etl", func(w http.ResponseWriter, r *http.Request) {
			RouteByMethod(w, r, MethodRouter{http.MethodPost: admin.HandleRunETL})
		})
		mux.HandleFunc("/api/admin/generate-recommendations", func(w http.ResponseWriter, r *http.Request) {
			RouteByMethod(w, r, MethodRouter{http.MethodPost: admin.HandleGenerateRecommendations})
		})
	}

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not Found","message":"The requested endpoint does not exist"}`))
}
