package mcp

import (
	"context"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/railpulse-portal/internal/common"
	"github.com/bobmcallan/railpulse-portal/internal/config"
	"github.com/bobmcallan/railpulse-portal/internal/dashboard"
	"github.com/bobmcallan/railpulse-portal/internal/dates"
	"github.com/bobmcallan/railpulse-portal/internal/models"
	"github.com/bobmcallan/railpulse-portal/internal/symbols"
)

// Backend is the RailPulse API surface the tools call.
type Backend interface {
	dashboard.Backend
	FetchHealth(ctx context.Context) (*models.HealthResponse, error)
}

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
	tools      []string
}

// NewServer builds an MCP server with the RailPulse tools and returns it with
// the registered tool names. Admin tools are registered only when the backend
// has an admin secret.
func NewServer(backend Backend, cal *dates.Calendar, catalog *symbols.Catalog, logger *common.Logger) (*mcpserver.MCPServer, []string) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if catalog == nil {
		catalog = symbols.DefaultCatalog()
	}

	mcpSrv := mcpserver.NewMCPServer(
		"railpulse-portal",
		config.GetVersion(),
		mcpserver.WithToolCapabilities(true),
	)

	t := &toolset{backend: backend, cal: cal, catalog: catalog, logger: logger}
	names := RegisterTools(mcpSrv, t)

	logger.Info().
		Int("tools", len(names)).
		Bool("admin_tools", backend.AdminEnabled()).
		Msg("MCP server initialized")

	return mcpSrv, names
}

// NewHandler creates the HTTP handler for the portal's /mcp endpoint.
func NewHandler(backend Backend, cal *dates.Calendar, catalog *symbols.Catalog, logger *common.Logger) *Handler {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	mcpSrv, names := NewServer(backend, cal, catalog, logger)

	return &Handler{
		streamable: mcpserver.NewStreamableHTTPServer(mcpSrv, mcpserver.WithStateLess(true)),
		logger:     logger,
		tools:      names,
	}
}

// ToolNames returns the registered tool names in registration order.
func (h *Handler) ToolNames() []string {
	out := make([]string, len(h.tools))
	copy(out, h.tools)
	return out
}

// ServeHTTP delegates to the mcp-go StreamableHTTPServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.streamable.ServeHTTP(w, r)
}
