package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmcallan/railpulse-portal/internal/config"
)

// versionInfo holds version fields for the portal.
type versionInfo struct {
	Version string `json:"version"`
	Build   string `json:"build"`
	Commit  string `json:"commit"`
}

// versionResult combines portal version info with backend reachability.
type versionResult struct {
	Portal        versionInfo `json:"railpulse_portal"`
	BackendStatus string      `json:"backend_status"`
}

// handleGetVersion reports the portal version; an unreachable backend is reported, not an error.
func (t *toolset) handleGetVersion(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := versionResult{
		Portal: versionInfo{
			Version: config.GetVersion(),
			Build:   config.GetBuild(),
			Commit:  config.GetGitCommit(),
		},
		BackendStatus: "unreachable",
	}
	if health, err := t.backend.FetchHealth(ctx); err == nil && health != nil {
		res.BackendStatus = health.Status
	}
	return jsonResult(res), nil
}
