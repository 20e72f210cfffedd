package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterTools adds the read tools, and the admin tools when enabled.
// It returns the names registered.
func RegisterTools(s *server.MCPServer, t *toolset) []string {
	type entry struct {
		tool    mcp.Tool
		handler server.ToolHandlerFunc
	}
	entries := []entry{
		{MetricsTool(), t.handleGetMetrics},
		{RecommendationsTool(), t.handleGetRecommendations},
		{HealthTool(), t.handleGetBackendHealth},
		{VersionTool(), t.handleGetVersion},
	}
	if t.backend.AdminEnabled() {
		entries = append(entries,
			entry{RunETLTool(), t.handleRunETL},
			entry{GenerateRecommendationsTool(), t.handleGenerateRecommendations},
		)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		s.AddTool(e.tool, e.handler)
		names = append(names, e.tool.Name)
	}
	return names
}

// MetricsTool describes get_metrics.
func MetricsTool() mcp.Tool {
	return mcp.NewTool("get_metrics",
		mcp.WithDescription("Get daily prices and metrics for symbols. For today's date, falls back to the most recent day with data within the fallback window."),
		mcp.WithString("date", mcp.Description("Trading date YYYY-MM-DD. Defaults to today in the business timezone.")),
		mcp.WithString("symbols", mcp.Description("Comma-separated tickers, e.g. AAPL,MSFT. Defaults to the configured selection.")),
	)
}

// RecommendationsTool describes get_recommendations.
func RecommendationsTool() mcp.Tool {
	return mcp.NewTool("get_recommendations",
		mcp.WithDescription("Get the AI market analysis for a date."),
		mcp.WithString("date", mcp.Description("Analysis date YYYY-MM-DD. Defaults to today.")),
	)
}

// HealthTool describes get_backend_health.
func HealthTool() mcp.Tool {
	return mcp.NewTool("get_backend_health",
		mcp.WithDescription("Check whether the RailPulse backend is reachable and healthy."),
	)
}

// VersionTool describes get_version.
func VersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get RailPulse portal version and backend status. Use this to verify connectivity."),
	)
}

// RunETLTool describes run_etl_pipeline.
func RunETLTool() mcp.Tool {
	return mcp.NewTool("run_etl_pipeline",
		mcp.WithDescription("Run the backend ETL pipeline for today. Admin only."),
		mcp.WithBoolean("force_refresh", mcp.Description("Re-fetch data even if today's data already exists.")),
	)
}

// GenerateRecommendationsTool describes generate_recommendations.
func GenerateRecommendationsTool() mcp.Tool {
	return mcp.NewTool("generate_recommendations",
		mcp.WithDescription("Generate AI recommendations for a date. Admin only."),
		mcp.WithString("date", mcp.Description("Date YYYY-MM-DD. Defaults to today.")),
		mcp.WithBoolean("force", mcp.Description("Regenerate even if recommendations already exist.")),
	)
}
