package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmcallan/railpulse-portal/internal/common"
	"github.com/bobmcallan/railpulse-portal/internal/dates"
	"github.com/bobmcallan/railpulse-portal/internal/models"
	"github.com/bobmcallan/railpulse-portal/internal/resolver"
	"github.com/bobmcallan/railpulse-portal/internal/symbols"
)

// toolset holds what the tool handlers share.
type toolset struct {
	backend Backend
	cal     *dates.Calendar
	catalog *symbols.Catalog
	logger  *common.Logger
}

// metricsResult is the get_metrics payload.
type metricsResult struct {
	RequestedDate   string                `json:"requested_date"`
	ActualDate      string                `json:"actual_date"`
	IsFallback      bool                  `json:"is_fallback"`
	Notice          string                `json:"notice,omitempty"`
	Symbols         []string              `json:"symbols"`
	PortfolioReturn string                `json:"portfolio_return"`
	TopGainer       models.SymbolReturn   `json:"top_gainer"`
	TopLoser        models.SymbolReturn   `json:"top_loser"`
	Prices          []models.PriceRecord  `json:"prices"`
	Metrics         []models.MetricRecord `json:"metrics"`
}

// errorResult creates an MCP error result.
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

// jsonResult marshals v as the tool's text content.
func jsonResult(v interface{}) *mcp.CallToolResult {
	out, err := json.Marshal(v)
	if err != nil {
		return errorResult("failed to marshal result")
	}
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(string(out))}}
}

// dateArg returns the "date" argument or today, rejecting malformed dates.
func (t *toolset) dateArg(r mcp.CallToolRequest) (string, error) {
	date := r.GetString("date", "")
	if date == "" {
		return t.cal.Today(), nil
	}
	if !dates.ValidDate(date) {
		return "", fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return date, nil
}

func (t *toolset) handleGetMetrics(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := t.dateArg(r)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	q := models.NewQuery(date, t.catalog.Parse(r.GetString("symbols", "")))

	out, err := resolver.New(t.backend, t.cal, t.logger).Resolve(ctx, q)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load market data: %v", err)), nil
	}

	ds := out.Dataset
	kpis := models.ComputeKPIs(ds.Metrics)
	res := metricsResult{
		RequestedDate:   ds.RequestedDate,
		ActualDate:      ds.ActualDate,
		IsFallback:      ds.IsFallback,
		Symbols:         ds.Symbols,
		PortfolioReturn: kpis.PortfolioReturn.StringFixed(2),
		TopGainer:       kpis.TopGainer,
		TopLoser:        kpis.TopLoser,
		Prices:          ds.Prices,
		Metrics:         ds.Metrics,
	}
	if out.Notice != nil {
		res.Notice = out.Notice.Message
	}
	return jsonResult(res), nil
}

func (t *toolset) handleGetRecommendations(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := t.dateArg(r)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	set, err := t.backend.FetchRecommendations(ctx, date)
	if err != nil {
		return errorResult(fmt.Sprintf("Unable to load recommendations: %v", err)), nil
	}
	return jsonResult(set), nil
}

func (t *toolset) handleGetBackendHealth(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	health, err := t.backend.FetchHealth(ctx)
	if err != nil {
		return jsonResult(map[string]string{"status": "down", "error": err.Error()}), nil
	}
	return jsonResult(health), nil
}

func (t *toolset) handleRunETL(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := t.backend.RunETLPipeline(ctx, r.GetBool("force_refresh", false))
	if err != nil {
		return errorResult(fmt.Sprintf("ETL failed: %v", err)), nil
	}
	result := models.NewRunResult(resp)
	if !result.Success {
		return errorResult("ETL pipeline failed. Check the logs for details."), nil
	}
	t.backend.InvalidateReads()
	return jsonResult(result), nil
}

func (t *toolset) handleGenerateRecommendations(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := t.dateArg(r)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	resp, err := t.backend.GenerateRecommendations(ctx, date, r.GetBool("force", false))
	if err != nil {
		return errorResult(fmt.Sprintf("Recommendation generation failed: %v", err)), nil
	}
	result := models.NewRecommendationsResult(resp, date)
	if !result.Success {
		return errorResult("Failed to generate recommendations. Check the logs for details."), nil
	}
	t.backend.InvalidateReads()
	return jsonResult(result), nil
}
