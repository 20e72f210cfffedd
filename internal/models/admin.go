package models

// AdminRunResponse is returned by POST /admin/run-today.
type AdminRunResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Results AdminRunResult `json:"results"`
}

// AdminRunResult carries per-symbol ETL counts.
type AdminRunResult struct {
	TradeDate        string      `json:"trade_date"`
	SymbolsRequested int         `json:"symbols_requested"`
	SymbolsProcessed int         `json:"symbols_processed"`
	SymbolsFailed    int         `json:"symbols_failed"`
	SymbolsNoData    int         `json:"symbols_no_data"`
	ProcessedSymbols []string    `json:"processed_symbols"`
	FailedSymbols    []string    `json:"failed_symbols"`
	NoDataSymbols    []string    `json:"no_data_symbols"`
	LLMAnalysis      LLMAnalysis `json:"llm_analysis"`
}

// LLMAnalysis summarises the recommendation step of an ETL run.
type LLMAnalysis struct {
	Success              bool   `json:"success"`
	Summary              string `json:"summary"`
	RecommendationsCount int    `json:"recommendations_count"`
}

// AdminRecommendationsResponse is returned by POST /admin/generate-recommendations.
type AdminRecommendationsResponse struct {
	Status          string                   `json:"status"`
	Message         string                   `json:"message"`
	Recommendations GeneratedRecommendations `json:"recommendations"`
}

// GeneratedRecommendations is the freshly generated set plus portfolio context.
type GeneratedRecommendations struct {
	Date            string               `json:"date"`
	Summary         string               `json:"summary"`
	Recommendations []RecommendationItem `json:"recommendations"`
	PortfolioData   PortfolioData        `json:"portfolio_data"`
}

// PortfolioData is the backend's view of the portfolio for a generation run.
type PortfolioData struct {
	SymbolsCount    int         `json:"symbols_count"`
	PortfolioReturn float64     `json:"portfolio_return"`
	TopGainer       SymbolMover `json:"top_gainer"`
	TopLoser        SymbolMover `json:"top_loser"`
}

// SymbolMover names a symbol and its return.
type SymbolMover struct {
	Symbol    string  `json:"symbol"`
	ReturnPct float64 `json:"return_pct"`
}

// AdminActionResult is the normalised outcome of either admin call.
type AdminActionResult struct {
	Action         string `json:"action"`
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	Date           string `json:"date,omitempty"`
	ProcessedCount int    `json:"processed_count"`
	FailedCount    int    `json:"failed_count"`
	NoDataCount    int    `json:"no_data_count"`
	LLMSummary     string `json:"llm_summary,omitempty"`
}

// Admin action names.
const (
	ActionRunETL                  = "run_etl"
	ActionGenerateRecommendations = "generate_recommendations"
)

// NewRunResult normalises an ETL response.
func NewRunResult(r *AdminRunResponse) AdminActionResult {
	return AdminActionResult{
		Action:         ActionRunETL,
		Success:        r.Success,
		Message:        r.Message,
		Date:           r.Results.TradeDate,
		ProcessedCount: r.Results.SymbolsProcessed,
		FailedCount:    r.Results.SymbolsFailed,
		NoDataCount:    r.Results.SymbolsNoData,
		LLMSummary:     r.Results.LLMAnalysis.Summary,
	}
}

// NewRecommendationsResult normalises a generation response. Success means status "success".
func NewRecommendationsResult(r *AdminRecommendationsResponse, date string) AdminActionResult {
	d := r.Recommendations.Date
	if d == "" {
		d = date
	}
	return AdminActionResult{
		Action:         ActionGenerateRecommendations,
		Success:        r.Status == "success",
		Message:        r.Message,
		Date:           d,
		ProcessedCount: len(r.Recommendations.Recommendations),
		LLMSummary:     r.Recommendations.Summary,
	}
}
