package models

import (
	"encoding/json"
	"testing"
)

func TestRecommendationSet_DecodesMixedItems(t *testing.T) {
	body := `{
		"date": "2025-01-14",
		"scope": "portfolio",
		"summary": "Mixed session.",
		"recommendations": [
			"Hold SPY",
			{"title": "Trim AAPL", "action": "Reduce position by 10%"},
			{"title": "", "action": "Watch BTC-USD volatility"}
		],
		"created_at": "2025-01-14T09:30:00Z"
	}`

	var set RecommendationSet
	if err := json.Unmarshal([]byte(body), &set); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	want := []string{"Hold SPY", "Trim AAPL: Reduce position by 10%", "Watch BTC-USD volatility"}
	got := set.Lines()
	if len(got) != len(want) {
		t.Fatalf("expected %d lines, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, got[i], want[i])
		}
	}
	if set.Recommendations[0].Kind != RecommendationText || set.Recommendations[1].Kind != RecommendationAction {
		t.Error("unexpected item kinds")
	}
}

func TestRecommendationItem_RejectsNumbers(t *testing.T) {
	var item RecommendationItem
	if err := json.Unmarshal([]byte(`42`), &item); err == nil {
		t.Error("expected error for numeric item")
	}
}

func TestRecommendationItem_MarshalKeepsShape(t *testing.T) {
	items := []RecommendationItem{
		{Kind: RecommendationText, Text: "Hold"},
		{Kind: RecommendationAction, Title: "Buy", Action: "NVDA"},
	}
	data, err := json.Marshal(items)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `["Hold",{"title":"Buy","action":"NVDA"}]` {
		t.Errorf("unexpected JSON: %s", data)
	}
}

func TestMetricRecord_NullFields(t *testing.T) {
	var m MetricRecord
	if err := json.Unmarshal([]byte(`{"symbol":"AAPL","return_pct":1.5,"ma30":null}`), &m); err != nil {
		t.Fatal(err)
	}
	if !m.ReturnPct.Valid || m.ReturnPct.Float64 != 1.5 {
		t.Errorf("expected return_pct 1.5, got %+v", m.ReturnPct)
	}
	if m.MA30.Valid {
		t.Error("expected ma30 to be null")
	}
	if m.RSI14.Valid {
		t.Error("expected missing rsi14 to be null")
	}
}

func TestPriceRecord_DecimalFields(t *testing.T) {
	var p PriceRecord
	if err := json.Unmarshal([]byte(`{"symbol":"MSFT","close":412.37,"volume":21500000}`), &p); err != nil {
		t.Fatal(err)
	}
	if p.Close.String() != "412.37" {
		t.Errorf("expected close 412.37, got %s", p.Close)
	}
	if p.Volume.IntPart() != 21500000 {
		t.Errorf("expected volume 21500000, got %s", p.Volume)
	}
}

func TestNewQuery_NormalizesSymbols(t *testing.T) {
	q := NewQuery(" 2025-01-15 ", []string{"aapl", " MSFT", "", "AAPL", "btc-usd"})
	if q.Date != "2025-01-15" {
		t.Errorf("unexpected date %q", q.Date)
	}
	if q.SymbolParam() != "AAPL,MSFT,BTC-USD" {
		t.Errorf("unexpected symbols %q", q.SymbolParam())
	}
	if q.Key() != "2025-01-15|AAPL,MSFT,BTC-USD" {
		t.Errorf("unexpected key %q", q.Key())
	}
}

func TestResolvedDataset_Empty(t *testing.T) {
	var nilSet *ResolvedDataset
	if !nilSet.Empty() {
		t.Error("nil dataset should be empty")
	}
	d := &ResolvedDataset{Prices: []PriceRecord{{Symbol: "SPY"}}}
	if d.Empty() {
		t.Error("dataset with prices should not be empty")
	}
}

func TestComputeKPIs(t *testing.T) {
	var metrics []MetricRecord
	if err := json.Unmarshal([]byte(`[
		{"symbol":"AAPL","return_pct":2.0},
		{"symbol":"MSFT","return_pct":-1.0},
		{"symbol":"SPY","return_pct":null},
		{"symbol":"BTC-USD","return_pct":3.0}
	]`), &metrics); err != nil {
		t.Fatal(err)
	}

	k := ComputeKPIs(metrics)
	if k.PortfolioReturn.StringFixed(2) != "1.00" {
		t.Errorf("expected mean 1.00, got %s", k.PortfolioReturn.StringFixed(2))
	}
	if k.TopGainer.Symbol != "BTC-USD" || k.TopGainer.Return != 3.0 {
		t.Errorf("unexpected top gainer %+v", k.TopGainer)
	}
	if k.TopLoser.Symbol != "MSFT" || k.TopLoser.Return != -1.0 {
		t.Errorf("unexpected top loser %+v", k.TopLoser)
	}
}

func TestComputeKPIs_NoMetrics(t *testing.T) {
	k := ComputeKPIs(nil)
	if !k.PortfolioReturn.IsZero() {
		t.Errorf("expected zero return, got %s", k.PortfolioReturn)
	}
	if k.TopGainer.Symbol != "—" || k.TopLoser.Symbol != "—" {
		t.Errorf("expected dash symbols, got %+v / %+v", k.TopGainer, k.TopLoser)
	}
}

func TestJoinRows_PriceWithoutMetric(t *testing.T) {
	d := &ResolvedDataset{
		Prices:  []PriceRecord{{Symbol: "AAPL"}, {Symbol: "TSLA"}},
		Metrics: []MetricRecord{{Symbol: "AAPL"}},
	}
	rows := JoinRows(d)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if !rows[0].HasMetric {
		t.Error("expected AAPL to have a metric")
	}
	if rows[1].HasMetric {
		t.Error("expected TSLA to have no metric")
	}
}

func TestNewRunResult(t *testing.T) {
	var resp AdminRunResponse
	body := `{"success":true,"message":"ok","results":{"trade_date":"2025-01-15","symbols_processed":4,"symbols_failed":1,"symbols_no_data":2,"llm_analysis":{"success":true,"summary":"Bullish"}}}`
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatal(err)
	}
	r := NewRunResult(&resp)
	if !r.Success || r.ProcessedCount != 4 || r.FailedCount != 1 || r.NoDataCount != 2 {
		t.Errorf("unexpected result %+v", r)
	}
	if r.LLMSummary != "Bullish" || r.Action != ActionRunETL {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestNewRecommendationsResult(t *testing.T) {
	resp := AdminRecommendationsResponse{Status: "skipped", Message: "already exists"}
	r := NewRecommendationsResult(&resp, "2025-01-15")
	if r.Success {
		t.Error("expected non-success status to be unsuccessful")
	}
	if r.Date != "2025-01-15" {
		t.Errorf("expected requested date fallback, got %q", r.Date)
	}
}
