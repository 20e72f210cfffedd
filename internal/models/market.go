package models

import (
	"strings"

	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// HealthResponse is the backend /healthz payload.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// PriceRecord is one daily OHLCV row for a symbol.
type PriceRecord struct {
	TradeDate string          `json:"trade_date"`
	Symbol    string          `json:"symbol"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	AdjClose  decimal.Decimal `json:"adj_close"`
	Volume    decimal.Decimal `json:"volume"`
	Source    string          `json:"source"`
}

// MetricRecord holds derived indicators for a symbol on a trade date.
// Any indicator may be null when the backend lacks enough history.
type MetricRecord struct {
	TradeDate string     `json:"trade_date"`
	Symbol    string     `json:"symbol"`
	ReturnPct null.Float `json:"return_pct"`
	MA7       null.Float `json:"ma7"`
	MA30      null.Float `json:"ma30"`
	RSI14     null.Float `json:"rsi14"`
	Vol7      null.Float `json:"vol7"`
	High20    null.Float `json:"high20"`
	Low20     null.Float `json:"low20"`
}

// MetricsResponse is the backend /metrics payload.
type MetricsResponse struct {
	Date    string         `json:"date"`
	Symbols []string       `json:"symbols"`
	Prices  []PriceRecord  `json:"prices"`
	Metrics []MetricRecord `json:"metrics"`
}

// DatedSymbolQuery identifies one dashboard fetch cycle.
type DatedSymbolQuery struct {
	Date    string
	Symbols []string
}

// NewQuery builds a query with symbols upper-cased, trimmed and de-duplicated in order.
func NewQuery(date string, symbols []string) DatedSymbolQuery {
	return DatedSymbolQuery{Date: strings.TrimSpace(date), Symbols: NormalizeSymbols(symbols)}
}

// NormalizeSymbols upper-cases and trims tickers, dropping blanks and repeats.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// SymbolParam returns the comma-joined symbol list used in query strings.
func (q DatedSymbolQuery) SymbolParam() string {
	return strings.Join(q.Symbols, ",")
}

// Key identifies the query for change detection.
func (q DatedSymbolQuery) Key() string {
	return q.Date + "|" + q.SymbolParam()
}

// ResolvedDataset is the metrics data actually displayed for a query.
// IsFallback is true iff ActualDate differs from RequestedDate.
type ResolvedDataset struct {
	RequestedDate string
	ActualDate    string
	Symbols       []string
	Prices        []PriceRecord
	Metrics       []MetricRecord
	IsFallback    bool
}

// Empty reports whether the dataset carries no price rows.
func (d *ResolvedDataset) Empty() bool {
	return d == nil || len(d.Prices) == 0
}

// MetricFor returns the metric row for symbol, if present.
func (d *ResolvedDataset) MetricFor(symbol string) (MetricRecord, bool) {
	if d == nil {
		return MetricRecord{}, false
	}
	for _, m := range d.Metrics {
		if m.Symbol == symbol {
			return m, true
		}
	}
	return MetricRecord{}, false
}
