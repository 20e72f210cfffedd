package models

import (
	"sort"

	"github.com/shopspring/decimal"
)

// SymbolReturn pairs a symbol with its daily return.
type SymbolReturn struct {
	Symbol string
	Return float64
}

// KPIData summarises the displayed metrics.
type KPIData struct {
	PortfolioReturn decimal.Decimal
	TopGainer       SymbolReturn
	TopLoser        SymbolReturn
}

// ComputeKPIs averages return_pct across metrics (null counts as zero) and
// picks the best and worst symbol. With no metrics the symbols are "—".
func ComputeKPIs(metrics []MetricRecord) KPIData {
	if len(metrics) == 0 {
		return KPIData{
			PortfolioReturn: decimal.Zero,
			TopGainer:       SymbolReturn{Symbol: "—"},
			TopLoser:        SymbolReturn{Symbol: "—"},
		}
	}

	sum := decimal.Zero
	sorted := make([]MetricRecord, len(metrics))
	copy(sorted, metrics)
	for _, m := range metrics {
		sum = sum.Add(decimal.NewFromFloat(m.ReturnPct.Float64))
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ReturnPct.Float64 > sorted[j].ReturnPct.Float64
	})

	top, bottom := sorted[0], sorted[len(sorted)-1]
	return KPIData{
		PortfolioReturn: sum.Div(decimal.NewFromInt(int64(len(metrics)))),
		TopGainer:       SymbolReturn{Symbol: top.Symbol, Return: top.ReturnPct.Float64},
		TopLoser:        SymbolReturn{Symbol: bottom.Symbol, Return: bottom.ReturnPct.Float64},
	}
}

// MetricsRow joins a price with its optional metric for tabular display.
type MetricsRow struct {
	Price     PriceRecord
	Metric    MetricRecord
	HasMetric bool
}

// JoinRows pairs every price with the metric of the same symbol, keeping price order.
func JoinRows(d *ResolvedDataset) []MetricsRow {
	if d.Empty() {
		return nil
	}
	rows := make([]MetricsRow, 0, len(d.Prices))
	for _, p := range d.Prices {
		m, ok := d.MetricFor(p.Symbol)
		rows = append(rows, MetricsRow{Price: p, Metric: m, HasMetric: ok})
	}
	return rows
}
