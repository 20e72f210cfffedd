package dashboard

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/railpulse-portal/internal/common"
	"github.com/bobmcallan/railpulse-portal/internal/models"
)

// View is a render-ready snapshot of a session.
type View struct {
	Date         string
	Today        string
	IsToday      bool
	DisplayDate  string
	SymbolParam  string
	Options      []SymbolOption
	AdminEnabled bool

	Error  string
	Banner *Banner

	HasData bool
	KPIs    KPIView
	Rows    []RowView
	Prices  []ChartBar
	Returns []ChartBar

	Recs    RecsView
	Notices []NoticeView
}

// SymbolOption is one entry of the symbol selector.
type SymbolOption struct {
	Value    string
	Label    string
	Selected bool
}

// Banner explains that fallback data is on screen.
type Banner struct {
	Heading string
	Message string
}

// KPIView holds the formatted headline figures.
type KPIView struct {
	PortfolioReturn   string
	PortfolioPositive bool
	TopGainer         string
	TopGainerReturn   string
	TopLoser          string
	TopLoserReturn    string
}

// RowView is one formatted metrics table row.
type RowView struct {
	Symbol   string
	Label    string
	Open     string
	High     string
	Low      string
	Close    string
	Volume   string
	Return   string
	MA7      string
	RSI14    string
	Positive bool
	Negative bool
}

// ChartBar is one bar of a horizontal bar chart. Width is a percentage of the largest magnitude.
type ChartBar struct {
	Symbol   string
	Label    string
	Width    int
	Negative bool
}

// RecsView is the recommendations panel.
type RecsView struct {
	Unavailable  bool
	Empty        bool
	Summary      string
	Items        []string
	AnalysisDate string
	Generated    string
	Freshness    string
}

// NoticeView is a notice with its display time in milliseconds.
type NoticeView struct {
	Level      string
	Message    string
	DurationMS int64
}

// View builds a snapshot of the session and drains its pending notices.
func (s *Session) View() View {
	s.mu.RLock()
	q := s.query
	dataset := s.dataset
	metricsErr := s.metricsErr
	recs := s.recs
	recsErr := s.recsErr
	s.mu.RUnlock()

	v := View{
		Date:         q.Date,
		Today:        s.cal.Today(),
		IsToday:      s.cal.IsToday(q.Date),
		DisplayDate:  q.Date,
		SymbolParam:  q.SymbolParam(),
		AdminEnabled: s.backend.AdminEnabled(),
	}

	selected := make(map[string]bool, len(q.Symbols))
	for _, sym := range q.Symbols {
		selected[sym] = true
	}
	for _, opt := range s.catalog.Options {
		v.Options = append(v.Options, SymbolOption{Value: opt.Value, Label: opt.Label, Selected: selected[opt.Value]})
	}

	if metricsErr != nil {
		v.Error = metricsErr.Error()
	}

	if dataset != nil {
		v.DisplayDate = dataset.ActualDate
		if dataset.IsFallback {
			v.Banner = &Banner{
				Heading: "Using fallback data",
				Message: fmt.Sprintf("No data available for %s. Showing data from %s instead.",
					s.cal.DaysAgoLabel(dataset.RequestedDate), s.cal.DaysAgoLabel(dataset.ActualDate)),
			}
		}
	}

	if !dataset.Empty() {
		v.HasData = true
		v.KPIs = kpiView(models.ComputeKPIs(dataset.Metrics))
		v.Rows = s.rowViews(dataset)
		v.Prices = priceBars(dataset.Prices)
		v.Returns = returnBars(dataset)
	}

	v.Recs = s.recsView(recs, recsErr)

	for _, n := range s.notices.Drain() {
		v.Notices = append(v.Notices, NoticeView{
			Level:      string(n.Level),
			Message:    n.Message,
			DurationMS: n.Duration.Milliseconds(),
		})
	}
	return v
}

func kpiView(k models.KPIData) KPIView {
	return KPIView{
		PortfolioReturn:   k.PortfolioReturn.StringFixed(2) + "%",
		PortfolioPositive: k.PortfolioReturn.Sign() >= 0,
		TopGainer:         k.TopGainer.Symbol,
		TopGainerReturn:   signedOrDash(k.TopGainer),
		TopLoser:          k.TopLoser.Symbol,
		TopLoserReturn:    signedOrDash(k.TopLoser),
	}
}

func signedOrDash(r models.SymbolReturn) string {
	if r.Symbol == common.Dash {
		return common.Dash
	}
	return common.FormatSignedPct(r.Return)
}

func (s *Session) rowViews(d *models.ResolvedDataset) []RowView {
	rows := models.JoinRows(d)
	out := make([]RowView, 0, len(rows))
	for _, r := range rows {
		rv := RowView{
			Symbol: r.Price.Symbol,
			Label:  s.catalog.Label(r.Price.Symbol),
			Open:   common.FormatCurrency(r.Price.Open),
			High:   common.FormatCurrency(r.Price.High),
			Low:    common.FormatCurrency(r.Price.Low),
			Close:  common.FormatCurrency(r.Price.Close),
			Volume: common.FormatVolume(r.Price.Volume),
			Return: common.Dash,
			MA7:    common.Dash,
			RSI14:  common.Dash,
		}
		if r.HasMetric {
			rv.Return = common.FormatNullPct(r.Metric.ReturnPct)
			rv.MA7 = common.FormatNullFloat(r.Metric.MA7)
			rv.RSI14 = common.FormatNullFloat(r.Metric.RSI14)
			rv.Positive = r.Metric.ReturnPct.Valid && r.Metric.ReturnPct.Float64 > 0
			rv.Negative = r.Metric.ReturnPct.Valid && r.Metric.ReturnPct.Float64 < 0
		}
		out = append(out, rv)
	}
	return out
}

func priceBars(prices []models.PriceRecord) []ChartBar {
	max := decimal.Zero
	for _, p := range prices {
		if p.Close.Abs().GreaterThan(max) {
			max = p.Close.Abs()
		}
	}
	bars := make([]ChartBar, 0, len(prices))
	for _, p := range prices {
		width := 0
		if max.IsPositive() {
			width = int(p.Close.Abs().Div(max).Mul(decimal.NewFromInt(100)).IntPart())
		}
		bars = append(bars, ChartBar{Symbol: p.Symbol, Label: common.FormatCurrency(p.Close), Width: width})
	}
	return bars
}

// returnBars follows price order; symbols without a return value are left out.
func returnBars(d *models.ResolvedDataset) []ChartBar {
	var max float64
	type point struct {
		symbol string
		value  float64
	}
	var points []point
	for _, p := range d.Prices {
		m, ok := d.MetricFor(p.Symbol)
		if !ok || !m.ReturnPct.Valid {
			continue
		}
		points = append(points, point{p.Symbol, m.ReturnPct.Float64})
		max = math.Max(max, math.Abs(m.ReturnPct.Float64))
	}
	bars := make([]ChartBar, 0, len(points))
	for _, pt := range points {
		width := 0
		if max > 0 {
			width = int(math.Abs(pt.value) / max * 100)
		}
		bars = append(bars, ChartBar{
			Symbol:   pt.symbol,
			Label:    common.FormatSignedPct(pt.value),
			Width:    width,
			Negative: pt.value < 0,
		})
	}
	return bars
}

func (s *Session) recsView(set *models.RecommendationSet, err error) RecsView {
	if err != nil {
		return RecsView{Unavailable: true}
	}
	if set == nil || (set.Summary == "" && len(set.Recommendations) == 0) {
		return RecsView{Empty: true}
	}
	rv := RecsView{
		Summary:      set.Summary,
		Items:        set.Lines(),
		AnalysisDate: s.cal.DisplayFormat(set.Date),
		Freshness:    s.cal.DaysAgoLabel(set.Date),
	}
	if set.CreatedAt != "" {
		rv.Generated = s.cal.DisplayFormat(set.CreatedAt)
	}
	return rv
}
