package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/bobmcallan/railpulse-portal/internal/dashboard"
	"github.com/bobmcallan/railpulse-portal/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	bannerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#F59E0B")).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)
)

// renderNotices prints and styles pending notices.
func renderNotices(w io.Writer, notices []dashboard.NoticeView) {
	for _, n := range notices {
		style := successStyle
		if n.Level == string(models.NoticeError) {
			style = errorStyle
		}
		fmt.Fprintln(w, style.Render(n.Message))
	}
}

// renderMetrics prints the market overview: banner, KPIs and the metrics table.
func renderMetrics(w io.Writer, v dashboard.View) {
	fmt.Fprintln(w, titleStyle.Render("RailPulse Dashboard"))
	fmt.Fprintln(w, subtleStyle.Render("Currently showing: "+v.DisplayDate))

	if v.Banner != nil {
		fmt.Fprintln(w, bannerStyle.Render(v.Banner.Heading+"\n"+v.Banner.Message))
	}
	if v.Error != "" {
		fmt.Fprintln(w, errorStyle.Render("Error: "+v.Error))
		return
	}
	if !v.HasData {
		fmt.Fprintln(w, subtleStyle.Render("No market data available"))
		return
	}

	fmt.Fprintf(w, "Portfolio return: %s   Top gainer: %s %s   Top loser: %s %s\n",
		v.KPIs.PortfolioReturn,
		v.KPIs.TopGainer, v.KPIs.TopGainerReturn,
		v.KPIs.TopLoser, v.KPIs.TopLoserReturn)

	fmt.Fprintln(w, metricsTable(v.Rows))
}

func metricsTable(rows []dashboard.RowView) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Symbol", "Open", "High", "Low", "Close", "Volume", "Return", "MA7", "RSI14").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 6 && row >= 0 && row < len(rows) {
				switch {
				case rows[row].Positive:
					return cellStyle.Foreground(lipgloss.Color("#10B981"))
				case rows[row].Negative:
					return cellStyle.Foreground(lipgloss.Color("#EF4444"))
				}
			}
			return cellStyle
		})
	for _, r := range rows {
		t.Row(r.Symbol, r.Open, r.High, r.Low, r.Close, r.Volume, r.Return, r.MA7, r.RSI14)
	}
	return t.String()
}

// renderRecommendations prints the AI analysis panel.
func renderRecommendations(w io.Writer, r dashboard.RecsView) {
	fmt.Fprintln(w, titleStyle.Render("AI Analysis"))
	switch {
	case r.Unavailable:
		fmt.Fprintln(w, subtleStyle.Render("Unable to load recommendations"))
		return
	case r.Empty:
		fmt.Fprintln(w, subtleStyle.Render("No recommendations available for this date"))
		return
	}
	if r.Summary != "" {
		fmt.Fprintln(w, r.Summary)
	}
	for i, item := range r.Items {
		fmt.Fprintf(w, "%d. %s\n", i+1, item)
	}
	meta := []string{"Analysis Date: " + r.AnalysisDate}
	if r.Generated != "" {
		meta = append(meta, "Generated: "+r.Generated)
	}
	if r.Freshness != "" {
		meta = append(meta, "("+r.Freshness+")")
	}
	fmt.Fprintln(w, subtleStyle.Render(strings.Join(meta, "  ")))
}

// renderAdminResult prints the normalised outcome of an admin action.
func renderAdminResult(w io.Writer, r *models.AdminActionResult) {
	if r == nil {
		return
	}
	style := successStyle
	status := "ok"
	if !r.Success {
		style = errorStyle
		status = "failed"
	}
	fmt.Fprintf(w, "%s %s\n", style.Render("["+status+"]"), r.Message)
	fmt.Fprintf(w, "processed=%d failed=%d no_data=%d\n", r.ProcessedCount, r.FailedCount, r.NoDataCount)
	if r.LLMSummary != "" {
		fmt.Fprintln(w, subtleStyle.Render(r.LLMSummary))
	}
}
