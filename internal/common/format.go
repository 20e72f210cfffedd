package common

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/guregu/null/v6"
	"github.com/shopspring/decimal"
)

// Dash is shown wherever a value is missing.
const Dash = "—"

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)
)

// FormatCurrency formats an amount as US dollars with comma separators: "$1,234.50".
func FormatCurrency(v decimal.Decimal) string {
	f := v.Round(2).InexactFloat64()
	if f < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -f)
	}
	return "$" + humanize.FormatFloat("#,###.##", f)
}

// FormatVolume abbreviates a traded volume: 1.2B, 3.4M, 5.6K, or a plain comma-separated number.
func FormatVolume(v decimal.Decimal) string {
	switch {
	case v.GreaterThanOrEqual(billion):
		return v.Div(billion).StringFixed(1) + "B"
	case v.GreaterThanOrEqual(million):
		return v.Div(million).StringFixed(1) + "M"
	case v.GreaterThanOrEqual(thousand):
		return v.Div(thousand).StringFixed(1) + "K"
	}
	return humanize.Comma(v.Round(0).IntPart())
}

// FormatSignedPct formats a percentage with a "+" prefix for gains: "+1.25%", "-0.40%", "0.00%".
func FormatSignedPct(v float64) string {
	if v > 0 {
		return fmt.Sprintf("+%.2f%%", v)
	}
	return fmt.Sprintf("%.2f%%", v)
}

// FormatNullPct formats a nullable percentage, or Dash when absent.
func FormatNullPct(v null.Float) string {
	if !v.Valid {
		return Dash
	}
	return FormatSignedPct(v.Float64)
}

// FormatNullFloat formats a nullable number to two decimals, or Dash when absent.
func FormatNullFloat(v null.Float) string {
	if !v.Valid {
		return Dash
	}
	return humanize.FormatFloat("#,###.##", v.Float64)
}
