// Package symbols holds the selectable ticker catalog and the dashboard's symbols parameter codec.
package symbols

import (
	"fmt"
	"os"
	"strings"

	"github.com/bobmcallan/railpulse-portal/internal/models"
	"gopkg.in/yaml.v3"
)

// Option is one selectable ticker.
type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Catalog is the list of selectable tickers plus the default selection.
type Catalog struct {
	Options  []Option `yaml:"options"`
	Defaults []string `yaml:"defaults"`
}

// DefaultSymbols is the selection used when none is given.
var DefaultSymbols = []string{"AAPL", "MSFT", "SPY", "BTC-USD"}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Options: []Option{
			{Value: "AAPL", Label: "Apple Inc."},
			{Value: "MSFT", Label: "Microsoft Corp."},
			{Value: "SPY", Label: "SPDR S&P 500 ETF"},
			{Value: "BTC-USD", Label: "Bitcoin USD"},
			{Value: "INFY", Label: "Infosys Ltd."},
			{Value: "RELIANCE", Label: "Reliance Industries"},
			{Value: "GOOGL", Label: "Alphabet Inc."},
			{Value: "TSLA", Label: "Tesla Inc."},
			{Value: "AMZN", Label: "Amazon.com Inc."},
			{Value: "NVDA", Label: "NVIDIA Corp."},
		},
		Defaults: append([]string(nil), DefaultSymbols...),
	}
}

// LoadCatalog reads a YAML catalog file. An empty path yields the built-in catalog.
// Defaults missing from the file fall back to the built-in default selection.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read symbols file %s: %w", path, err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse symbols file %s: %w", path, err)
	}
	if len(c.Options) == 0 {
		return nil, fmt.Errorf("symbols file %s defines no options", path)
	}
	for i := range c.Options {
		c.Options[i].Value = strings.ToUpper(strings.TrimSpace(c.Options[i].Value))
		if c.Options[i].Label == "" {
			c.Options[i].Label = c.Options[i].Value
		}
	}
	c.Defaults = models.NormalizeSymbols(c.Defaults)
	if len(c.Defaults) == 0 {
		c.Defaults = append([]string(nil), DefaultSymbols...)
	}
	return &c, nil
}

// WithDefaults returns a copy of c whose default selection is replaced, when non-empty.
func (c *Catalog) WithDefaults(defaults []string) *Catalog {
	out := *c
	if d := models.NormalizeSymbols(defaults); len(d) > 0 {
		out.Defaults = d
	}
	return &out
}

// Label returns the display label for a ticker, or the ticker itself.
func (c *Catalog) Label(symbol string) string {
	for _, o := range c.Options {
		if o.Value == symbol {
			return o.Label
		}
	}
	return symbol
}

// Parse decodes a comma-joined symbols parameter. Blank input yields the defaults.
func (c *Catalog) Parse(param string) []string {
	parsed := models.NormalizeSymbols(strings.Split(param, ","))
	if len(parsed) == 0 {
		return append([]string(nil), c.Defaults...)
	}
	return parsed
}

// Format encodes a selection for the symbols parameter.
func Format(symbols []string) string {
	return strings.Join(models.NormalizeSymbols(symbols), ",")
}
