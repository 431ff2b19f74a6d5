package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"
)

const (
	outputPretty   = "pretty"
	outputMarkdown = "markdown"
	outputJSON     = "json"
)

// render writes v as indented JSON, or the markdown md either raw or styled
// for the terminal.
func render(w io.Writer, format, md string, v any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputMarkdown:
		_, err := io.WriteString(w, md)
		return err
	default:
		out, err := glamour.Render(md, "dark")
		if err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		_, err = io.WriteString(w, out)
		return err
	}
}

// formatMoney formats amount in the currency's minor units, e.g. "$15,050.00".
// Unknown currency codes fall back to a plain two-decimal figure.
func formatMoney(amount float64, code string) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "n/a"
	}
	if amount < 0 {
		return "-" + formatMoney(-amount, code)
	}
	code = strings.ToUpper(code)
	cur := money.GetCurrency(code)
	if cur == nil {
		return strconv.FormatFloat(amount, 'f', 2, 64) + " " + code
	}
	minor := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}

// formatSignedMoney is formatMoney with an explicit sign and "n/a" for an
// unknown amount.
func formatSignedMoney(amount *float64, code string) string {
	if amount == nil {
		return "n/a"
	}
	if *amount > 0 {
		return "+" + formatMoney(*amount, code)
	}
	return formatMoney(*amount, code)
}

func formatPercent(pct *float64) string {
	if pct == nil {
		return "n/a"
	}
	return decimal.NewFromFloat(*pct).StringFixed(2) + "%"
}

func formatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// mdEscape keeps cell text from breaking a markdown table row.
func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
