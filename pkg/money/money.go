// Package money provides BRL-centric amount parsing and formatting for
// spreadsheet cells, plus the percentage arithmetic used by the summary
// views. Amounts are decimal.Decimal end to end; floats never touch money.
package money

import (
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var currencySymbols = []string{"R$", "$", "€", "£"}

// ParseAmount converts a raw amount cell into a non-negative decimal.
//
// Cleaning rules follow the source spreadsheet template: the currency symbol
// and whitespace are stripped; a comma in the cleaned string means
// Brazilian-locale formatting ("1.234,56"), so dots are thousands separators
// and the comma is the decimal mark; otherwise the string is parsed as-is.
// The absolute value is always taken: sign never encodes direction, the
// transaction kind does.
//
// The boolean reports whether the cell carried an actual numeric value.
// Empty, symbol-only, and unparseable cells resolve to zero with ok=false so
// a placeholder row can never survive on its amount alone.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	cleaned := strings.TrimSpace(raw)
	for _, sym := range currencySymbols {
		cleaned = strings.ReplaceAll(cleaned, sym, "")
	}
	cleaned = strings.Join(strings.Fields(cleaned), "")
	if cleaned == "" {
		return decimal.Zero, false
	}

	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d.Abs(), true
}

// FormatBRL renders an amount for display ("R$1.234,56").
func FormatBRL(amount decimal.Decimal) string {
	cents := amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return gomoney.New(cents, gomoney.BRL).Display()
}

// PercentChange computes the period-over-period variation percentage.
// A zero previous baseline is reported as +100% when the current value is
// positive and 0% otherwise, never a division error.
func PercentChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		if current.IsPositive() {
			return decimal.NewFromInt(100)
		}
		return decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	return current.Sub(previous).Div(previous).Mul(hundred).Round(2)
}

// Share computes part as a percentage of whole, zero when whole is zero.
func Share(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2)
}
