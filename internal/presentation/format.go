// Package presentation renders ledger data for chat delivery: soles with two
// decimals and day-first dates.
package presentation

import (
	"time"

	"github.com/shopspring/decimal"
)

const displayDateLayout = "02/01/2006"

// FormatCurrency renders amount as "S/ 1234.50".
func FormatCurrency(amount decimal.Decimal) string {
	return "S/ " + amount.StringFixed(2)
}

// FormatDate renders t as DD/MM/YYYY.
func FormatDate(t time.Time) string {
	return t.Format(displayDateLayout)
}

// FormatKg renders a weight with two decimals.
func FormatKg(kg decimal.Decimal) string {
	return kg.StringFixed(2) + "kg"
}

// FormatPercent renders a percentage with two decimals.
func FormatPercent(p decimal.Decimal) string {
	return p.StringFixed(2) + "%"
}
