package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is the storage format for every timestamp field: local time,
// 24-hour clock, no offset.
const TimestampLayout = "2006-01-02 15:04:05"

// ParseAmount parses a user supplied number. Surrounding spaces are ignored and
// a comma is accepted as the decimal separator. Empty or non-numeric input is a
// ValidationError, never zero.
func ParseAmount(field, raw string) (decimal.Decimal, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return decimal.Zero, Invalid(field, "is required")
	}
	if strings.Count(text, ",") == 1 && !strings.Contains(text, ".") {
		text = strings.Replace(text, ",", ".", 1)
	}
	value, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, Invalid(field, "%q is not a number", raw)
	}
	return value, nil
}

// RequirePositive rejects zero and negative values.
func RequirePositive(field string, value decimal.Decimal) error {
	if !value.IsPositive() {
		return Invalid(field, "must be greater than zero")
	}
	return nil
}

// RequireNonNegative rejects negative values.
func RequireNonNegative(field string, value decimal.Decimal) error {
	if value.IsNegative() {
		return Invalid(field, "must not be negative")
	}
	return nil
}

// RequireText rejects blank strings.
func RequireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return Invalid(field, "is required")
	}
	return nil
}

// FormatTimestamp renders t in loc using TimestampLayout.
func FormatTimestamp(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(TimestampLayout)
}

// ParseTimestamp reads a stored timestamp as wall-clock time in loc.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(TimestampLayout, strings.TrimSpace(value), loc)
}

// Percent returns part / whole * 100 rounded to two decimals, or zero when
// whole is zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2)
}
