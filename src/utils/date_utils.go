package utils

import (
	"fmt"
	"time"
)

const (
	DefaultDateFormat = "2006-01-02"
	MonthFormat       = "2006-01"
)

// MonthIndex flattens a date to a linear month count (year*12 + month) so
// whole-month arithmetic is plain integer subtraction.
func MonthIndex(t time.Time) int {
	return t.Year()*12 + int(t.Month()) - 1
}

// MonthStart returns midnight UTC on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// NextMonthStart returns midnight UTC on the first day of the month after t.
func NextMonthStart(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, 0)
}

// ParseMonth parses a "YYYY-MM" string to the first day of that month.
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(MonthFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month '%s', expected YYYY-MM: %w", s, err)
	}
	return t, nil
}

// FormatMonth renders a date's month as "YYYY-MM".
func FormatMonth(t time.Time) string {
	return t.Format(MonthFormat)
}

// ParseDate parses a date string in the default format.
func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.Parse(DefaultDateFormat, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date '%s', expected YYYY-MM-DD: %w", dateStr, err)
	}
	return t, nil
}
