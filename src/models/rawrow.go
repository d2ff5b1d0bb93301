package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RawRow is one untyped CSV data row keyed by normalized header text. It only
// lives for the duration of a single upload.
type RawRow map[string]string

// NormalizeHeader lowercases a header and collapses surrounding/internal
// whitespace so lookups tolerate the spacing variations seen across export
// versions.
func NormalizeHeader(h string) string {
	return strings.Join(strings.Fields(strings.ToLower(h)), " ")
}

// NewRawRow builds a RawRow from a header list and a record. Records shorter
// than the header list map only the cells present.
func NewRawRow(headers []string, record []string) RawRow {
	row := make(RawRow, len(headers))
	for i, h := range headers {
		if i >= len(record) {
			break
		}
		row[NormalizeHeader(h)] = record[i]
	}
	return row
}

// Get tries each header alias in order and returns the first value whose
// column is present in the row, trimmed. The boolean reports column presence,
// not value non-emptiness.
func (r RawRow) Get(aliases ...string) (string, bool) {
	for _, alias := range aliases {
		if v, ok := r[NormalizeHeader(alias)]; ok {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

var moneyCleaner = strings.NewReplacer("$", "", ",", "", " ", "")

// ParseMoney parses a monetary CSV cell, tolerating currency symbols and
// thousands separators. It returns nil for absent or unparsable values so
// that "unknown" stays distinguishable from zero downstream.
func ParseMoney(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(moneyCleaner.Replace(s))
	if err != nil {
		return nil
	}
	f, _ := d.Float64()
	return &f
}
