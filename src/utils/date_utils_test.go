package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthIndex(t *testing.T) {
	jan := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	dec := time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC)

	assert.Equal(t, 1, MonthIndex(jan)-MonthIndex(dec), "December to January should be one month apart")
	assert.Equal(t, 12, MonthIndex(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))-MonthIndex(jan))
}

func TestMonthStartAndNextMonthStart(t *testing.T) {
	d := time.Date(2024, 3, 17, 13, 45, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), MonthStart(d))
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), NextMonthStart(d))

	// December rolls into the next year.
	dec := time.Date(2024, 12, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), NextMonthStart(dec))
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-06")
	require.NoError(t, err)
	assert.Equal(t, 2024, m.Year())
	assert.Equal(t, time.June, m.Month())
	assert.Equal(t, 1, m.Day())

	_, err = ParseMonth("2024-06-01")
	assert.Error(t, err)
	_, err = ParseMonth("")
	assert.Error(t, err)

	assert.Equal(t, "2024-06", FormatMonth(m))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("02/29/2024")
	assert.Error(t, err)
}
