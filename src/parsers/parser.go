package parsers

import (
	"github.com/username/btmdesk/backend/src/models"
)

// Parser maps raw CSV rows of one platform into canonical transactions.
// The fee lookup returns the configured fee percentage for a raw ticker
// string; Bitaccess exports carry no fee column, so that mapper derives the
// fee from it. The Genesis mapper ignores the lookup.
type Parser interface {
	Parse(rows []models.RawRow, fees func(rawTicker string) float64) ([]models.CanonicalTransaction, error)
}
