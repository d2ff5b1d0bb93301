package bitaccess

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/btmdesk/backend/src/models"
)

func row(pairs map[string]string) models.RawRow {
	headers := make([]string, 0, len(pairs))
	record := make([]string, 0, len(pairs))
	for h, v := range pairs {
		headers = append(headers, h)
		record = append(record, v)
	}
	return models.NewRawRow(headers, record)
}

func flatFee(pct float64) func(string) float64 {
	return func(string) float64 { return pct }
}

func TestParseDerivesFee(t *testing.T) {
	p := NewParser()
	rows := []models.RawRow{row(map[string]string{
		"id":              "b-1",
		"atm.id":          "atm-9",
		"coin.type":       "BTC",
		"inserted.amount": "100",
		"created.at":      "2024-05-01T10:00:00Z",
	})}

	txs, err := p.Parse(rows, flatFee(0.10))
	require.NoError(t, err)
	require.Len(t, txs, 1)

	tx := txs[0]
	assert.Equal(t, models.PlatformBitaccess, tx.Platform)
	require.NotNil(t, tx.FeeAmount)
	assert.InDelta(t, 10.00, *tx.FeeAmount, 1e-9, "100 at a 0.10 fee rate is a 10.00 fee")
}

func TestParseFeeRoundsToCents(t *testing.T) {
	p := NewParser()
	rows := []models.RawRow{row(map[string]string{
		"id":              "b-2",
		"inserted.amount": "33.33",
		"coin.type":       "LTC",
		"created.at":      "2024-05-01",
	})}

	txs, err := p.Parse(rows, flatFee(0.085))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.NotNil(t, txs[0].FeeAmount)
	// 33.33 * 0.085 = 2.83305 -> 2.83
	assert.InDelta(t, 2.83, *txs[0].FeeAmount, 1e-9)
}

func TestParseNilSaleMeansNilFee(t *testing.T) {
	p := NewParser()
	rows := []models.RawRow{row(map[string]string{
		"id":         "b-3",
		"coin.type":  "BTC",
		"created.at": "2024-05-01",
	})}

	txs, err := p.Parse(rows, flatFee(0.10))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Nil(t, txs[0].SaleAmount)
	assert.Nil(t, txs[0].FeeAmount, "an unknown sale must not pretend to be free")
}

func TestParseRFC3339Dates(t *testing.T) {
	p := NewParser()
	rows := []models.RawRow{row(map[string]string{
		"id":         "b-4",
		"created.at": "2024-07-04T12:00:00-05:00",
	})}
	txs, err := p.Parse(rows, flatFee(0.10))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, time.Date(2024, 7, 4, 17, 0, 0, 0, time.UTC), txs[0].Date.UTC())
}

func TestParseRejectsIdentifiedRowWithBadDate(t *testing.T) {
	p := NewParser()
	rows := []models.RawRow{
		row(map[string]string{"id": "b-1", "created.at": "2024-05-01"}),
		row(map[string]string{"id": "b-2", "created.at": "yesterday"}),
	}
	txs, err := p.Parse(rows, flatFee(0.10))
	require.Error(t, err)
	assert.Nil(t, txs)
	assert.Contains(t, err.Error(), "b-2")
	assert.Contains(t, err.Error(), "row 3")
}

func TestParseDropsRowsWithoutID(t *testing.T) {
	p := NewParser()
	rows := []models.RawRow{
		row(map[string]string{"atm.id": "atm-1", "created.at": "2024-05-01"}),
	}
	txs, err := p.Parse(rows, flatFee(0.10))
	require.NoError(t, err)
	assert.Empty(t, txs)
}
