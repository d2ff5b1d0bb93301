package bitaccess

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/btmdesk/backend/src/models"
)

// Header aliases seen across historical Bitaccess export versions.
var (
	aliasTxID       = []string{"id", "transaction.id", "transaction_id"}
	aliasDeviceID   = []string{"atm.id", "atm_id"}
	aliasDeviceName = []string{"atm.location", "atm_location", "location"}
	aliasTicker     = []string{"coin.type", "coin_type"}
	aliasSale       = []string{"inserted.amount", "inserted_amount", "cash.amount"}
	aliasOperator   = []string{"operator.fee", "operator_fee"}
	aliasSent       = []string{"sent.amount", "sent_amount", "crypto.amount"}
	aliasDate       = []string{"created.at", "created_at", "date"}
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// BitaccessParser maps Bitaccess export rows. Bitaccess files carry no fee
// column, so the fee is derived as saleAmount times the ticker's configured
// fee percentage, keyed by the raw ticker string and rounded to cents.
type BitaccessParser struct{}

func NewParser() *BitaccessParser {
	return &BitaccessParser{}
}

func (p *BitaccessParser) Parse(rows []models.RawRow, fees func(string) float64) ([]models.CanonicalTransaction, error) {
	var txs []models.CanonicalTransaction
	for i, row := range rows {
		txid, _ := row.Get(aliasTxID...)
		if txid == "" {
			continue
		}

		// An identified transaction with no usable date must not be lost
		// silently; reject the whole file so the export can be fixed.
		dateStr, _ := row.Get(aliasDate...)
		date, err := parseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("row %d (txid %s): %w", i+2, txid, err)
		}

		deviceID, _ := row.Get(aliasDeviceID...)
		deviceName, _ := row.Get(aliasDeviceName...)
		ticker, _ := row.Get(aliasTicker...)
		saleStr, _ := row.Get(aliasSale...)
		operatorStr, _ := row.Get(aliasOperator...)
		sentStr, _ := row.Get(aliasSent...)

		sale := models.ParseMoney(saleStr)

		txs = append(txs, models.CanonicalTransaction{
			TxID:        txid,
			DeviceID:    deviceID,
			DeviceName:  deviceName,
			Ticker:      ticker,
			SaleAmount:  sale,
			FeeAmount:   deriveFee(sale, ticker, fees),
			OperatorFee: models.ParseMoney(operatorStr),
			SentAmount:  models.ParseMoney(sentStr),
			Date:        date,
			Platform:    models.PlatformBitaccess,
		})
	}

	return txs, nil
}

// deriveFee computes saleAmount * feePercentage rounded to 2 decimals. A nil
// sale amount yields a nil fee; an unknown sale must not pretend to be free.
func deriveFee(sale *float64, rawTicker string, fees func(string) float64) *float64 {
	if sale == nil || fees == nil {
		return nil
	}
	pct := fees(rawTicker)
	fee, _ := decimal.NewFromFloat(*sale).
		Mul(decimal.NewFromFloat(pct)).
		Round(2).
		Float64()
	return &fee
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse bitaccess date '%s'", s)
}
