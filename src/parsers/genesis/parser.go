package genesis

import (
	"fmt"
	"time"

	"github.com/username/btmdesk/backend/src/models"
)

// Header aliases seen across historical Genesis export versions. Lookup tries
// each alias in order and takes the first column present.
var (
	aliasTxID       = []string{"transaction id", "transaction_id", "tx id", "txid"}
	aliasDeviceID   = []string{"machine id", "machine_id", "terminal id", "terminal sn"}
	aliasDeviceName = []string{"machine name", "machine_name", "terminal name", "location"}
	aliasTicker     = []string{"crypto currency", "cryptocurrency", "coin", "currency"}
	aliasSale       = []string{"cash amount", "cash_amount", "gross amount", "amount"}
	aliasFee        = []string{"fee", "fee amount", "fee_amount", "commission"}
	aliasOperator   = []string{"operator fee", "operator_fee", "genesis fee", "platform fee"}
	aliasSent       = []string{"crypto amount", "crypto_amount", "sent amount", "amount sent"}
	aliasDate       = []string{"date", "transaction date", "transaction_date", "time"}
)

var dateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
}

// GenesisParser maps Genesis export rows. Genesis supplies the fee and the
// platform operator fee directly in the file, so the fee lookup is unused.
type GenesisParser struct{}

func NewParser() *GenesisParser {
	return &GenesisParser{}
}

func (p *GenesisParser) Parse(rows []models.RawRow, fees func(string) float64) ([]models.CanonicalTransaction, error) {
	var txs []models.CanonicalTransaction
	for i, row := range rows {
		// The transaction id is the only mandatory field; rows without one
		// are dropped silently.
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
		feeStr, _ := row.Get(aliasFee...)
		operatorStr, _ := row.Get(aliasOperator...)
		sentStr, _ := row.Get(aliasSent...)

		txs = append(txs, models.CanonicalTransaction{
			TxID:        txid,
			DeviceID:    deviceID,
			DeviceName:  deviceName,
			Ticker:      ticker,
			SaleAmount:  models.ParseMoney(saleStr),
			FeeAmount:   models.ParseMoney(feeStr),
			OperatorFee: models.ParseMoney(operatorStr),
			SentAmount:  models.ParseMoney(sentStr),
			Date:        date,
			Platform:    models.PlatformGenesis,
		})
	}

	return txs, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse genesis date '%s'", s)
}
