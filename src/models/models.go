package models

import "time"

// Platform identifiers for the two upstream transaction sources.
const (
	PlatformGenesis   = "genesis"
	PlatformBitaccess = "bitaccess"
)

// CanonicalTransaction is the unified, intermediate representation of one CSV
// row. Each platform parser populates as many fields as possible directly from
// the source file; ticker and device resolution happen afterwards, during
// ingest. Monetary fields are pointers so an absent or unparsable cell stays
// nil instead of collapsing to zero.
type CanonicalTransaction struct {
	TxID        string     `json:"txid"`
	DeviceID    string     `json:"device_id"`   // raw device identifier from the CSV
	DeviceName  string     `json:"device_name"` // location name supplied by the CSV, may be empty
	Ticker      string     `json:"ticker"`      // raw ticker string from the CSV
	SaleAmount  *float64   `json:"sale_amount"`
	FeeAmount   *float64   `json:"fee_amount"`
	OperatorFee *float64   `json:"operator_fee"`
	SentAmount  *float64   `json:"sent_amount"`
	Date        time.Time  `json:"date"`
	Platform    string     `json:"platform"`
}

// Transaction is a persisted transaction row. TxID is the natural key from the
// source platform and is globally unique across both platforms; it is the sole
// deduplication key for uploads.
type Transaction struct {
	ID          int64     `json:"id"`
	TxID        string    `json:"txid"`
	UploadID    int64     `json:"upload_id"`
	DeviceID    string    `json:"device_id"`
	Ticker      *string   `json:"ticker"` // canonical display value, nil when the CSV had none
	SaleAmount  *float64  `json:"sale_amount"`
	FeeAmount   *float64  `json:"fee_amount"`
	OperatorFee *float64  `json:"operator_fee"`
	SentAmount  *float64  `json:"sent_amount"`
	Date        time.Time `json:"date"`
	Platform    string    `json:"platform"`
}

// Upload is the audit manifest of one CSV ingestion. RecordCount counts only
// the rows that were actually new after deduplication; a row is written even
// when an upload was a full duplicate.
type Upload struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	Platform    string    `json:"platform"`
	RecordCount int       `json:"record_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// TickerMapping maps a raw CSV ticker string to its operator-facing name and
// the fee percentage used for Platform B fee derivation.
type TickerMapping struct {
	ID            int64   `json:"id"`
	OriginalValue string  `json:"original_value"`
	DisplayValue  *string `json:"display_value"`
	FeePercentage float64 `json:"fee_percentage"`
}

// Display returns the operator-facing ticker name, falling back to the
// original CSV value when no override is set.
func (t TickerMapping) Display() string {
	if t.DisplayValue != nil && *t.DisplayValue != "" {
		return *t.DisplayValue
	}
	return t.OriginalValue
}
