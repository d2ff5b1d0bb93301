package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/username/btmdesk/backend/src/database"
	"github.com/username/btmdesk/backend/src/models"
)

// TransactionService reads ingested transactions. Rows are immutable after
// ingest except through the ticker fee recalculation.
type TransactionService struct {
	db *sql.DB
}

func NewTransactionService() *TransactionService {
	return &TransactionService{db: database.DB}
}

// List returns transactions filtered by device and date range, newest first.
// Empty deviceID and nil bounds mean no filter.
func (s *TransactionService) List(deviceID string, start, end *time.Time) ([]models.Transaction, error) {
	query := `SELECT id, txid, upload_id, device_id, ticker, sale_amount, fee_amount,
		operator_fee, sent_amount, date, platform FROM transactions WHERE 1=1`
	args := []interface{}{}
	if deviceID != "" {
		query += " AND device_id = ?"
		args = append(args, deviceID)
	}
	if start != nil {
		query += " AND date >= ?"
		args = append(args, *start)
	}
	if end != nil {
		query += " AND date < ?"
		args = append(args, *end)
	}
	query += " ORDER BY date DESC, id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var uploadID sql.NullInt64
		if err := rows.Scan(&tx.ID, &tx.TxID, &uploadID, &tx.DeviceID, &tx.Ticker,
			&tx.SaleAmount, &tx.FeeAmount, &tx.OperatorFee, &tx.SentAmount,
			&tx.Date, &tx.Platform); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		tx.UploadID = uploadID.Int64
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
