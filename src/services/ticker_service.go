package services

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/username/btmdesk/backend/src/database"
	"github.com/username/btmdesk/backend/src/logger"
	"github.com/username/btmdesk/backend/src/models"
)

// TickerService administers ticker mappings and runs the administrative fee
// recalculation. Recalculation is the only sanctioned mutation of ingested
// transaction rows.
type TickerService struct {
	db          *sql.DB
	reportCache ReportInvalidator
}

func NewTickerService(reportCache ReportInvalidator) *TickerService {
	return &TickerService{db: database.DB, reportCache: reportCache}
}

func (s *TickerService) List() ([]models.TickerMapping, error) {
	return loadTickerMappings(s.db)
}

func (s *TickerService) Get(id int64) (*models.TickerMapping, error) {
	row := s.db.QueryRow(`SELECT id, original_value, display_value, fee_percentage FROM ticker_mappings WHERE id = ?`, id)
	var m models.TickerMapping
	if err := row.Scan(&m.ID, &m.OriginalValue, &m.DisplayValue, &m.FeePercentage); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// Update changes the display name and fee percentage of a mapping. The
// original value is the CSV key and never changes.
func (s *TickerService) Update(id int64, displayValue *string, feePercentage float64) (*models.TickerMapping, error) {
	res, err := s.db.Exec(`UPDATE ticker_mappings SET display_value = ?, fee_percentage = ? WHERE id = ?`,
		displayValue, feePercentage, id)
	if err != nil {
		return nil, fmt.Errorf("updating ticker mapping %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	s.reportCache.InvalidateCache()
	return s.Get(id)
}

// RecalculateFees rewrites fee_amount for every Bitaccess transaction of the
// ticker from its current fee percentage. Genesis rows carry fees from the
// source file and are never touched. Returns the number of rows updated.
func (s *TickerService) RecalculateFees(id int64) (int, error) {
	m, err := s.Get(id)
	if err != nil {
		return 0, err
	}

	// Transactions store the display value current at ingest time, so match
	// both the original CSV value and today's display value.
	rows, err := s.db.Query(`SELECT id, sale_amount FROM transactions
		WHERE platform = ? AND ticker IN (?, ?)`,
		models.PlatformBitaccess, m.OriginalValue, m.Display())
	if err != nil {
		return 0, fmt.Errorf("loading transactions for ticker %s: %w", m.OriginalValue, err)
	}
	type feeUpdate struct {
		txRowID int64
		fee     *float64
	}
	var updates []feeUpdate
	for rows.Next() {
		var txRowID int64
		var sale *float64
		if err := rows.Scan(&txRowID, &sale); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning transaction: %w", err)
		}
		var fee *float64
		if sale != nil {
			f, _ := decimal.NewFromFloat(*sale).
				Mul(decimal.NewFromFloat(m.FeePercentage)).
				Round(2).Float64()
			fee = &f
		}
		updates = append(updates, feeUpdate{txRowID: txRowID, fee: fee})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("iterating transactions: %w", err)
	}
	rows.Close()

	dbTx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`UPDATE transactions SET fee_amount = ? WHERE id = ?`)
	if err != nil {
		return 0, fmt.Errorf("preparing fee update: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.Exec(u.fee, u.txRowID); err != nil {
			return 0, fmt.Errorf("updating fee for transaction %d: %w", u.txRowID, err)
		}
	}
	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing fee recalculation: %w", err)
	}

	s.reportCache.InvalidateCache()
	logger.L.Info("Recalculated fees for ticker", "ticker", m.Display(), "feePercentage", m.FeePercentage, "updated", len(updates))
	return len(updates), nil
}
