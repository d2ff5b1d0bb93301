package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/username/btmdesk/backend/src/database"
	"github.com/username/btmdesk/backend/src/logger"
	"github.com/username/btmdesk/backend/src/models"
	"github.com/username/btmdesk/backend/src/processors"
	"github.com/username/btmdesk/backend/src/utils"
)

// CommissionService persists monthly payout snapshots. Recomputing a month
// replaces its prior snapshot wholesale; the snapshot is a cache over
// transactions and assignments, not a source of truth.
type CommissionService struct {
	db          *sql.DB
	processor   *processors.CommissionProcessor
	reportCache ReportInvalidator
}

func NewCommissionService(processor *processors.CommissionProcessor, reportCache ReportInvalidator) *CommissionService {
	return &CommissionService{db: database.DB, processor: processor, reportCache: reportCache}
}

// ComputeAndStore recomputes every rep's commission for one month and
// replaces any existing snapshot rows for that month.
func (s *CommissionService) ComputeAndStore(month time.Time) ([]models.Commission, error) {
	reps, err := s.loadSalesReps()
	if err != nil {
		return nil, fmt.Errorf("loading sales reps: %w", err)
	}
	profiles, err := loadATMProfiles(s.db)
	if err != nil {
		return nil, fmt.Errorf("loading atm profiles: %w", err)
	}
	txs, err := s.loadMonthTransactions(month)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}

	commissions := s.processor.ComputeMonth(month, reps, profiles, txs)
	monthStr := utils.FormatMonth(month)

	dbTx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	// Explicit delete-then-insert instead of upsert: replacing the snapshot
	// is the intended semantic, and it must not mask key conflicts.
	if _, err := dbTx.Exec(
		`DELETE FROM commission_details WHERE commission_id IN (SELECT id FROM commissions WHERE month = ?)`,
		monthStr); err != nil {
		return nil, fmt.Errorf("clearing commission details for %s: %w", monthStr, err)
	}
	if _, err := dbTx.Exec(`DELETE FROM commissions WHERE month = ?`, monthStr); err != nil {
		return nil, fmt.Errorf("clearing commissions for %s: %w", monthStr, err)
	}

	for i := range commissions {
		c := &commissions[i]
		res, err := dbTx.Exec(
			`INSERT INTO commissions (sales_rep_id, month, amount) VALUES (?, ?, ?)`,
			c.SalesRepID, c.Month, c.Amount)
		if err != nil {
			return nil, fmt.Errorf("inserting commission for rep %d: %w", c.SalesRepID, err)
		}
		c.ID, _ = res.LastInsertId()
		for j := range c.Details {
			d := &c.Details[j]
			d.CommissionID = c.ID
			if _, err := dbTx.Exec(
				`INSERT INTO commission_details (commission_id, device_id, month, amount) VALUES (?, ?, ?, ?)`,
				d.CommissionID, d.DeviceID, d.Month, d.Amount); err != nil {
				return nil, fmt.Errorf("inserting commission detail for device %s: %w", d.DeviceID, err)
			}
		}
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing commission snapshot: %w", err)
	}

	// commissionsPaid feeds netProfit, so cached reports are stale now.
	if s.reportCache != nil {
		s.reportCache.InvalidateCache()
	}

	logger.L.Info("Commission snapshot stored", "month", monthStr, "reps", len(commissions))
	return commissions, nil
}

// ListMonth returns the stored snapshot for a month with per-device details.
func (s *CommissionService) ListMonth(month time.Time) ([]models.Commission, error) {
	monthStr := utils.FormatMonth(month)
	rows, err := s.db.Query(
		`SELECT id, sales_rep_id, month, amount, paid, created_at FROM commissions WHERE month = ? ORDER BY sales_rep_id`,
		monthStr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var commissions []models.Commission
	for rows.Next() {
		var c models.Commission
		if err := rows.Scan(&c.ID, &c.SalesRepID, &c.Month, &c.Amount, &c.Paid, &c.CreatedAt); err != nil {
			return nil, err
		}
		commissions = append(commissions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range commissions {
		c := &commissions[i]
		detailRows, err := s.db.Query(
			`SELECT id, commission_id, device_id, month, amount FROM commission_details WHERE commission_id = ? ORDER BY device_id`,
			c.ID)
		if err != nil {
			return nil, err
		}
		for detailRows.Next() {
			var d models.CommissionDetail
			if err := detailRows.Scan(&d.ID, &d.CommissionID, &d.DeviceID, &d.Month, &d.Amount); err != nil {
				detailRows.Close()
				return nil, err
			}
			c.Details = append(c.Details, d)
		}
		if err := detailRows.Err(); err != nil {
			detailRows.Close()
			return nil, err
		}
		detailRows.Close()
	}
	return commissions, nil
}

func (s *CommissionService) loadSalesReps() ([]models.SalesRep, error) {
	rows, err := s.db.Query(`SELECT id, name, commission_rate, active FROM sales_reps`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reps []models.SalesRep
	for rows.Next() {
		var r models.SalesRep
		if err := rows.Scan(&r.ID, &r.Name, &r.CommissionRate, &r.Active); err != nil {
			return nil, err
		}
		reps = append(reps, r)
	}
	return reps, rows.Err()
}

func (s *CommissionService) loadMonthTransactions(month time.Time) ([]models.Transaction, error) {
	mStart := utils.MonthStart(month)
	mEndExcl := utils.NextMonthStart(month)
	rows, err := s.db.Query(`SELECT id, txid, device_id, fee_amount, date, platform
		FROM transactions WHERE date >= ? AND date < ?`, mStart, mEndExcl)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		if err := rows.Scan(&tx.ID, &tx.TxID, &tx.DeviceID, &tx.FeeAmount, &tx.Date, &tx.Platform); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
