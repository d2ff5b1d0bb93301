package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/btmdesk/backend/src/database"
	"github.com/username/btmdesk/backend/src/logger"
	"github.com/username/btmdesk/backend/src/models"
	"github.com/username/btmdesk/backend/src/processors"
	"github.com/username/btmdesk/backend/src/utils"
)

const (
	ckPnLReport = "pnl_%s_%s_%s" // start, end, platform

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

// ReportService computes P&L reports on demand. Results are memoized until
// the next ingest or profile edit invalidates them; any backend read failure
// aborts the whole computation, no partial report is returned.
type ReportService struct {
	db          *sql.DB
	processor   *processors.PnLProcessor
	reportCache *cache.Cache
}

func NewReportService(processor *processors.PnLProcessor, reportCache *cache.Cache) *ReportService {
	return &ReportService{db: database.DB, processor: processor, reportCache: reportCache}
}

// GetProfitLoss returns the P&L report for a closed month window and platform
// filter.
func (s *ReportService) GetProfitLoss(start, end time.Time, platform string) (*models.ProfitLossReport, error) {
	cacheKey := fmt.Sprintf(ckPnLReport, utils.FormatMonth(start), utils.FormatMonth(end), platform)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for P&L report", "key", cacheKey)
		return cached.(*models.ProfitLossReport), nil
	}

	input, err := s.loadSnapshot(start, end, platform)
	if err != nil {
		return nil, err
	}

	report, err := s.processor.Process(*input)
	if err != nil {
		return nil, err
	}

	s.reportCache.Set(cacheKey, report, DefaultCacheExpiration)
	return report, nil
}

// InvalidateCache drops every memoized report. Called after any ingest or
// profile/ticker edit; the next request recomputes from the database.
func (s *ReportService) InvalidateCache() {
	s.reportCache.Flush()
	logger.L.Debug("Invalidated P&L report cache")
}

func (s *ReportService) loadSnapshot(start, end time.Time, platform string) (*processors.PnLInput, error) {
	profiles, err := loadATMProfiles(s.db)
	if err != nil {
		return nil, fmt.Errorf("loading atm profiles: %w", err)
	}

	wStart := utils.MonthStart(start)
	wEndExcl := utils.NextMonthStart(end)

	rows, err := s.db.Query(`SELECT id, txid, upload_id, device_id, ticker, sale_amount, fee_amount,
		operator_fee, sent_amount, date, platform
		FROM transactions WHERE date >= ? AND date < ?`, wStart, wEndExcl)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}

	detailRows, err := s.db.Query(`SELECT id, commission_id, device_id, month, amount FROM commission_details`)
	if err != nil {
		return nil, fmt.Errorf("loading commission details: %w", err)
	}
	defer detailRows.Close()

	var details []models.CommissionDetail
	for detailRows.Next() {
		var d models.CommissionDetail
		if err := detailRows.Scan(&d.ID, &d.CommissionID, &d.DeviceID, &d.Month, &d.Amount); err != nil {
			return nil, fmt.Errorf("scanning commission detail: %w", err)
		}
		details = append(details, d)
	}
	if err := detailRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating commission details: %w", err)
	}

	return &processors.PnLInput{
		WindowStart:       start,
		WindowEnd:         end,
		Platform:          platform,
		Profiles:          profiles,
		Transactions:      txs,
		CommissionDetails: details,
	}, nil
}
