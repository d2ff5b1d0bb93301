package services

import (
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/username/btmdesk/backend/src/database"
	"github.com/username/btmdesk/backend/src/logger"
	"github.com/username/btmdesk/backend/src/models"
	"github.com/username/btmdesk/backend/src/parsers"
)

// existenceCheckBatchSize bounds the number of txids per IN clause so the
// existence check respects backend query-size limits.
const existenceCheckBatchSize = 500

type uploadServiceImpl struct {
	db          *sql.DB
	reportCache ReportInvalidator
}

// ReportInvalidator is implemented by the report service; any ingest drops
// its cached P&L reports.
type ReportInvalidator interface {
	InvalidateCache()
}

func NewUploadService(reportCache ReportInvalidator) UploadService {
	return &uploadServiceImpl{db: database.DB, reportCache: reportCache}
}

// ProcessUpload runs the whole linear pipeline for one file: read rows,
// detect the platform, load lookup snapshots, map rows, resolve tickers and
// devices, batch-check txid existence, insert only new rows, and write the
// upload manifest. There is no transaction wrapping manifest creation and the
// transaction insert; a failure between the two leaves an orphaned manifest,
// which is an accepted gap. Re-uploading the same file is always safe because
// the txid is the sole deduplication key.
func (s *uploadServiceImpl) ProcessUpload(fileReader io.Reader, filename string) (*UploadResult, error) {
	startTime := time.Now()
	logger.L.Info("ProcessUpload START", "filename", filename)

	headers, rows, err := parsers.ReadRows(fileReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	platform := parsers.DetectPlatform(headers)
	parser, err := parsers.GetParser(platform)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}

	lookups, err := loadLookupContext(s.db)
	if err != nil {
		return nil, fmt.Errorf("loading lookup snapshots: %w", err)
	}

	candidates, err := parser.Parse(rows, lookups.feeFor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParsingFailed, err)
	}
	if len(candidates) == 0 {
		return nil, ErrNoValidRecords
	}

	for i := range candidates {
		tx := &candidates[i]
		tx.DeviceID = lookups.resolveDevice(tx.DeviceID, tx.DeviceName)
		if display := lookups.resolveTicker(tx.Ticker); display != nil {
			tx.Ticker = *display
		} else {
			tx.Ticker = ""
		}
	}

	// Discovered tickers/devices are committed before the transaction batch
	// so references resolve; a failure there is logged, not fatal.
	lookups.flushNew(s.db)

	existing, err := s.existingTxIDs(candidates)
	if err != nil {
		return nil, fmt.Errorf("checking existing transactions: %w", err)
	}

	// A txid repeated inside the file is a duplicate too; only the first
	// occurrence is inserted and counted.
	var newTxs []models.CanonicalTransaction
	seenInFile := make(map[string]bool, len(candidates))
	for _, tx := range candidates {
		if existing[tx.TxID] || seenInFile[tx.TxID] {
			continue
		}
		seenInFile[tx.TxID] = true
		newTxs = append(newTxs, tx)
	}

	// The manifest is written unconditionally so upload history stays a
	// complete audit trail even for full-duplicate files.
	res, err := s.db.Exec(
		`INSERT INTO uploads (filename, platform, record_count) VALUES (?, ?, ?)`,
		filename, platform, len(newTxs))
	if err != nil {
		return nil, fmt.Errorf("creating upload manifest: %w", err)
	}
	uploadID, _ := res.LastInsertId()

	if len(newTxs) > 0 {
		if err := s.insertTransactions(uploadID, newTxs); err != nil {
			return nil, err
		}
	}

	if s.reportCache != nil {
		s.reportCache.InvalidateCache()
	}

	result := &UploadResult{
		UploadID:   uploadID,
		Platform:   platform,
		ParsedRows: len(candidates),
		Inserted:   len(newTxs),
		Duplicates: len(candidates) - len(newTxs),
		NewTickers: len(lookups.newTickers),
		NewDevices: len(lookups.newDevices),
	}
	logger.L.Info("ProcessUpload END",
		"filename", filename, "platform", platform,
		"inserted", result.Inserted, "duplicates", result.Duplicates,
		"duration", time.Since(startTime))
	return result, nil
}

// existingTxIDs returns the set of candidate txids already stored, queried in
// bounded batches.
func (s *uploadServiceImpl) existingTxIDs(candidates []models.CanonicalTransaction) (map[string]bool, error) {
	existing := make(map[string]bool)
	ids := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, tx := range candidates {
		if !seen[tx.TxID] {
			seen[tx.TxID] = true
			ids = append(ids, tx.TxID)
		}
	}

	for start := 0; start < len(ids); start += existenceCheckBatchSize {
		end := start + existenceCheckBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(batch)), ",")
		args := make([]interface{}, len(batch))
		for i, id := range batch {
			args[i] = id
		}

		rows, err := s.db.Query(
			`SELECT txid FROM transactions WHERE txid IN (`+placeholders+`)`, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var txid string
			if err := rows.Scan(&txid); err != nil {
				rows.Close()
				return nil, err
			}
			existing[txid] = true
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return existing, nil
}

func (s *uploadServiceImpl) insertTransactions(uploadID int64, txs []models.CanonicalTransaction) error {
	dbTx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.Prepare(`INSERT INTO transactions
		(txid, upload_id, device_id, ticker, sale_amount, fee_amount, operator_fee, sent_amount, date, platform)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, tx := range txs {
		var ticker interface{}
		if tx.Ticker != "" {
			ticker = tx.Ticker
		}
		if _, err := stmt.Exec(tx.TxID, uploadID, tx.DeviceID, ticker,
			tx.SaleAmount, tx.FeeAmount, tx.OperatorFee, tx.SentAmount,
			tx.Date, tx.Platform); err != nil {
			// A txid that slipped in between the existence check and here is
			// still a duplicate, not a failure.
			if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
				logger.L.Debug("Skipping duplicate transaction on insert", "txid", tx.TxID)
				continue
			}
			return fmt.Errorf("error inserting transaction (txid: %s): %w", tx.TxID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("error committing transactions: %w", err)
	}
	return nil
}

func (s *uploadServiceImpl) ListUploads() ([]models.Upload, error) {
	rows, err := s.db.Query(`SELECT id, filename, platform, record_count, created_at FROM uploads ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uploads []models.Upload
	for rows.Next() {
		var u models.Upload
		if err := rows.Scan(&u.ID, &u.Filename, &u.Platform, &u.RecordCount, &u.CreatedAt); err != nil {
			return nil, err
		}
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}

// DeleteUpload removes a manifest; its transactions go with it via the
// cascading foreign key. This is the destructive path for backing out a bad
// import.
func (s *uploadServiceImpl) DeleteUpload(id int64) error {
	res, err := s.db.Exec(`DELETE FROM uploads WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	if s.reportCache != nil {
		s.reportCache.InvalidateCache()
	}
	logger.L.Info("Deleted upload manifest and its transactions", "uploadID", id)
	return nil
}
