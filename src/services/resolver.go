package services

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/username/btmdesk/backend/src/logger"
	"github.com/username/btmdesk/backend/src/models"
)

// defaultTickerFee is assigned to tickers discovered for the first time
// during an upload. Operators can re-fee them afterwards.
const defaultTickerFee = 0.10

// lookupContext holds the per-upload snapshots of canonical tickers and
// devices. Both tables are fetched once per upload, never per row. The maps
// are mutated as new values are discovered so the 2nd..Nth occurrence of a
// brand-new value within the same file resolves consistently without another
// database round trip. A fresh context is built for every upload; nothing
// here is shared across requests.
type lookupContext struct {
	tickers map[string]*models.TickerMapping // keyed by original_value
	devices map[string]*models.ATMProfile    // keyed by device_id, active row only

	newTickers    []*models.TickerMapping
	newDevices    []*models.ATMProfile
	locationFills []*models.ATMProfile // existing devices whose null location gets the CSV name
}

func newLookupContext(tickers []models.TickerMapping, devices []models.ATMProfile) *lookupContext {
	ctx := &lookupContext{
		tickers: make(map[string]*models.TickerMapping, len(tickers)),
		devices: make(map[string]*models.ATMProfile, len(devices)),
	}
	for i := range tickers {
		t := tickers[i]
		ctx.tickers[t.OriginalValue] = &t
	}
	for i := range devices {
		d := devices[i]
		// Historical (removed) rows never receive new transactions; only the
		// active installation resolves.
		if d.Active {
			ctx.devices[d.DeviceID] = &d
		}
	}
	return ctx
}

func loadLookupContext(db *sql.DB) (*lookupContext, error) {
	tickers, err := loadTickerMappings(db)
	if err != nil {
		return nil, fmt.Errorf("loading ticker mappings: %w", err)
	}
	devices, err := loadATMProfiles(db)
	if err != nil {
		return nil, fmt.Errorf("loading atm profiles: %w", err)
	}
	return newLookupContext(tickers, devices), nil
}

// resolveTicker returns the canonical display value for a raw ticker string,
// or nil when the row has no ticker. Unseen values are queued for insertion
// with the default fee percentage and become canonical going forward.
func (c *lookupContext) resolveTicker(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if t, ok := c.tickers[raw]; ok {
		display := t.Display()
		return &display
	}
	t := &models.TickerMapping{OriginalValue: raw, FeePercentage: defaultTickerFee}
	c.tickers[raw] = t
	c.newTickers = append(c.newTickers, t)
	return &raw
}

// resolveDevice returns the canonical device id for a raw CSV identifier, or
// "" when the row has none. A known device keeps its operator-curated
// location name; the CSV name only fills a previously null location. Unknown
// devices are queued for creation with whatever name the CSV supplied.
func (c *lookupContext) resolveDevice(rawID, rawName string) string {
	rawID = strings.TrimSpace(rawID)
	if rawID == "" {
		return ""
	}
	rawName = strings.TrimSpace(rawName)

	if d, ok := c.devices[rawID]; ok {
		if d.LocationName == nil && rawName != "" {
			name := rawName
			d.LocationName = &name
			if d.ID != 0 {
				c.locationFills = append(c.locationFills, d)
			}
		}
		return rawID
	}

	d := &models.ATMProfile{DeviceID: rawID, Active: true}
	if rawName != "" {
		name := rawName
		d.LocationName = &name
	}
	c.devices[rawID] = d
	c.newDevices = append(c.newDevices, d)
	return rawID
}

// feeFor is the fee lookup handed to the Bitaccess mapper. It is keyed by the
// raw ticker string; tickers not yet resolved fall back to the default.
func (c *lookupContext) feeFor(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if t, ok := c.tickers[raw]; ok {
		return t.FeePercentage
	}
	return defaultTickerFee
}

// flushNew inserts the queued tickers/devices and applies location fills,
// before any transaction insert so foreign references resolve. Failures here
// are logged and do not abort the upload; transactions still proceed.
func (c *lookupContext) flushNew(db *sql.DB) {
	for _, t := range c.newTickers {
		res, err := db.Exec(
			`INSERT INTO ticker_mappings (original_value, display_value, fee_percentage) VALUES (?, ?, ?)`,
			t.OriginalValue, t.DisplayValue, t.FeePercentage)
		if err != nil {
			logger.L.Warn("Failed to insert discovered ticker, continuing with upload", "ticker", t.OriginalValue, "error", err)
			continue
		}
		t.ID, _ = res.LastInsertId()
	}

	for _, d := range c.newDevices {
		res, err := db.Exec(
			`INSERT INTO atm_profiles (device_id, location_name, active) VALUES (?, ?, TRUE)`,
			d.DeviceID, d.LocationName)
		if err != nil {
			logger.L.Warn("Failed to insert discovered device, continuing with upload", "deviceID", d.DeviceID, "error", err)
			continue
		}
		d.ID, _ = res.LastInsertId()
	}

	for _, d := range c.locationFills {
		if _, err := db.Exec(
			`UPDATE atm_profiles SET location_name = ? WHERE id = ? AND location_name IS NULL`,
			d.LocationName, d.ID); err != nil {
			logger.L.Warn("Failed to backfill device location, continuing with upload", "deviceID", d.DeviceID, "error", err)
		}
	}
}

func loadTickerMappings(db *sql.DB) ([]models.TickerMapping, error) {
	rows, err := db.Query(`SELECT id, original_value, display_value, fee_percentage FROM ticker_mappings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TickerMapping
	for rows.Next() {
		var t models.TickerMapping
		if err := rows.Scan(&t.ID, &t.OriginalValue, &t.DisplayValue, &t.FeePercentage); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func loadATMProfiles(db *sql.DB) ([]models.ATMProfile, error) {
	rows, err := db.Query(`SELECT id, device_id, location_name, platform, platform_switch_date,
		installed_date, removed_date, rent, mgmt_genesis, mgmt_bitaccess, sales_rep_id, active
		FROM atm_profiles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ATMProfile
	for rows.Next() {
		var d models.ATMProfile
		if err := rows.Scan(&d.ID, &d.DeviceID, &d.LocationName, &d.Platform, &d.PlatformSwitchDate,
			&d.InstalledDate, &d.RemovedDate, &d.Rent, &d.MgmtGenesis, &d.MgmtBitaccess, &d.SalesRepID, &d.Active); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
