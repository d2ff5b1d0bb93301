package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/username/btmdesk/backend/src/database"
	"github.com/username/btmdesk/backend/src/logger"
	"github.com/username/btmdesk/backend/src/models"
)

// ATMService administers kiosk installation profiles. A device id may appear
// in several rows for distinct install periods, but windows must not overlap
// and at most one row per device may be active.
type ATMService struct {
	db          *sql.DB
	reportCache ReportInvalidator
}

func NewATMService(reportCache ReportInvalidator) *ATMService {
	return &ATMService{db: database.DB, reportCache: reportCache}
}

func (s *ATMService) List() ([]models.ATMProfile, error) {
	return loadATMProfiles(s.db)
}

func (s *ATMService) Get(id int64) (*models.ATMProfile, error) {
	row := s.db.QueryRow(`SELECT id, device_id, location_name, platform, platform_switch_date,
		installed_date, removed_date, rent, mgmt_genesis, mgmt_bitaccess, sales_rep_id, active
		FROM atm_profiles WHERE id = ?`, id)
	var p models.ATMProfile
	err := row.Scan(&p.ID, &p.DeviceID, &p.LocationName, &p.Platform, &p.PlatformSwitchDate,
		&p.InstalledDate, &p.RemovedDate, &p.Rent, &p.MgmtGenesis, &p.MgmtBitaccess,
		&p.SalesRepID, &p.Active)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a new profile after checking it against the device's other
// installation rows. A removed date forces active=false.
func (s *ATMService) Create(p *models.ATMProfile) error {
	normalizeActive(p)
	if err := s.checkDeviceConflicts(p, 0); err != nil {
		return err
	}
	res, err := s.db.Exec(`INSERT INTO atm_profiles
		(device_id, location_name, platform, platform_switch_date, installed_date, removed_date,
		 rent, mgmt_genesis, mgmt_bitaccess, sales_rep_id, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.DeviceID, p.LocationName, p.Platform, p.PlatformSwitchDate, p.InstalledDate,
		p.RemovedDate, p.Rent, p.MgmtGenesis, p.MgmtBitaccess, p.SalesRepID, p.Active)
	if err != nil {
		return fmt.Errorf("inserting atm profile: %w", err)
	}
	p.ID, _ = res.LastInsertId()
	s.reportCache.InvalidateCache()
	logger.L.Info("ATM profile created", "id", p.ID, "deviceID", p.DeviceID)
	return nil
}

// Update rewrites a profile in full. Partial updates are not supported; the
// handler sends the complete record back.
func (s *ATMService) Update(p *models.ATMProfile) error {
	normalizeActive(p)
	if err := s.checkDeviceConflicts(p, p.ID); err != nil {
		return err
	}
	res, err := s.db.Exec(`UPDATE atm_profiles SET device_id = ?, location_name = ?, platform = ?,
		platform_switch_date = ?, installed_date = ?, removed_date = ?, rent = ?,
		mgmt_genesis = ?, mgmt_bitaccess = ?, sales_rep_id = ?, active = ? WHERE id = ?`,
		p.DeviceID, p.LocationName, p.Platform, p.PlatformSwitchDate, p.InstalledDate,
		p.RemovedDate, p.Rent, p.MgmtGenesis, p.MgmtBitaccess, p.SalesRepID, p.Active, p.ID)
	if err != nil {
		return fmt.Errorf("updating atm profile %d: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.reportCache.InvalidateCache()
	return nil
}

// Delete removes a profile only when no transactions reference its device id.
// Devices with history must be deactivated instead.
func (s *ATMService) Delete(id int64) error {
	p, err := s.Get(id)
	if err != nil {
		return err
	}
	var linked int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM transactions WHERE device_id = ?`, p.DeviceID).Scan(&linked); err != nil {
		return fmt.Errorf("counting linked transactions: %w", err)
	}
	if linked > 0 {
		return fmt.Errorf("device %s has %d transactions: %w", p.DeviceID, linked, ErrHasLinkedRecords)
	}
	if _, err := s.db.Exec(`DELETE FROM atm_profiles WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting atm profile %d: %w", id, err)
	}
	s.reportCache.InvalidateCache()
	return nil
}

func normalizeActive(p *models.ATMProfile) {
	if p.RemovedDate != nil {
		p.Active = false
	}
}

// checkDeviceConflicts rejects a second active row for the device and any
// overlap between installation windows. A nil installed date is an open
// start, a nil removed date an open end.
func (s *ATMService) checkDeviceConflicts(p *models.ATMProfile, excludeID int64) error {
	others, err := loadATMProfiles(s.db)
	if err != nil {
		return fmt.Errorf("loading atm profiles for conflict check: %w", err)
	}
	for _, o := range others {
		if o.ID == excludeID || o.DeviceID != p.DeviceID {
			continue
		}
		if p.Active && o.Active {
			return fmt.Errorf("device %s already has an active profile (id %d): %w",
				p.DeviceID, o.ID, ErrProfileConflict)
		}
		if windowsOverlap(p.InstalledDate, p.RemovedDate, o.InstalledDate, o.RemovedDate) {
			return fmt.Errorf("installation window overlaps profile %d for device %s: %w",
				o.ID, p.DeviceID, ErrProfileConflict)
		}
	}
	return nil
}

func windowsOverlap(aStart, aEnd, bStart, bEnd *time.Time) bool {
	// aStart <= bEnd && bStart <= aEnd, with nil meaning unbounded.
	afterEnd := func(start, end *time.Time) bool {
		return start != nil && end != nil && start.After(*end)
	}
	return !afterEnd(aStart, bEnd) && !afterEnd(bStart, aEnd)
}
