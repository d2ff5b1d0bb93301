package models

import "time"

// ATMProfile describes one installation of a physical kiosk. DeviceID is an
// operator-assigned identifier that may be reused across non-overlapping
// install/removal periods, so it is not unique in the table; at most one row
// per DeviceID may be active (non-removed) at a time.
type ATMProfile struct {
	ID                 int64      `json:"id"`
	DeviceID           string     `json:"device_id"`
	LocationName       *string    `json:"location_name"`
	Platform           *string    `json:"platform"`
	PlatformSwitchDate *time.Time `json:"platform_switch_date"`
	InstalledDate      *time.Time `json:"installed_date"`
	RemovedDate        *time.Time `json:"removed_date"`
	Rent               float64    `json:"rent"`
	MgmtGenesis        float64    `json:"mgmt_genesis"`
	MgmtBitaccess      float64    `json:"mgmt_bitaccess"`
	SalesRepID         *int64     `json:"sales_rep_id"`
	Active             bool       `json:"active"`
}
