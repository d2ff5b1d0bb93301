package models

import "time"

// Commission is a persisted per-rep-per-month payout snapshot. It is a cache
// recomputed from transactions and device assignments, not a source of truth.
// Month is formatted "2006-01".
type Commission struct {
	ID         int64              `json:"id"`
	SalesRepID int64              `json:"sales_rep_id"`
	Month      string             `json:"month"`
	Amount     float64            `json:"amount"`
	Paid       bool               `json:"paid"`
	CreatedAt  time.Time          `json:"created_at"`
	Details    []CommissionDetail `json:"details,omitempty"`
}

// CommissionDetail is the per-device breakdown of one commission snapshot.
type CommissionDetail struct {
	ID           int64   `json:"id"`
	CommissionID int64   `json:"commission_id"`
	DeviceID     string  `json:"device_id"`
	Month        string  `json:"month"`
	Amount       float64 `json:"amount"`
}
