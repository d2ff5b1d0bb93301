package models

import "time"

// Person is someone who physically collects cash from machines.
type Person struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Phone  *string `json:"phone"`
	Active bool    `json:"active"`
}

// SalesRep earns a monthly commission on the fee revenue of assigned devices.
type SalesRep struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	CommissionRate float64 `json:"commission_rate"`
	Active         bool    `json:"active"`
}

// CashPickup records cash collected from one device by one person.
type CashPickup struct {
	ID         int64     `json:"id"`
	DeviceID   string    `json:"device_id"`
	PersonID   int64     `json:"person_id"`
	Amount     float64   `json:"amount"`
	PickupDate time.Time `json:"pickup_date"`
	Notes      *string   `json:"notes"`
}

// Deposit is a bank deposit of collected cash. DepositNo is a natural key
// taken from the bank slip.
type Deposit struct {
	ID          int64     `json:"id"`
	DepositNo   string    `json:"deposit_no"`
	Amount      float64   `json:"amount"`
	DepositDate time.Time `json:"deposit_date"`
	Bank        *string   `json:"bank"`
	Notes       *string   `json:"notes"`
}

// DepositPickupLink ties a bank deposit to the pickups it covers.
type DepositPickupLink struct {
	ID        int64 `json:"id"`
	DepositID int64 `json:"deposit_id"`
	PickupID  int64 `json:"pickup_id"`
}
