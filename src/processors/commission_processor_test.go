package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/btmdesk/backend/src/models"
)

func i64Ptr(i int64) *int64 { return &i }

func feeTx(deviceID string, date time.Time, fee float64) models.Transaction {
	return models.Transaction{DeviceID: deviceID, FeeAmount: f64Ptr(fee), Date: date}
}

func TestComputeMonth(t *testing.T) {
	c := NewCommissionProcessor()
	m := month(2024, time.March)

	reps := []models.SalesRep{
		{ID: 1, Name: "Alice", CommissionRate: 0.05, Active: true},
		{ID: 2, Name: "Bob", CommissionRate: 0.10, Active: true},
	}
	profiles := []models.ATMProfile{
		{ID: 1, DeviceID: "atm-1", SalesRepID: i64Ptr(1)},
		{ID: 2, DeviceID: "atm-2", SalesRepID: i64Ptr(1)},
		{ID: 3, DeviceID: "atm-3", SalesRepID: i64Ptr(2)},
		{ID: 4, DeviceID: "atm-4"}, // unassigned
	}
	txs := []models.Transaction{
		feeTx("atm-1", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), 100),
		feeTx("atm-1", time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), 50),
		feeTx("atm-2", time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), 30),
		feeTx("atm-3", time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), 200),
		feeTx("atm-4", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), 999),
		// Wrong month, ignored.
		feeTx("atm-1", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), 777),
	}

	commissions := c.ComputeMonth(m, reps, profiles, txs)
	require.Len(t, commissions, 2)

	alice := commissions[0]
	assert.Equal(t, int64(1), alice.SalesRepID)
	assert.Equal(t, "2024-03", alice.Month)
	// (150 * 0.05) + (30 * 0.05) = 7.50 + 1.50
	assert.InDelta(t, 9.00, alice.Amount, 1e-9)
	require.Len(t, alice.Details, 2)

	bob := commissions[1]
	assert.InDelta(t, 20.00, bob.Amount, 1e-9)
}

func TestComputeMonthRoundsPerDevice(t *testing.T) {
	c := NewCommissionProcessor()

	reps := []models.SalesRep{{ID: 1, CommissionRate: 0.0333, Active: true}}
	profiles := []models.ATMProfile{{ID: 1, DeviceID: "atm-1", SalesRepID: i64Ptr(1)}}
	txs := []models.Transaction{
		feeTx("atm-1", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), 10),
	}

	commissions := c.ComputeMonth(month(2024, time.March), reps, profiles, txs)
	require.Len(t, commissions, 1)
	// 10 * 0.0333 = 0.333 -> 0.33
	assert.InDelta(t, 0.33, commissions[0].Amount, 1e-9)
}

func TestComputeMonthSkipsInactiveRepsAndZeroFees(t *testing.T) {
	c := NewCommissionProcessor()

	reps := []models.SalesRep{
		{ID: 1, CommissionRate: 0.05, Active: false},
		{ID: 2, CommissionRate: 0.05, Active: true},
	}
	profiles := []models.ATMProfile{
		{ID: 1, DeviceID: "atm-1", SalesRepID: i64Ptr(1)},
		{ID: 2, DeviceID: "atm-2", SalesRepID: i64Ptr(2)},
	}
	txs := []models.Transaction{
		feeTx("atm-1", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), 100),
	}

	commissions := c.ComputeMonth(month(2024, time.March), reps, profiles, txs)
	assert.Empty(t, commissions, "inactive reps and fee-less devices produce no snapshot")
}
