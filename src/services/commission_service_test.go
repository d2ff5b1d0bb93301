package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/btmdesk/backend/src/database"
	"github.com/username/btmdesk/backend/src/models"
	"github.com/username/btmdesk/backend/src/processors"
)

func seedCommissionFixture(t *testing.T) (repID int64) {
	t.Helper()
	cashSvc := NewCashService()
	rep := &models.SalesRep{Name: "Alice", CommissionRate: 0.05, Active: true}
	require.NoError(t, cashSvc.CreateSalesRep(rep))

	atmSvc := NewATMService(&noopInvalidator{})
	profile := &models.ATMProfile{
		DeviceID:   "atm-1",
		Platform:   strPtr(models.PlatformGenesis),
		SalesRepID: &rep.ID,
		Active:     true,
	}
	require.NoError(t, atmSvc.Create(profile))

	_, err := database.DB.Exec(
		`INSERT INTO transactions (txid, device_id, fee_amount, date, platform) VALUES (?, ?, ?, ?, ?)`,
		"g-1", "atm-1", 100.0, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), models.PlatformGenesis)
	require.NoError(t, err)
	return rep.ID
}

func TestComputeAndStoreSnapshot(t *testing.T) {
	setupTestDB(t)
	repID := seedCommissionFixture(t)

	inv := &noopInvalidator{}
	svc := NewCommissionService(processors.NewCommissionProcessor(), inv)
	m := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	commissions, err := svc.ComputeAndStore(m)
	require.NoError(t, err)
	require.Len(t, commissions, 1)
	assert.Equal(t, repID, commissions[0].SalesRepID)
	assert.Equal(t, "2024-03", commissions[0].Month)
	assert.InDelta(t, 5.00, commissions[0].Amount, 1e-9)
	assert.Equal(t, 1, inv.calls, "a new snapshot must drop cached reports")

	stored, err := svc.ListMonth(m)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Len(t, stored[0].Details, 1)
	assert.Equal(t, "atm-1", stored[0].Details[0].DeviceID)
}

func TestComputeAndStoreReplacesPriorSnapshot(t *testing.T) {
	setupTestDB(t)
	seedCommissionFixture(t)

	inv := &noopInvalidator{}
	svc := NewCommissionService(processors.NewCommissionProcessor(), inv)
	m := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.ComputeAndStore(m)
	require.NoError(t, err)
	_, err = svc.ComputeAndStore(m)
	require.NoError(t, err)
	assert.Equal(t, 2, inv.calls, "every recompute must invalidate, even when nothing changed")

	stored, err := svc.ListMonth(m)
	require.NoError(t, err)
	assert.Len(t, stored, 1, "recomputing a month replaces its snapshot instead of stacking rows")
}
