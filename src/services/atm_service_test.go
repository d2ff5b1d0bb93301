package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/btmdesk/backend/src/models"
)

func dPtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestWindowsOverlap(t *testing.T) {
	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd *time.Time
		want                       bool
	}{
		{"disjoint", dPtr(2024, 1, 1), dPtr(2024, 3, 1), dPtr(2024, 4, 1), dPtr(2024, 6, 1), false},
		{"overlapping", dPtr(2024, 1, 1), dPtr(2024, 5, 1), dPtr(2024, 4, 1), dPtr(2024, 6, 1), true},
		{"touching boundary", dPtr(2024, 1, 1), dPtr(2024, 3, 1), dPtr(2024, 3, 1), dPtr(2024, 6, 1), true},
		{"contained", dPtr(2024, 1, 1), dPtr(2024, 12, 1), dPtr(2024, 4, 1), dPtr(2024, 6, 1), true},
		{"open end overlaps later window", dPtr(2024, 1, 1), nil, dPtr(2024, 4, 1), dPtr(2024, 6, 1), true},
		{"open end after closed window", dPtr(2024, 7, 1), nil, dPtr(2024, 4, 1), dPtr(2024, 6, 1), false},
		{"both fully open", nil, nil, nil, nil, true},
		{"open start before closed window", nil, dPtr(2024, 2, 1), dPtr(2024, 4, 1), dPtr(2024, 6, 1), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, windowsOverlap(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
			assert.Equal(t, tc.want, windowsOverlap(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd), "overlap must be symmetric")
		})
	}
}

func TestCreateRejectsSecondActiveProfile(t *testing.T) {
	setupTestDB(t)
	inv := &noopInvalidator{}
	svc := NewATMService(inv)

	first := &models.ATMProfile{
		DeviceID:      "atm-1",
		Platform:      strPtr(models.PlatformGenesis),
		InstalledDate: dPtr(2024, 1, 15),
		Active:        true,
	}
	require.NoError(t, svc.Create(first))
	assert.NotZero(t, first.ID)
	assert.Equal(t, 1, inv.calls)

	second := &models.ATMProfile{
		DeviceID:      "atm-1",
		Platform:      strPtr(models.PlatformBitaccess),
		InstalledDate: dPtr(2025, 1, 1),
		Active:        true,
	}
	err := svc.Create(second)
	assert.ErrorIs(t, err, ErrProfileConflict)
	assert.Equal(t, 1, inv.calls, "rejected create must not invalidate the cache")
}

func TestCreateRejectsOverlappingWindows(t *testing.T) {
	setupTestDB(t)
	svc := NewATMService(&noopInvalidator{})

	old := &models.ATMProfile{
		DeviceID:      "atm-1",
		Platform:      strPtr(models.PlatformGenesis),
		InstalledDate: dPtr(2023, 1, 1),
		RemovedDate:   dPtr(2023, 6, 1),
		Active:        true, // forced off by the removal date
	}
	require.NoError(t, svc.Create(old))
	assert.False(t, old.Active)

	overlapping := &models.ATMProfile{
		DeviceID:      "atm-1",
		Platform:      strPtr(models.PlatformGenesis),
		InstalledDate: dPtr(2023, 5, 1),
		Active:        true,
	}
	assert.ErrorIs(t, svc.Create(overlapping), ErrProfileConflict)

	// A reinstall after the old removal date is fine.
	reinstall := &models.ATMProfile{
		DeviceID:      "atm-1",
		Platform:      strPtr(models.PlatformGenesis),
		InstalledDate: dPtr(2023, 7, 1),
		Active:        true,
	}
	require.NoError(t, svc.Create(reinstall))

	profiles, err := svc.List()
	require.NoError(t, err)
	assert.Len(t, profiles, 2)
}

func TestDeleteGuardedByTransactions(t *testing.T) {
	setupTestDB(t)
	inv := &noopInvalidator{}
	atmSvc := NewATMService(inv)
	uploadSvc := NewUploadService(inv)

	// Ingest creates a discovered profile for atm-1 with transactions.
	_, err := uploadSvc.ProcessUpload(strings.NewReader(genesisCSV), "march.csv")
	require.NoError(t, err)

	profiles, err := atmSvc.List()
	require.NoError(t, err)
	var withHistory *models.ATMProfile
	for i := range profiles {
		if profiles[i].DeviceID == "atm-1" {
			withHistory = &profiles[i]
		}
	}
	require.NotNil(t, withHistory)

	err = atmSvc.Delete(withHistory.ID)
	assert.ErrorIs(t, err, ErrHasLinkedRecords)

	// Still deletable once nothing references the device.
	fresh := &models.ATMProfile{DeviceID: "atm-99", Platform: strPtr(models.PlatformGenesis), Active: true}
	require.NoError(t, atmSvc.Create(fresh))
	require.NoError(t, atmSvc.Delete(fresh.ID))
	assert.ErrorIs(t, atmSvc.Delete(fresh.ID), ErrNotFound)
}
