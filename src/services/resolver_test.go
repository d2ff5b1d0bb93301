package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/btmdesk/backend/src/models"
)

func strPtr(s string) *string { return &s }

func TestResolveTickerKnown(t *testing.T) {
	ctx := newLookupContext([]models.TickerMapping{
		{ID: 1, OriginalValue: "BTC_raw", DisplayValue: strPtr("BTC"), FeePercentage: 0.12},
		{ID: 2, OriginalValue: "LTC", FeePercentage: 0.08},
	}, nil)

	display := ctx.resolveTicker(" BTC_raw ")
	require.NotNil(t, display)
	assert.Equal(t, "BTC", *display)

	// No display override falls back to the original value.
	display = ctx.resolveTicker("LTC")
	require.NotNil(t, display)
	assert.Equal(t, "LTC", *display)

	assert.Empty(t, ctx.newTickers)
}

func TestResolveTickerEmpty(t *testing.T) {
	ctx := newLookupContext(nil, nil)
	assert.Nil(t, ctx.resolveTicker(""))
	assert.Nil(t, ctx.resolveTicker("   "))
	assert.Empty(t, ctx.newTickers)
}

func TestResolveTickerUnknownGetsDefaultFee(t *testing.T) {
	ctx := newLookupContext(nil, nil)

	display := ctx.resolveTicker("DOGE")
	require.NotNil(t, display)
	assert.Equal(t, "DOGE", *display)
	require.Len(t, ctx.newTickers, 1)
	assert.Equal(t, defaultTickerFee, ctx.newTickers[0].FeePercentage)

	// Second occurrence in the same upload resolves from memory, no second
	// queue entry.
	display = ctx.resolveTicker("DOGE")
	require.NotNil(t, display)
	assert.Equal(t, "DOGE", *display)
	assert.Len(t, ctx.newTickers, 1)

	assert.Equal(t, defaultTickerFee, ctx.feeFor("DOGE"))
}

func TestResolveDeviceKeepsCuratedLocation(t *testing.T) {
	ctx := newLookupContext(nil, []models.ATMProfile{
		{ID: 5, DeviceID: "atm-1", LocationName: strPtr("Curated Name"), Active: true},
	})

	id := ctx.resolveDevice("atm-1", "CSV Name")
	assert.Equal(t, "atm-1", id)
	assert.Equal(t, "Curated Name", *ctx.devices["atm-1"].LocationName)
	assert.Empty(t, ctx.locationFills)
}

func TestResolveDeviceFillsNullLocation(t *testing.T) {
	ctx := newLookupContext(nil, []models.ATMProfile{
		{ID: 5, DeviceID: "atm-1", Active: true},
	})

	ctx.resolveDevice("atm-1", "Gas Station")
	require.Len(t, ctx.locationFills, 1)
	assert.Equal(t, "Gas Station", *ctx.locationFills[0].LocationName)
}

func TestResolveDeviceUnknownQueued(t *testing.T) {
	ctx := newLookupContext(nil, nil)

	id := ctx.resolveDevice(" atm-9 ", "Somewhere")
	assert.Equal(t, "atm-9", id)
	require.Len(t, ctx.newDevices, 1)
	assert.True(t, ctx.newDevices[0].Active)
	assert.Equal(t, "Somewhere", *ctx.newDevices[0].LocationName)

	// Repeats resolve consistently without another queue entry.
	ctx.resolveDevice("atm-9", "Somewhere Else")
	assert.Len(t, ctx.newDevices, 1)
}

func TestResolveDeviceIgnoresRemovedRows(t *testing.T) {
	ctx := newLookupContext(nil, []models.ATMProfile{
		{ID: 3, DeviceID: "atm-1", LocationName: strPtr("Old Spot"), Active: false},
	})

	// The removed installation does not resolve; the device counts as new.
	ctx.resolveDevice("atm-1", "New Spot")
	require.Len(t, ctx.newDevices, 1)
}

func TestResolveDeviceEmpty(t *testing.T) {
	ctx := newLookupContext(nil, nil)
	assert.Equal(t, "", ctx.resolveDevice("", "name"))
	assert.Empty(t, ctx.newDevices)
}
