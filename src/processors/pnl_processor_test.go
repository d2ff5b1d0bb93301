package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/btmdesk/backend/src/models"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func genesisProfile(id int64, deviceID string) models.ATMProfile {
	return models.ATMProfile{
		ID:            id,
		DeviceID:      deviceID,
		Platform:      strPtr(models.PlatformGenesis),
		InstalledDate: datePtr(2023, time.January, 10),
		Active:        true,
	}
}

func tx(deviceID string, date time.Time, sale, fee, operator float64) models.Transaction {
	return models.Transaction{
		DeviceID:    deviceID,
		SaleAmount:  f64Ptr(sale),
		FeeAmount:   f64Ptr(fee),
		OperatorFee: f64Ptr(operator),
		Date:        date,
		Platform:    models.PlatformGenesis,
	}
}

func TestProcessBasicAggregation(t *testing.T) {
	p := NewPnLProcessor()
	profile := genesisProfile(1, "atm-1")
	profile.Rent = 100
	profile.MgmtGenesis = 50

	report, err := p.Process(PnLInput{
		WindowStart: month(2024, time.March),
		WindowEnd:   month(2024, time.April),
		Profiles:    []models.ATMProfile{profile},
		Transactions: []models.Transaction{
			tx("atm-1", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), 100, 11, 1),
			tx("atm-1", time.Date(2024, 4, 6, 0, 0, 0, 0, time.UTC), 200, 22, 2),
			// Outside the window, must be ignored.
			tx("atm-1", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 999, 99, 9),
		},
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)

	row := report.Rows[0]
	assert.Equal(t, 2, row.MonthCount)
	assert.InDelta(t, 300, row.TotalSales, 1e-9)
	assert.InDelta(t, 33, row.TotalFees, 1e-9)
	assert.InDelta(t, 3, row.PlatformFees, 1e-9)
	assert.InDelta(t, 0.11, row.FeePercent, 1e-9)
	assert.InDelta(t, 200, row.Rent, 1e-9, "rent prorated over two window months")
	assert.InDelta(t, 100, row.MgmtGenesis, 1e-9)
	// 33 - 3 - 200 - 100
	assert.InDelta(t, -270, row.NetProfit, 1e-9)
	assert.InDelta(t, report.Totals.NetProfit, row.NetProfit, 1e-9)
}

func TestExpenseMonthsExcludeInstallAndRemovalMonths(t *testing.T) {
	p := NewPnLProcessor()

	profile := genesisProfile(1, "atm-1")
	profile.InstalledDate = datePtr(2024, time.March, 15)
	profile.RemovedDate = datePtr(2024, time.July, 2)
	profile.Active = false
	profile.Rent = 1

	report, err := p.Process(PnLInput{
		WindowStart: month(2024, time.January),
		WindowEnd:   month(2024, time.December),
		Profiles:    []models.ATMProfile{profile},
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	// Chargeable months: April, May, June.
	assert.Equal(t, 3, report.Rows[0].MonthCount)
}

func TestExpenseMonthsSingleMonth(t *testing.T) {
	p := NewPnLProcessor()

	// Installed in March, removed in May: only April is charged.
	profile := genesisProfile(1, "atm-1")
	profile.InstalledDate = datePtr(2024, time.March, 1)
	profile.RemovedDate = datePtr(2024, time.May, 31)
	profile.Active = false

	report, err := p.Process(PnLInput{
		WindowStart: month(2024, time.January),
		WindowEnd:   month(2024, time.December),
		Profiles:    []models.ATMProfile{profile},
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, 1, report.Rows[0].MonthCount)
}

func TestExpenseMonthsNeverNegative(t *testing.T) {
	p := NewPnLProcessor()

	// Installed and removed within adjacent months: no chargeable month.
	profile := genesisProfile(1, "atm-1")
	profile.InstalledDate = datePtr(2024, time.March, 1)
	profile.RemovedDate = datePtr(2024, time.April, 15)
	profile.Active = false

	report, err := p.Process(PnLInput{
		WindowStart: month(2024, time.January),
		WindowEnd:   month(2024, time.December),
		Profiles:    []models.ATMProfile{profile},
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, 0, report.Rows[0].MonthCount)
}

func TestExpenseMonthsClippedToWindow(t *testing.T) {
	p := NewPnLProcessor()

	profile := genesisProfile(1, "atm-1")
	profile.InstalledDate = datePtr(2020, time.January, 1)
	profile.Rent = 10

	report, err := p.Process(PnLInput{
		WindowStart: month(2024, time.March),
		WindowEnd:   month(2024, time.May),
		Profiles:    []models.ATMProfile{profile},
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, 3, report.Rows[0].MonthCount)
	assert.InDelta(t, 30, report.Rows[0].Rent, 1e-9)
}

func TestZeroSalesFeePercentIsZero(t *testing.T) {
	p := NewPnLProcessor()

	report, err := p.Process(PnLInput{
		WindowStart: month(2024, time.March),
		WindowEnd:   month(2024, time.March),
		Profiles:    []models.ATMProfile{genesisProfile(1, "atm-1")},
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, 0.0, report.Rows[0].FeePercent, "no division by zero when there are no sales")
}

func TestMissingFieldsFailWholeReport(t *testing.T) {
	p := NewPnLProcessor()

	noPlatform := models.ATMProfile{
		ID: 1, DeviceID: "atm-1",
		InstalledDate: datePtr(2024, time.January, 1), Active: true,
	}
	noInstall := models.ATMProfile{
		ID: 2, DeviceID: "atm-2",
		Platform: strPtr(models.PlatformGenesis), Active: true,
	}
	ok := genesisProfile(3, "atm-3")

	_, err := p.Process(PnLInput{
		WindowStart: month(2024, time.March),
		WindowEnd:   month(2024, time.March),
		Profiles:    []models.ATMProfile{noPlatform, noInstall, ok},
		Transactions: []models.Transaction{
			// atm-2 is relevant through activity, not install dates.
			tx("atm-2", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), 10, 1, 0),
		},
	})
	require.Error(t, err)

	var missing *MissingFieldsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"atm-1"}, missing.MissingPlatform)
	assert.Equal(t, []string{"atm-2"}, missing.MissingInstallDate)
}

func TestIrrelevantDevicesAreSkippedEntirely(t *testing.T) {
	p := NewPnLProcessor()

	// Removed long before the window and without window transactions: its
	// missing platform must not fail the report.
	stale := models.ATMProfile{
		ID: 1, DeviceID: "atm-old",
		InstalledDate: datePtr(2020, time.January, 1),
		RemovedDate:   datePtr(2020, time.June, 1),
	}

	report, err := p.Process(PnLInput{
		WindowStart: month(2024, time.March),
		WindowEnd:   month(2024, time.March),
		Profiles:    []models.ATMProfile{stale, genesisProfile(2, "atm-1")},
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "atm-1", report.Rows[0].DeviceID)
}

func TestPlatformFilterWithSwitchStraddle(t *testing.T) {
	p := NewPnLProcessor()

	switched := models.ATMProfile{
		ID:                 1,
		DeviceID:           "atm-sw",
		Platform:           strPtr(models.PlatformBitaccess),
		PlatformSwitchDate: datePtr(2024, time.March, 15),
		InstalledDate:      datePtr(2023, time.January, 1),
		Active:             true,
	}
	txs := []models.Transaction{
		tx("atm-sw", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 100, 10, 0),
		tx("atm-sw", time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), 200, 20, 0),
	}

	// The window straddles the switch date: the device appears under both
	// filters, with per-transaction attribution by date.
	for _, tc := range []struct {
		filter    string
		wantSales float64
	}{
		{models.PlatformGenesis, 100},
		{models.PlatformBitaccess, 200},
	} {
		report, err := p.Process(PnLInput{
			WindowStart:  month(2024, time.March),
			WindowEnd:    month(2024, time.March),
			Platform:     tc.filter,
			Profiles:     []models.ATMProfile{switched},
			Transactions: txs,
		})
		require.NoError(t, err, tc.filter)
		require.Len(t, report.Rows, 1, tc.filter)
		assert.InDelta(t, tc.wantSales, report.Rows[0].TotalSales, 1e-9, tc.filter)
	}
}

func TestPlatformFilterWindowBeforeSwitch(t *testing.T) {
	p := NewPnLProcessor()

	switched := models.ATMProfile{
		ID:                 1,
		DeviceID:           "atm-sw",
		Platform:           strPtr(models.PlatformBitaccess),
		PlatformSwitchDate: datePtr(2024, time.June, 1),
		InstalledDate:      datePtr(2023, time.January, 1),
		Active:             true,
	}

	// Window entirely before the switch: the device ran Genesis then.
	report, err := p.Process(PnLInput{
		WindowStart: month(2024, time.March),
		WindowEnd:   month(2024, time.March),
		Platform:    models.PlatformBitaccess,
		Profiles:    []models.ATMProfile{switched},
	})
	require.NoError(t, err)
	assert.Empty(t, report.Rows)

	report, err = p.Process(PnLInput{
		WindowStart: month(2024, time.March),
		WindowEnd:   month(2024, time.March),
		Platform:    models.PlatformGenesis,
		Profiles:    []models.ATMProfile{switched},
	})
	require.NoError(t, err)
	assert.Len(t, report.Rows, 1)
}

func TestRowOrdering(t *testing.T) {
	p := NewPnLProcessor()

	mkProfile := func(id int64, deviceID, platform string) models.ATMProfile {
		pr := genesisProfile(id, deviceID)
		pr.Platform = strPtr(platform)
		return pr
	}
	profiles := []models.ATMProfile{
		mkProfile(1, "g-low", models.PlatformGenesis),
		mkProfile(2, "g-high", models.PlatformGenesis),
		mkProfile(3, "b-1", models.PlatformBitaccess),
		mkProfile(4, "g-tie-b", models.PlatformGenesis),
		mkProfile(5, "g-tie-a", models.PlatformGenesis),
	}
	when := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	txs := []models.Transaction{
		tx("g-low", when, 10, 1, 0),
		tx("g-high", when, 100, 50, 0),
	}

	report, err := p.Process(PnLInput{
		WindowStart:  month(2024, time.March),
		WindowEnd:    month(2024, time.March),
		Profiles:     profiles,
		Transactions: txs,
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 5)

	var order []string
	for _, r := range report.Rows {
		order = append(order, r.DeviceID)
	}
	// bitaccess sorts before genesis; within genesis net profit descending;
	// ties break on device id ascending.
	assert.Equal(t, []string{"b-1", "g-high", "g-low", "g-tie-a", "g-tie-b"}, order)
}

func TestCommissionsPaidReduceNetProfit(t *testing.T) {
	p := NewPnLProcessor()
	profile := genesisProfile(1, "atm-1")

	report, err := p.Process(PnLInput{
		WindowStart: month(2024, time.March),
		WindowEnd:   month(2024, time.April),
		Profiles:    []models.ATMProfile{profile},
		Transactions: []models.Transaction{
			tx("atm-1", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 100, 10, 0),
		},
		CommissionDetails: []models.CommissionDetail{
			{DeviceID: "atm-1", Month: "2024-03", Amount: 2.5},
			{DeviceID: "atm-1", Month: "2024-04", Amount: 1.5},
			// Outside the window, ignored.
			{DeviceID: "atm-1", Month: "2024-06", Amount: 100},
		},
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.InDelta(t, 4.0, report.Rows[0].CommissionsPaid, 1e-9)
	assert.InDelta(t, 6.0, report.Rows[0].NetProfit, 1e-9)
}

func TestInvalidWindowRejected(t *testing.T) {
	p := NewPnLProcessor()
	_, err := p.Process(PnLInput{
		WindowStart: month(2024, time.May),
		WindowEnd:   month(2024, time.March),
	})
	assert.Error(t, err)
}

func TestHistoricalReinstallAttribution(t *testing.T) {
	p := NewPnLProcessor()

	// Same device id, two non-overlapping installations. The transaction in
	// the old period belongs to the historical row.
	old := models.ATMProfile{
		ID: 1, DeviceID: "atm-1",
		Platform:      strPtr(models.PlatformGenesis),
		InstalledDate: datePtr(2023, time.January, 1),
		RemovedDate:   datePtr(2023, time.June, 1),
	}
	current := models.ATMProfile{
		ID: 2, DeviceID: "atm-1",
		Platform:      strPtr(models.PlatformGenesis),
		InstalledDate: datePtr(2024, time.January, 1),
		Active:        true,
	}

	report, err := p.Process(PnLInput{
		WindowStart: month(2023, time.March),
		WindowEnd:   month(2023, time.March),
		Profiles:    []models.ATMProfile{old, current},
		Transactions: []models.Transaction{
			tx("atm-1", time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC), 100, 10, 0),
		},
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.InDelta(t, 100, report.Rows[0].TotalSales, 1e-9)
}
