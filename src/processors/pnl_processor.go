package processors

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/username/btmdesk/backend/src/models"
	"github.com/username/btmdesk/backend/src/utils"
)

// PlatformAll disables the platform filter.
const PlatformAll = "all"

// PnLInput is a snapshot of everything the proration engine needs. The engine
// is a pure function over this input; callers load the snapshot and the
// engine never touches the database.
type PnLInput struct {
	// WindowStart and WindowEnd are the first days of the first and last
	// calendar months of the closed reporting window.
	WindowStart time.Time
	WindowEnd   time.Time
	// Platform filters the report to one source platform; PlatformAll or
	// empty includes both.
	Platform string

	Profiles          []models.ATMProfile
	Transactions      []models.Transaction
	CommissionDetails []models.CommissionDetail
}

// MissingFieldsError reports every relevant device that is missing a field
// the proration needs. It is a hard precondition failure: no partial report
// is produced, and all offending ids are named in one message.
type MissingFieldsError struct {
	MissingPlatform    []string
	MissingInstallDate []string
}

func (e *MissingFieldsError) Error() string {
	var parts []string
	if len(e.MissingPlatform) > 0 {
		parts = append(parts, fmt.Sprintf("devices missing platform: %s", strings.Join(e.MissingPlatform, ", ")))
	}
	if len(e.MissingInstallDate) > 0 {
		parts = append(parts, fmt.Sprintf("devices missing installed date: %s", strings.Join(e.MissingInstallDate, ", ")))
	}
	return strings.Join(parts, "; ")
}

type PnLProcessor struct{}

func NewPnLProcessor() *PnLProcessor {
	return &PnLProcessor{}
}

// Process computes one P&L row per relevant device plus column totals.
func (p *PnLProcessor) Process(in PnLInput) (*models.ProfitLossReport, error) {
	wStart := utils.MonthStart(in.WindowStart)
	wEndExcl := utils.NextMonthStart(in.WindowEnd)
	if !wStart.Before(wEndExcl) {
		return nil, fmt.Errorf("invalid report window: start %s after end %s",
			utils.FormatMonth(in.WindowStart), utils.FormatMonth(in.WindowEnd))
	}
	wStartIdx := utils.MonthIndex(wStart)
	wEndIdx := utils.MonthIndex(in.WindowEnd)

	filter := in.Platform
	if filter == "" {
		filter = PlatformAll
	}

	txsByProfile := attributeTransactions(in.Profiles, in.Transactions)

	// Relevance pass: a device is in the report when it has transactions in
	// the window or was active at some point during it.
	type relevantProfile struct {
		profile *models.ATMProfile
		txs     []models.Transaction
	}
	var relevant []relevantProfile
	for i := range in.Profiles {
		profile := &in.Profiles[i]
		var inWindow []models.Transaction
		for _, tx := range txsByProfile[profile.ID] {
			if !tx.Date.Before(wStart) && tx.Date.Before(wEndExcl) {
				inWindow = append(inWindow, tx)
			}
		}
		if len(inWindow) == 0 && !activeDuring(profile, wStart, wEndExcl) {
			continue
		}
		relevant = append(relevant, relevantProfile{profile: profile, txs: inWindow})
	}

	// Precondition pass: every relevant device needs a platform and an
	// install date before anything is computed.
	missing := &MissingFieldsError{}
	for _, r := range relevant {
		if r.profile.Platform == nil {
			missing.MissingPlatform = append(missing.MissingPlatform, r.profile.DeviceID)
		}
		if r.profile.InstalledDate == nil {
			missing.MissingInstallDate = append(missing.MissingInstallDate, r.profile.DeviceID)
		}
	}
	if len(missing.MissingPlatform) > 0 || len(missing.MissingInstallDate) > 0 {
		return nil, missing
	}

	commissionsByDevice, err := sumCommissions(in.CommissionDetails, wStartIdx, wEndIdx)
	if err != nil {
		return nil, err
	}

	report := &models.ProfitLossReport{}
	for _, r := range relevant {
		profile := r.profile
		if !profileMatchesFilter(profile, filter, wStart, wEndExcl) {
			continue
		}

		monthCount := expenseMonths(profile, wStartIdx, wEndIdx)

		var totalSales, totalFees, platformFees float64
		for _, tx := range r.txs {
			if filter != PlatformAll && attributePlatform(profile, tx.Date) != filter {
				continue
			}
			totalSales += utils.Deref(tx.SaleAmount)
			totalFees += utils.Deref(tx.FeeAmount)
			platformFees += utils.Deref(tx.OperatorFee)
		}

		feePercent := 0.0
		if totalSales != 0 {
			feePercent = totalFees / totalSales
		}

		rent := profile.Rent * float64(monthCount)
		mgmtGenesis := profile.MgmtGenesis * float64(monthCount)
		mgmtBitaccess := profile.MgmtBitaccess * float64(monthCount)
		commissionsPaid := commissionsByDevice[profile.DeviceID]

		row := models.ProfitLossRow{
			DeviceID:        profile.DeviceID,
			Platform:        rowPlatform(profile, filter),
			MonthCount:      monthCount,
			TotalSales:      totalSales,
			TotalFees:       totalFees,
			FeePercent:      feePercent,
			PlatformFees:    platformFees,
			Rent:            rent,
			MgmtGenesis:     mgmtGenesis,
			MgmtBitaccess:   mgmtBitaccess,
			CommissionsPaid: commissionsPaid,
			NetProfit:       totalFees - platformFees - rent - mgmtGenesis - mgmtBitaccess - commissionsPaid,
		}
		if profile.LocationName != nil {
			row.LocationName = *profile.LocationName
		}
		report.Rows = append(report.Rows, row)
	}

	// Canonical presentation order: platform ascending, then net profit
	// descending. The device id tiebreak keeps the order stable for
	// identical inputs.
	sort.SliceStable(report.Rows, func(i, j int) bool {
		a, b := report.Rows[i], report.Rows[j]
		if a.Platform != b.Platform {
			return a.Platform < b.Platform
		}
		if a.NetProfit != b.NetProfit {
			return a.NetProfit > b.NetProfit
		}
		return a.DeviceID < b.DeviceID
	})

	for _, row := range report.Rows {
		report.Totals.MonthCount += row.MonthCount
		report.Totals.TotalSales += row.TotalSales
		report.Totals.TotalFees += row.TotalFees
		report.Totals.PlatformFees += row.PlatformFees
		report.Totals.Rent += row.Rent
		report.Totals.MgmtGenesis += row.MgmtGenesis
		report.Totals.MgmtBitaccess += row.MgmtBitaccess
		report.Totals.CommissionsPaid += row.CommissionsPaid
		report.Totals.NetProfit += row.NetProfit
	}
	if report.Totals.TotalSales != 0 {
		report.Totals.FeePercent = report.Totals.TotalFees / report.Totals.TotalSales
	}
	if report.Rows == nil {
		report.Rows = []models.ProfitLossRow{}
	}
	return report, nil
}

// attributeTransactions assigns each transaction to the profile row of its
// device whose install/removal range contains the transaction date. A device
// id reused across non-overlapping installations has several historical rows;
// when no range matches, the transaction falls back to the active row.
func attributeTransactions(profiles []models.ATMProfile, txs []models.Transaction) map[int64][]models.Transaction {
	byDevice := make(map[string][]*models.ATMProfile)
	for i := range profiles {
		p := &profiles[i]
		byDevice[p.DeviceID] = append(byDevice[p.DeviceID], p)
	}

	out := make(map[int64][]models.Transaction)
	for _, tx := range txs {
		rows := byDevice[tx.DeviceID]
		if len(rows) == 0 {
			continue
		}
		target := rows[0]
		for _, p := range rows {
			if containsDate(p, tx.Date) {
				target = p
				break
			}
			if p.Active {
				target = p
			}
		}
		out[target.ID] = append(out[target.ID], tx)
	}
	return out
}

func containsDate(p *models.ATMProfile, date time.Time) bool {
	if p.InstalledDate != nil && date.Before(*p.InstalledDate) {
		return false
	}
	if p.RemovedDate != nil && !date.Before(*p.RemovedDate) {
		return false
	}
	return p.InstalledDate != nil
}

// activeDuring reports whether the device's install/removal dates overlap the
// window at all, independent of transaction activity.
func activeDuring(p *models.ATMProfile, wStart, wEndExcl time.Time) bool {
	if p.InstalledDate == nil {
		return false
	}
	if !p.InstalledDate.Before(wEndExcl) {
		return false
	}
	if p.RemovedDate != nil && !p.RemovedDate.After(wStart) {
		return false
	}
	return true
}

// expenseMonths counts the whole calendar months the device is charged fixed
// costs for, clipped to the window. The install month itself is never
// charged, nor is the removal month: the chargeable interval is
// [installMonth+1, removalMonth-1].
func expenseMonths(p *models.ATMProfile, wStartIdx, wEndIdx int) int {
	if p.InstalledDate == nil {
		return 0
	}
	effStart := utils.MonthIndex(*p.InstalledDate) + 1
	if effStart < wStartIdx {
		effStart = wStartIdx
	}
	effEnd := wEndIdx
	if p.RemovedDate != nil {
		if removalEnd := utils.MonthIndex(*p.RemovedDate) - 1; removalEnd < effEnd {
			effEnd = removalEnd
		}
	}
	if count := effEnd - effStart + 1; count > 0 {
		return count
	}
	return 0
}

// profileMatchesFilter decides device inclusion under a single-platform
// filter. A device that switched platforms mid-window is included under
// either filter; the inclusion is conservative, the window is not split at
// the switch date.
func profileMatchesFilter(p *models.ATMProfile, filter string, wStart, wEndExcl time.Time) bool {
	if filter == PlatformAll {
		return true
	}
	if p.PlatformSwitchDate == nil {
		return p.Platform != nil && *p.Platform == filter
	}
	sw := *p.PlatformSwitchDate
	if !wEndExcl.After(sw) {
		// Window lies entirely before the switch: the device ran Genesis.
		return filter == models.PlatformGenesis
	}
	if !wStart.Before(sw) {
		// Window lies entirely on/after the switch: current profile platform.
		return p.Platform != nil && *p.Platform == filter
	}
	return true
}

// attributePlatform decides which platform a single transaction belongs to,
// by its own date against the device's switch date. The profile is the truth
// here, not the platform tag the CSV row carried.
func attributePlatform(p *models.ATMProfile, date time.Time) string {
	if p.PlatformSwitchDate != nil && date.Before(*p.PlatformSwitchDate) {
		return models.PlatformGenesis
	}
	if p.Platform != nil {
		return *p.Platform
	}
	return ""
}

func rowPlatform(p *models.ATMProfile, filter string) string {
	if filter != PlatformAll {
		return filter
	}
	if p.Platform != nil {
		return *p.Platform
	}
	return ""
}

func sumCommissions(details []models.CommissionDetail, wStartIdx, wEndIdx int) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, d := range details {
		month, err := utils.ParseMonth(d.Month)
		if err != nil {
			return nil, fmt.Errorf("commission detail %d: %w", d.ID, err)
		}
		idx := utils.MonthIndex(month)
		if idx < wStartIdx || idx > wEndIdx {
			continue
		}
		out[d.DeviceID] += d.Amount
	}
	return out, nil
}
