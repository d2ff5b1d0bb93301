package processors

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/btmdesk/backend/src/models"
	"github.com/username/btmdesk/backend/src/utils"
)

// CommissionProcessor builds the per-rep monthly payout snapshots. The
// snapshot is a cache for payout tracking; it is recomputed from transactions
// and device assignments, never edited in place.
type CommissionProcessor struct{}

func NewCommissionProcessor() *CommissionProcessor {
	return &CommissionProcessor{}
}

// ComputeMonth computes one commission per active rep for the given calendar
// month (first day of month). Per assigned device, the rep earns the device's
// total fee revenue for the month times the rep's commission rate, rounded to
// cents. Reps with no fee revenue that month produce no snapshot.
func (c *CommissionProcessor) ComputeMonth(month time.Time, reps []models.SalesRep, profiles []models.ATMProfile, txs []models.Transaction) []models.Commission {
	mStart := utils.MonthStart(month)
	mEndExcl := utils.NextMonthStart(month)
	monthStr := utils.FormatMonth(month)

	feesByDevice := make(map[string]float64)
	for _, tx := range txs {
		if tx.Date.Before(mStart) || !tx.Date.Before(mEndExcl) {
			continue
		}
		feesByDevice[tx.DeviceID] += utils.Deref(tx.FeeAmount)
	}

	devicesByRep := make(map[int64][]string)
	for _, p := range profiles {
		if p.SalesRepID != nil {
			devicesByRep[*p.SalesRepID] = append(devicesByRep[*p.SalesRepID], p.DeviceID)
		}
	}

	var commissions []models.Commission
	for _, rep := range reps {
		if !rep.Active {
			continue
		}
		rate := decimal.NewFromFloat(rep.CommissionRate)

		var details []models.CommissionDetail
		total := decimal.Zero
		for _, deviceID := range devicesByRep[rep.ID] {
			fees := feesByDevice[deviceID]
			if fees == 0 {
				continue
			}
			amount := decimal.NewFromFloat(fees).Mul(rate).Round(2)
			total = total.Add(amount)
			f, _ := amount.Float64()
			details = append(details, models.CommissionDetail{
				DeviceID: deviceID,
				Month:    monthStr,
				Amount:   f,
			})
		}
		if len(details) == 0 {
			continue
		}

		totalF, _ := total.Float64()
		commissions = append(commissions, models.Commission{
			SalesRepID: rep.ID,
			Month:      monthStr,
			Amount:     totalF,
			Details:    details,
		})
	}
	return commissions
}
