package models

// ProfitLossRow is one device's aggregate over a reported month window.
// Rent and the management fees are already prorated by MonthCount.
type ProfitLossRow struct {
	DeviceID        string  `json:"device_id"`
	LocationName    string  `json:"location_name"`
	Platform        string  `json:"platform"`
	MonthCount      int     `json:"month_count"`
	TotalSales      float64 `json:"total_sales"`
	TotalFees       float64 `json:"total_fees"`
	FeePercent      float64 `json:"fee_percent"`
	PlatformFees    float64 `json:"platform_fees"`
	Rent            float64 `json:"rent"`
	MgmtGenesis     float64 `json:"mgmt_genesis"`
	MgmtBitaccess   float64 `json:"mgmt_bitaccess"`
	CommissionsPaid float64 `json:"commissions_paid"`
	NetProfit       float64 `json:"net_profit"`
}

// ProfitLossReport is the full report for a window: one row per relevant
// device plus column totals. Rows are ordered by platform ascending, then net
// profit descending.
type ProfitLossReport struct {
	Rows   []ProfitLossRow `json:"rows"`
	Totals ProfitLossRow   `json:"totals"`
}
