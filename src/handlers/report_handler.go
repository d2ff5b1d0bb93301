package handlers

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/username/btmdesk/backend/src/logger"
	"github.com/username/btmdesk/backend/src/models"
	"github.com/username/btmdesk/backend/src/processors"
	"github.com/username/btmdesk/backend/src/security/validation"
	"github.com/username/btmdesk/backend/src/services"
	"github.com/username/btmdesk/backend/src/utils"
)

type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// HandleGetProfitLoss serves the P&L report for a closed month window.
// Query params: start=YYYY-MM, end=YYYY-MM, platform=genesis|bitaccess|all.
func (h *ReportHandler) HandleGetProfitLoss(w http.ResponseWriter, r *http.Request) {
	start, end, platform, ok := h.parseReportParams(w, r)
	if !ok {
		return
	}

	report, err := h.reportService.GetProfitLoss(start, end, platform)
	if err != nil {
		h.writeReportError(w, err)
		return
	}

	currentETag, etagErr := utils.GenerateETag(report)
	w.Header().Set("Cache-Control", "no-cache, private")
	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("%q", currentETag)
		w.Header().Set("ETag", quotedETag)
		for _, cETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		logger.L.Error("Error encoding P&L report", "error", err)
	}
}

// HandleExportProfitLoss serves the same report as a CSV download. Every cell
// passes through the formula-injection sanitizer before it is written.
func (h *ReportHandler) HandleExportProfitLoss(w http.ResponseWriter, r *http.Request) {
	start, end, platform, ok := h.parseReportParams(w, r)
	if !ok {
		return
	}

	report, err := h.reportService.GetProfitLoss(start, end, platform)
	if err != nil {
		h.writeReportError(w, err)
		return
	}

	filename := fmt.Sprintf("pnl_%s_%s.csv", utils.FormatMonth(start), utils.FormatMonth(end))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	header := []string{"device_id", "location", "platform", "months", "total_sales", "total_fees",
		"fee_percent", "platform_fees", "rent", "mgmt_genesis", "mgmt_bitaccess",
		"commissions_paid", "net_profit"}
	if err := cw.Write(header); err != nil {
		logger.L.Error("Error writing CSV header", "error", err)
		return
	}

	money := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	clean := validation.SanitizeForFormulaInjection
	for _, row := range report.Rows {
		record := []string{
			clean(row.DeviceID),
			clean(row.LocationName),
			clean(row.Platform),
			strconv.Itoa(row.MonthCount),
			money(row.TotalSales),
			money(row.TotalFees),
			strconv.FormatFloat(row.FeePercent, 'f', 4, 64),
			money(row.PlatformFees),
			money(row.Rent),
			money(row.MgmtGenesis),
			money(row.MgmtBitaccess),
			money(row.CommissionsPaid),
			money(row.NetProfit),
		}
		if err := cw.Write(record); err != nil {
			logger.L.Error("Error writing CSV row", "deviceID", row.DeviceID, "error", err)
			return
		}
	}
	totals := report.Totals
	totalsRecord := []string{"TOTAL", "", "", "",
		money(totals.TotalSales), money(totals.TotalFees), "",
		money(totals.PlatformFees), money(totals.Rent), money(totals.MgmtGenesis),
		money(totals.MgmtBitaccess), money(totals.CommissionsPaid), money(totals.NetProfit)}
	if err := cw.Write(totalsRecord); err != nil {
		logger.L.Error("Error writing CSV totals row", "error", err)
		return
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		logger.L.Error("Error flushing CSV export", "error", err)
	}
}

func (h *ReportHandler) parseReportParams(w http.ResponseWriter, r *http.Request) (start, end time.Time, platform string, ok bool) {
	var err error
	start, err = utils.ParseMonth(r.URL.Query().Get("start"))
	if err != nil {
		utils.SendJSONError(w, "Invalid or missing 'start', expected YYYY-MM", http.StatusBadRequest)
		return
	}
	end, err = utils.ParseMonth(r.URL.Query().Get("end"))
	if err != nil {
		utils.SendJSONError(w, "Invalid or missing 'end', expected YYYY-MM", http.StatusBadRequest)
		return
	}
	if end.Before(start) {
		utils.SendJSONError(w, "'end' must not be before 'start'", http.StatusBadRequest)
		return
	}

	platform = r.URL.Query().Get("platform")
	if platform == "" {
		platform = processors.PlatformAll
	}
	switch platform {
	case processors.PlatformAll, models.PlatformGenesis, models.PlatformBitaccess:
	default:
		utils.SendJSONError(w, "Invalid 'platform', expected genesis, bitaccess or all", http.StatusBadRequest)
		return
	}
	ok = true
	return
}

func (h *ReportHandler) writeReportError(w http.ResponseWriter, err error) {
	var missing *processors.MissingFieldsError
	if errors.As(err, &missing) {
		utils.SendJSONError(w, missing.Error(), http.StatusUnprocessableEntity)
		return
	}
	logger.L.Error("Error computing P&L report", "error", err)
	utils.SendJSONError(w, "Error computing report", http.StatusInternalServerError)
}
