package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/btmdesk/backend/src/logger"
	"github.com/username/btmdesk/backend/src/models"
	"github.com/username/btmdesk/backend/src/services"
	"github.com/username/btmdesk/backend/src/utils"
)

type CommissionHandler struct {
	commissionService *services.CommissionService
}

func NewCommissionHandler(commissionService *services.CommissionService) *CommissionHandler {
	return &CommissionHandler{commissionService: commissionService}
}

// HandleComputeCommissions recomputes one month's payout snapshot, replacing
// any snapshot previously stored for that month.
func (h *CommissionHandler) HandleComputeCommissions(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Month string `json:"month"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	month, err := utils.ParseMonth(payload.Month)
	if err != nil {
		utils.SendJSONError(w, "Invalid 'month', expected YYYY-MM", http.StatusBadRequest)
		return
	}

	commissions, err := h.commissionService.ComputeAndStore(month)
	if err != nil {
		logger.L.Error("Error computing commissions", "month", payload.Month, "error", err)
		utils.SendJSONError(w, "Error computing commissions", http.StatusInternalServerError)
		return
	}
	if commissions == nil {
		commissions = []models.Commission{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(commissions)
}

// HandleListCommissions returns the stored snapshot for ?month=YYYY-MM.
func (h *CommissionHandler) HandleListCommissions(w http.ResponseWriter, r *http.Request) {
	month, err := utils.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		utils.SendJSONError(w, "Invalid or missing 'month', expected YYYY-MM", http.StatusBadRequest)
		return
	}

	commissions, err := h.commissionService.ListMonth(month)
	if err != nil {
		logger.L.Error("Error listing commissions", "error", err)
		utils.SendJSONError(w, "Error retrieving commissions", http.StatusInternalServerError)
		return
	}
	if commissions == nil {
		commissions = []models.Commission{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(commissions)
}
