package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/username/btmdesk/backend/src/logger"
	"github.com/username/btmdesk/backend/src/models"
	"github.com/username/btmdesk/backend/src/services"
	"github.com/username/btmdesk/backend/src/utils"
)

type TickerHandler struct {
	tickerService *services.TickerService
}

func NewTickerHandler(tickerService *services.TickerService) *TickerHandler {
	return &TickerHandler{tickerService: tickerService}
}

type tickerUpdatePayload struct {
	DisplayValue  *string `json:"display_value"`
	FeePercentage float64 `json:"fee_percentage"`
}

func (p tickerUpdatePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FeePercentage, validation.Min(0.0), validation.Max(1.0)),
	)
}

func (h *TickerHandler) HandleListTickers(w http.ResponseWriter, r *http.Request) {
	tickers, err := h.tickerService.List()
	if err != nil {
		logger.L.Error("Error listing ticker mappings", "error", err)
		utils.SendJSONError(w, "Error retrieving ticker mappings", http.StatusInternalServerError)
		return
	}
	if tickers == nil {
		tickers = []models.TickerMapping{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tickers)
}

func (h *TickerHandler) HandleUpdateTicker(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid ticker mapping id", http.StatusBadRequest)
		return
	}

	var payload tickerUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := payload.Validate(); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	mapping, err := h.tickerService.Update(id, payload.DisplayValue, payload.FeePercentage)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.SendJSONError(w, "Ticker mapping not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Error updating ticker mapping", "id", id, "error", err)
		utils.SendJSONError(w, "Error updating ticker mapping", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(mapping)
}

// HandleRecalculateFees rewrites the derived fee of every Bitaccess
// transaction of the ticker from its current fee percentage.
func (h *TickerHandler) HandleRecalculateFees(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid ticker mapping id", http.StatusBadRequest)
		return
	}

	updated, err := h.tickerService.RecalculateFees(id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.SendJSONError(w, "Ticker mapping not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Error recalculating ticker fees", "id", id, "error", err)
		utils.SendJSONError(w, "Error recalculating fees", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"updated": updated})
}
