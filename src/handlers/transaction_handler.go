package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/username/btmdesk/backend/src/logger"
	"github.com/username/btmdesk/backend/src/models"
	"github.com/username/btmdesk/backend/src/services"
	"github.com/username/btmdesk/backend/src/utils"
)

type TransactionHandler struct {
	transactionService *services.TransactionService
}

func NewTransactionHandler(transactionService *services.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

// HandleGetTransactions lists ingested transactions. Optional query params:
// device, start (YYYY-MM-DD, inclusive), end (YYYY-MM-DD, exclusive).
func (h *TransactionHandler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device")

	var start, end *time.Time
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := utils.ParseDate(v)
		if err != nil {
			utils.SendJSONError(w, "Invalid 'start' date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		start = &t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := utils.ParseDate(v)
		if err != nil {
			utils.SendJSONError(w, "Invalid 'end' date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		end = &t
	}

	txs, err := h.transactionService.List(deviceID, start, end)
	if err != nil {
		logger.L.Error("Error listing transactions", "error", err)
		utils.SendJSONError(w, "Error retrieving transactions", http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(txs)
}
