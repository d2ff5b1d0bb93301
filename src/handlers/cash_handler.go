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

// CashHandler covers cash pickups, bank deposits and the links between them.
type CashHandler struct {
	cashService *services.CashService
}

func NewCashHandler(cashService *services.CashService) *CashHandler {
	return &CashHandler{cashService: cashService}
}

type pickupPayload struct {
	DeviceID   string  `json:"device_id"`
	PersonID   int64   `json:"person_id"`
	Amount     float64 `json:"amount"`
	PickupDate string  `json:"pickup_date"`
	Notes      *string `json:"notes"`
}

func (p pickupPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.DeviceID, validation.Required),
		validation.Field(&p.PersonID, validation.Required),
		validation.Field(&p.Amount, validation.Required, validation.Min(0.01)),
		validation.Field(&p.PickupDate, validation.Required, validation.Date(utils.DefaultDateFormat)),
	)
}

type depositPayload struct {
	DepositNo   string  `json:"deposit_no"`
	Amount      float64 `json:"amount"`
	DepositDate string  `json:"deposit_date"`
	Bank        *string `json:"bank"`
	Notes       *string `json:"notes"`
}

func (p depositPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.DepositNo, validation.Required, validation.Length(1, 64)),
		validation.Field(&p.Amount, validation.Required, validation.Min(0.01)),
		validation.Field(&p.DepositDate, validation.Required, validation.Date(utils.DefaultDateFormat)),
	)
}

func (h *CashHandler) HandleListPickups(w http.ResponseWriter, r *http.Request) {
	pickups, err := h.cashService.ListPickups()
	if err != nil {
		logger.L.Error("Error listing pickups", "error", err)
		utils.SendJSONError(w, "Error retrieving pickups", http.StatusInternalServerError)
		return
	}
	if pickups == nil {
		pickups = []models.CashPickup{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pickups)
}

func (h *CashHandler) HandleCreatePickup(w http.ResponseWriter, r *http.Request) {
	var payload pickupPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := payload.Validate(); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	pickupDate, err := utils.ParseDate(payload.PickupDate)
	if err != nil {
		utils.SendJSONError(w, "Invalid pickup_date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	pickup := &models.CashPickup{
		DeviceID:   payload.DeviceID,
		PersonID:   payload.PersonID,
		Amount:     payload.Amount,
		PickupDate: pickupDate,
		Notes:      payload.Notes,
	}
	if err := h.cashService.CreatePickup(pickup); err != nil {
		logger.L.Error("Error creating pickup", "error", err)
		utils.SendJSONError(w, "Error creating pickup", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(pickup)
}

func (h *CashHandler) HandleDeletePickup(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid pickup id", http.StatusBadRequest)
		return
	}
	if err := h.cashService.DeletePickup(id); err != nil {
		switch {
		case errors.Is(err, services.ErrHasLinkedRecords):
			utils.SendJSONError(w, "Pickup is linked to a deposit; unlink it first", http.StatusConflict)
		case errors.Is(err, services.ErrNotFound):
			utils.SendJSONError(w, "Pickup not found", http.StatusNotFound)
		default:
			logger.L.Error("Error deleting pickup", "id", id, "error", err)
			utils.SendJSONError(w, "Error deleting pickup", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CashHandler) HandleListDeposits(w http.ResponseWriter, r *http.Request) {
	deposits, err := h.cashService.ListDeposits()
	if err != nil {
		logger.L.Error("Error listing deposits", "error", err)
		utils.SendJSONError(w, "Error retrieving deposits", http.StatusInternalServerError)
		return
	}
	if deposits == nil {
		deposits = []models.Deposit{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(deposits)
}

func (h *CashHandler) HandleCreateDeposit(w http.ResponseWriter, r *http.Request) {
	var payload depositPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := payload.Validate(); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	depositDate, err := utils.ParseDate(payload.DepositDate)
	if err != nil {
		utils.SendJSONError(w, "Invalid deposit_date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	deposit := &models.Deposit{
		DepositNo:   payload.DepositNo,
		Amount:      payload.Amount,
		DepositDate: depositDate,
		Bank:        payload.Bank,
		Notes:       payload.Notes,
	}
	if err := h.cashService.CreateDeposit(deposit); err != nil {
		if errors.Is(err, services.ErrDuplicateKey) {
			utils.SendJSONError(w, "A deposit with that deposit number already exists", http.StatusConflict)
			return
		}
		logger.L.Error("Error creating deposit", "error", err)
		utils.SendJSONError(w, "Error creating deposit", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(deposit)
}

func (h *CashHandler) HandleDeleteDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid deposit id", http.StatusBadRequest)
		return
	}
	if err := h.cashService.DeleteDeposit(id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.SendJSONError(w, "Deposit not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Error deleting deposit", "id", id, "error", err)
		utils.SendJSONError(w, "Error deleting deposit", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleLinkPickups attaches a set of pickups to a deposit.
func (h *CashHandler) HandleLinkPickups(w http.ResponseWriter, r *http.Request) {
	depositID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid deposit id", http.StatusBadRequest)
		return
	}

	var payload struct {
		PickupIDs []int64 `json:"pickup_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(payload.PickupIDs) == 0 {
		utils.SendJSONError(w, "pickup_ids must not be empty", http.StatusBadRequest)
		return
	}

	links, err := h.cashService.LinkPickups(depositID, payload.PickupIDs)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.SendJSONError(w, "Deposit not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Error linking pickups to deposit", "depositID", depositID, "error", err)
		utils.SendJSONError(w, "Error linking pickups", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(links)
}
