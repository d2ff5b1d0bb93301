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

// PeopleHandler covers pickup people and sales reps; both are small
// name-plus-attributes records with guarded deletes.
type PeopleHandler struct {
	cashService *services.CashService
}

func NewPeopleHandler(cashService *services.CashService) *PeopleHandler {
	return &PeopleHandler{cashService: cashService}
}

type personPayload struct {
	Name   string  `json:"name"`
	Phone  *string `json:"phone"`
	Active bool    `json:"active"`
}

func (p personPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 120)),
	)
}

type salesRepPayload struct {
	Name           string  `json:"name"`
	CommissionRate float64 `json:"commission_rate"`
	Active         bool    `json:"active"`
}

func (p salesRepPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&p.CommissionRate, validation.Min(0.0), validation.Max(1.0)),
	)
}

func (h *PeopleHandler) HandleListPeople(w http.ResponseWriter, r *http.Request) {
	people, err := h.cashService.ListPeople()
	if err != nil {
		logger.L.Error("Error listing people", "error", err)
		utils.SendJSONError(w, "Error retrieving people", http.StatusInternalServerError)
		return
	}
	if people == nil {
		people = []models.Person{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(people)
}

func (h *PeopleHandler) HandleCreatePerson(w http.ResponseWriter, r *http.Request) {
	var payload personPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := payload.Validate(); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	person := &models.Person{Name: payload.Name, Phone: payload.Phone, Active: payload.Active}
	if err := h.cashService.CreatePerson(person); err != nil {
		logger.L.Error("Error creating person", "error", err)
		utils.SendJSONError(w, "Error creating person", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(person)
}

func (h *PeopleHandler) HandleUpdatePerson(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid person id", http.StatusBadRequest)
		return
	}
	var payload personPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := payload.Validate(); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	person := &models.Person{ID: id, Name: payload.Name, Phone: payload.Phone, Active: payload.Active}
	if err := h.cashService.UpdatePerson(person); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.SendJSONError(w, "Person not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Error updating person", "id", id, "error", err)
		utils.SendJSONError(w, "Error updating person", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(person)
}

func (h *PeopleHandler) HandleDeletePerson(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid person id", http.StatusBadRequest)
		return
	}
	if err := h.cashService.DeletePerson(id); err != nil {
		switch {
		case errors.Is(err, services.ErrHasLinkedRecords):
			utils.SendJSONError(w, "Person has recorded pickups; deactivate instead of deleting", http.StatusConflict)
		case errors.Is(err, services.ErrNotFound):
			utils.SendJSONError(w, "Person not found", http.StatusNotFound)
		default:
			logger.L.Error("Error deleting person", "id", id, "error", err)
			utils.SendJSONError(w, "Error deleting person", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PeopleHandler) HandleListSalesReps(w http.ResponseWriter, r *http.Request) {
	reps, err := h.cashService.ListSalesReps()
	if err != nil {
		logger.L.Error("Error listing sales reps", "error", err)
		utils.SendJSONError(w, "Error retrieving sales reps", http.StatusInternalServerError)
		return
	}
	if reps == nil {
		reps = []models.SalesRep{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reps)
}

func (h *PeopleHandler) HandleCreateSalesRep(w http.ResponseWriter, r *http.Request) {
	var payload salesRepPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := payload.Validate(); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	rep := &models.SalesRep{Name: payload.Name, CommissionRate: payload.CommissionRate, Active: payload.Active}
	if err := h.cashService.CreateSalesRep(rep); err != nil {
		logger.L.Error("Error creating sales rep", "error", err)
		utils.SendJSONError(w, "Error creating sales rep", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rep)
}

func (h *PeopleHandler) HandleUpdateSalesRep(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid sales rep id", http.StatusBadRequest)
		return
	}
	var payload salesRepPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := payload.Validate(); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	rep := &models.SalesRep{ID: id, Name: payload.Name, CommissionRate: payload.CommissionRate, Active: payload.Active}
	if err := h.cashService.UpdateSalesRep(rep); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.SendJSONError(w, "Sales rep not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Error updating sales rep", "id", id, "error", err)
		utils.SendJSONError(w, "Error updating sales rep", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rep)
}

func (h *PeopleHandler) HandleDeleteSalesRep(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid sales rep id", http.StatusBadRequest)
		return
	}
	if err := h.cashService.DeleteSalesRep(id); err != nil {
		switch {
		case errors.Is(err, services.ErrHasLinkedRecords):
			utils.SendJSONError(w, "Sales rep has device assignments or snapshots; deactivate instead of deleting", http.StatusConflict)
		case errors.Is(err, services.ErrNotFound):
			utils.SendJSONError(w, "Sales rep not found", http.StatusNotFound)
		default:
			logger.L.Error("Error deleting sales rep", "id", id, "error", err)
			utils.SendJSONError(w, "Error deleting sales rep", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
