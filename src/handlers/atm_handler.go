package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/username/btmdesk/backend/src/logger"
	"github.com/username/btmdesk/backend/src/models"
	"github.com/username/btmdesk/backend/src/services"
	"github.com/username/btmdesk/backend/src/utils"
)

type ATMHandler struct {
	atmService *services.ATMService
}

func NewATMHandler(atmService *services.ATMService) *ATMHandler {
	return &ATMHandler{atmService: atmService}
}

// atmProfilePayload is the wire form of an ATM profile; dates travel as
// YYYY-MM-DD strings.
type atmProfilePayload struct {
	DeviceID           string   `json:"device_id"`
	LocationName       *string  `json:"location_name"`
	Platform           *string  `json:"platform"`
	PlatformSwitchDate *string  `json:"platform_switch_date"`
	InstalledDate      *string  `json:"installed_date"`
	RemovedDate        *string  `json:"removed_date"`
	Rent               float64  `json:"rent"`
	MgmtGenesis        float64  `json:"mgmt_genesis"`
	MgmtBitaccess      float64  `json:"mgmt_bitaccess"`
	SalesRepID         *int64   `json:"sales_rep_id"`
	Active             bool     `json:"active"`
}

func (p atmProfilePayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.DeviceID, validation.Required, validation.Length(1, 64)),
		validation.Field(&p.Platform, validation.In(models.PlatformGenesis, models.PlatformBitaccess)),
		validation.Field(&p.Rent, validation.Min(0.0)),
		validation.Field(&p.MgmtGenesis, validation.Min(0.0)),
		validation.Field(&p.MgmtBitaccess, validation.Min(0.0)),
	)
}

func (p atmProfilePayload) toModel() (*models.ATMProfile, error) {
	parseDatePtr := func(s *string) (*time.Time, error) {
		if s == nil || *s == "" {
			return nil, nil
		}
		t, err := utils.ParseDate(*s)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}

	switchDate, err := parseDatePtr(p.PlatformSwitchDate)
	if err != nil {
		return nil, err
	}
	installed, err := parseDatePtr(p.InstalledDate)
	if err != nil {
		return nil, err
	}
	removed, err := parseDatePtr(p.RemovedDate)
	if err != nil {
		return nil, err
	}

	return &models.ATMProfile{
		DeviceID:           p.DeviceID,
		LocationName:       p.LocationName,
		Platform:           p.Platform,
		PlatformSwitchDate: switchDate,
		InstalledDate:      installed,
		RemovedDate:        removed,
		Rent:               p.Rent,
		MgmtGenesis:        p.MgmtGenesis,
		MgmtBitaccess:      p.MgmtBitaccess,
		SalesRepID:         p.SalesRepID,
		Active:             p.Active,
	}, nil
}

func (h *ATMHandler) HandleListATMs(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.atmService.List()
	if err != nil {
		logger.L.Error("Error listing ATM profiles", "error", err)
		utils.SendJSONError(w, "Error retrieving ATM profiles", http.StatusInternalServerError)
		return
	}
	if profiles == nil {
		profiles = []models.ATMProfile{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profiles)
}

func (h *ATMHandler) HandleGetATM(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid ATM profile id", http.StatusBadRequest)
		return
	}
	profile, err := h.atmService.Get(id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.SendJSONError(w, "ATM profile not found", http.StatusNotFound)
			return
		}
		logger.L.Error("Error loading ATM profile", "id", id, "error", err)
		utils.SendJSONError(w, "Error retrieving ATM profile", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

func (h *ATMHandler) HandleCreateATM(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.decodeProfile(w, r)
	if !ok {
		return
	}
	if err := h.atmService.Create(profile); err != nil {
		h.writeMutationError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(profile)
}

func (h *ATMHandler) HandleUpdateATM(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid ATM profile id", http.StatusBadRequest)
		return
	}
	profile, ok := h.decodeProfile(w, r)
	if !ok {
		return
	}
	profile.ID = id
	if err := h.atmService.Update(profile); err != nil {
		h.writeMutationError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

func (h *ATMHandler) HandleDeleteATM(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid ATM profile id", http.StatusBadRequest)
		return
	}
	if err := h.atmService.Delete(id); err != nil {
		if errors.Is(err, services.ErrHasLinkedRecords) {
			utils.SendJSONError(w, "Device has transactions; deactivate the profile instead of deleting it", http.StatusConflict)
			return
		}
		h.writeMutationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ATMHandler) decodeProfile(w http.ResponseWriter, r *http.Request) (*models.ATMProfile, bool) {
	var payload atmProfilePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return nil, false
	}
	if err := payload.Validate(); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	profile, err := payload.toModel()
	if err != nil {
		utils.SendJSONError(w, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
		return nil, false
	}
	return profile, true
}

func (h *ATMHandler) writeMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.SendJSONError(w, "ATM profile not found", http.StatusNotFound)
	case errors.Is(err, services.ErrProfileConflict):
		utils.SendJSONError(w, err.Error(), http.StatusConflict)
	default:
		logger.L.Error("ATM profile mutation failed", "error", err)
		utils.SendJSONError(w, "Error saving ATM profile", http.StatusInternalServerError)
	}
}
