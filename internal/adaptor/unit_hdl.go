package adaptor

import (
	"net/http"
	"strconv"
	"time"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/internal/dto/request"
	"rental-marketplace/internal/dto/response"
	"rental-marketplace/internal/usecase"
	"rental-marketplace/pkg/utils"

	"go.uber.org/zap"
)

type UnitHandler struct {
	units        usecase.UnitRegistry
	availability usecase.AvailabilityIndex
	display      usecase.AvailabilityDisplay
	log          *zap.Logger
}

func NewUnitHandler(units usecase.UnitRegistry, availability usecase.AvailabilityIndex, display usecase.AvailabilityDisplay, log *zap.Logger) *UnitHandler {
	return &UnitHandler{
		units:        units,
		availability: availability,
		display:      display,
		log:          log.With(zap.String("handler", "unit")),
	}
}

// ListUnits handles GET /api/units
func (h *UnitHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.ListUnitsRequest{
		PaginatedRequest: request.PaginatedRequest{
			Page:    utils.ParseInt(query.Get("page"), 1),
			PerPage: utils.ParseInt(query.Get("per_page"), 20),
		},
		Type: query.Get("type"),
	}
	if raw := query.Get("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			utils.ResponseBadRequest(w, "Invalid available filter", nil)
			return
		}
		req.Available = &available
	}

	units, err := h.units.ListUnits(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.log, err, "list units")
		return
	}

	utils.ResponseSuccess(w, "success", units)
}

// GetUnit handles GET /api/units/{id}
func (h *UnitHandler) GetUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Unit")
	if !ok {
		return
	}

	unit, err := h.units.GetUnit(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.log, err, "get unit")
		return
	}

	utils.ResponseSuccess(w, "success", unit)
}

// CreateUnit handles POST /api/admin/units
func (h *UnitHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	var req request.CreateUnitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	unit, err := h.units.CreateUnit(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create unit")
		return
	}

	utils.ResponseCreated(w, "success", unit)
}

// UpdateUnit handles PUT /api/admin/units/{id}
func (h *UnitHandler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Unit")
	if !ok {
		return
	}

	var req request.UpdateUnitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	unit, err := h.units.UpdateUnit(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "update unit")
		return
	}

	utils.ResponseSuccess(w, "success", unit)
}

// SetAvailability handles PUT /api/admin/units/{id}/availability
func (h *UnitHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Unit")
	if !ok {
		return
	}

	var req request.SetAvailabilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	unit, err := h.units.SetAvailability(r.Context(), id, *req.Available)
	if err != nil {
		handleServiceError(w, h.log, err, "set unit availability")
		return
	}

	utils.ResponseSuccess(w, "success", unit)
}

// parseWindow reads type, from and to query parameters.
func parseWindow(w http.ResponseWriter, r *http.Request) (*entity.UnitType, time.Time, *time.Time, bool) {
	query := r.URL.Query()
	req := request.AvailabilityRequest{
		Type: query.Get("type"),
		From: query.Get("from"),
		To:   query.Get("to"),
	}
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return nil, time.Time{}, nil, false
	}

	from, err := utils.ParseTime(req.From)
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid from: "+err.Error(), nil)
		return nil, time.Time{}, nil, false
	}
	to, err := utils.ParseOptionalTime(req.To)
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid to: "+err.Error(), nil)
		return nil, time.Time{}, nil, false
	}

	var unitType *entity.UnitType
	if req.Type != "" {
		t := entity.UnitType(req.Type)
		unitType = &t
	}
	return unitType, from, to, true
}

// BrowseAvailability handles GET /api/availability. Answers may be served
// from the display cache.
func (h *UnitHandler) BrowseAvailability(w http.ResponseWriter, r *http.Request) {
	unitType, from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}

	units, err := h.display.FindAvailableUnitsForDisplay(r.Context(), unitType, from, to)
	if err != nil {
		handleServiceError(w, h.log, err, "browse availability")
		return
	}

	utils.ResponseSuccess(w, "success", units)
}

// FindAvailableUnits handles GET /api/admin/availability. Always reads the store.
func (h *UnitHandler) FindAvailableUnits(w http.ResponseWriter, r *http.Request) {
	unitType, from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}

	units, err := h.availability.FindAvailableUnits(r.Context(), unitType, from, to)
	if err != nil {
		handleServiceError(w, h.log, err, "find available units")
		return
	}

	utils.ResponseSuccess(w, "success", response.UnitsToResponse(units))
}

// CheckUnitAvailability handles GET /api/admin/units/{id}/availability
func (h *UnitHandler) CheckUnitAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Unit")
	if !ok {
		return
	}
	_, from, to, ok := parseWindow(w, r)
	if !ok {
		return
	}

	available, err := h.availability.IsAvailable(r.Context(), id, from, to)
	if err != nil {
		handleServiceError(w, h.log, err, "check unit availability")
		return
	}

	utils.ResponseSuccess(w, "success", map[string]any{
		"unit_id":   id.String(),
		"available": available,
	})
}
