package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"rental-marketplace/internal/usecase"
	"rental-marketplace/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	Unit     *UnitHandler
	Pricing  *PricingHandler
	Vendor   *VendorHandler
	Trial    *TrialHandler
	Booking  *BookingHandler
	Contract *ContractHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Unit:     NewUnitHandler(service.Unit, service.Availability, service.Display, log),
		Pricing:  NewPricingHandler(service.Pricing, log),
		Vendor:   NewVendorHandler(service.Vendor, service.Contract, log),
		Trial:    NewTrialHandler(service.Trial, log),
		Booking:  NewBookingHandler(service.Booking, log),
		Contract: NewContractHandler(service.Contract, log),
	}
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// decodeJSON reads the request body into dst, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeBody(r, dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

// pathID parses the {id} URL parameter, answering 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		utils.ResponseBadRequest(w, name+" ID is required", nil)
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid "+name+" ID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func actorOf(r *http.Request) string {
	actor, _ := utils.GetActorFromContext(r.Context())
	return actor
}

// handleServiceError maps the usecase error types onto HTTP statuses.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var (
		validationErr *usecase.ValidationError
		conflictErr   *usecase.ConflictError
		notFoundErr   *usecase.NotFoundError
		stateErr      *usecase.StateError
	)

	switch {
	case errors.As(err, &validationErr):
		log.Warn(operation+" validation failed", zap.Error(err), zap.String("operation", operation))
		var fields any
		if len(validationErr.Fields) > 0 {
			fields = validationErr.Fields
		}
		utils.ResponseBadRequest(w, validationErr.Error(), fields)

	case errors.As(err, &conflictErr):
		log.Warn(operation+" failed - conflict", zap.Error(err), zap.String("operation", operation))
		var units any
		if len(conflictErr.Units) > 0 {
			units = conflictErr.Units
		}
		utils.ResponseConflict(w, conflictErr.Error(), units)

	case errors.As(err, &notFoundErr):
		log.Warn(operation+" failed - not found", zap.Error(err), zap.String("operation", operation))
		utils.ResponseNotFound(w, notFoundErr.Error())

	case errors.As(err, &stateErr):
		log.Warn(operation+" failed - invalid state", zap.Error(err), zap.String("operation", operation))
		utils.ResponseUnprocessable(w, stateErr.Error(), nil)

	default:
		log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
