package adaptor

import (
	"net/http"

	"rental-marketplace/internal/dto/request"
	"rental-marketplace/internal/dto/response"
	"rental-marketplace/internal/usecase"
	"rental-marketplace/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TrialHandler struct {
	trials usecase.TrialManager
	log    *zap.Logger
}

func NewTrialHandler(trials usecase.TrialManager, log *zap.Logger) *TrialHandler {
	return &TrialHandler{
		trials: trials,
		log:    log.With(zap.String("handler", "trial")),
	}
}

type trialAction func(r *http.Request, vendorID uuid.UUID, actor string) (*response.TrialStatusResponse, error)

// run wraps the per-vendor trial actions: path id, actor, error mapping.
func (h *TrialHandler) run(w http.ResponseWriter, r *http.Request, operation string, action trialAction) {
	id, ok := pathID(w, r, "Vendor")
	if !ok {
		return
	}

	status, err := action(r, id, actorOf(r))
	if err != nil {
		handleServiceError(w, h.log, err, operation)
		return
	}

	utils.ResponseSuccess(w, "success", status)
}

// reason decodes an optional {"reason": ...} body. An empty body is allowed.
func reason(r *http.Request) string {
	if r.ContentLength == 0 {
		return ""
	}
	var req request.ReasonRequest
	if err := decodeBody(r, &req); err != nil {
		return ""
	}
	return req.Reason
}

// ActivateTrial handles POST /api/admin/vendors/{id}/trial/activate
func (h *TrialHandler) ActivateTrial(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "activate trial", func(r *http.Request, id uuid.UUID, actor string) (*response.TrialStatusResponse, error) {
		return h.trials.ActivateTrial(r.Context(), id, actor)
	})
}

// ExtendTrial handles POST /api/admin/vendors/{id}/trial/extend
func (h *TrialHandler) ExtendTrial(w http.ResponseWriter, r *http.Request) {
	var req request.ExtendTrialRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	h.run(w, r, "extend trial", func(r *http.Request, id uuid.UUID, actor string) (*response.TrialStatusResponse, error) {
		return h.trials.ExtendTrial(r.Context(), id, req.Days, actor, req.Reason)
	})
}

// CancelTrial handles POST /api/admin/vendors/{id}/trial/cancel
func (h *TrialHandler) CancelTrial(w http.ResponseWriter, r *http.Request) {
	var req request.ReasonRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.run(w, r, "cancel trial", func(r *http.Request, id uuid.UUID, actor string) (*response.TrialStatusResponse, error) {
		return h.trials.CancelTrial(r.Context(), id, actor, req.Reason)
	})
}

// ConvertTrial handles POST /api/admin/vendors/{id}/trial/convert
func (h *TrialHandler) ConvertTrial(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "convert trial", func(r *http.Request, id uuid.UUID, actor string) (*response.TrialStatusResponse, error) {
		return h.trials.ConvertTrial(r.Context(), id, actor)
	})
}

// ExpireTrial handles POST /api/admin/vendors/{id}/trial/expire
func (h *TrialHandler) ExpireTrial(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "expire trial", func(r *http.Request, id uuid.UUID, actor string) (*response.TrialStatusResponse, error) {
		return h.trials.ExpireTrial(r.Context(), id, actor)
	})
}

// ReactivateTrial handles POST /api/admin/vendors/{id}/trial/reactivate
func (h *TrialHandler) ReactivateTrial(w http.ResponseWriter, r *http.Request) {
	why := reason(r)
	h.run(w, r, "reactivate trial", func(r *http.Request, id uuid.UUID, actor string) (*response.TrialStatusResponse, error) {
		return h.trials.ReactivateTrial(r.Context(), id, actor, why)
	})
}

// ResetReminder handles POST /api/admin/vendors/{id}/trial/reset-reminder
func (h *TrialHandler) ResetReminder(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "reset trial reminder", func(r *http.Request, id uuid.UUID, actor string) (*response.TrialStatusResponse, error) {
		return h.trials.ResetReminder(r.Context(), id, actor)
	})
}

// GetTrialStatus handles GET /api/vendors/{id}/trial
func (h *TrialHandler) GetTrialStatus(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "get trial status", func(r *http.Request, id uuid.UUID, _ string) (*response.TrialStatusResponse, error) {
		return h.trials.GetTrialStatus(r.Context(), id)
	})
}

// AuditLog handles GET /api/admin/vendors/{id}/audit
func (h *TrialHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Vendor")
	if !ok {
		return
	}

	entries, err := h.trials.AuditLog(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.log, err, "get audit log")
		return
	}

	utils.ResponseSuccess(w, "success", entries)
}

// BulkOperation handles POST /api/admin/trials/bulk
func (h *TrialHandler) BulkOperation(w http.ResponseWriter, r *http.Request) {
	var req request.BulkTrialRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.trials.BulkTrialOperation(r.Context(), actorOf(r), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "bulk trial operation")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}
