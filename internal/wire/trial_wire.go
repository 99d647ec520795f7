package wire

import (
	"rental-marketplace/internal/adaptor"
	"rental-marketplace/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireTrial(
	r chi.Router,
	trialHandler *adaptor.TrialHandler,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	r.Get("/api/vendors/{id}/trial", trialHandler.GetTrialStatus)

	// ==================== ADMIN ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireActor(log))

		r.Post("/api/admin/vendors/{id}/trial/activate", trialHandler.ActivateTrial)
		r.Post("/api/admin/vendors/{id}/trial/extend", trialHandler.ExtendTrial)
		r.Post("/api/admin/vendors/{id}/trial/cancel", trialHandler.CancelTrial)
		r.Post("/api/admin/vendors/{id}/trial/convert", trialHandler.ConvertTrial)
		r.Post("/api/admin/vendors/{id}/trial/expire", trialHandler.ExpireTrial)
		r.Post("/api/admin/vendors/{id}/trial/reactivate", trialHandler.ReactivateTrial)
		r.Post("/api/admin/vendors/{id}/trial/reset-reminder", trialHandler.ResetReminder)
		r.Get("/api/admin/vendors/{id}/audit", trialHandler.AuditLog)

		// POST /api/admin/trials/bulk - per-vendor failures are reported, not fatal
		r.Post("/api/admin/trials/bulk", trialHandler.BulkOperation)
	})
}
