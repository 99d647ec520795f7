package wire

import (
	"rental-marketplace/internal/adaptor"
	"rental-marketplace/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireUnit(
	r chi.Router,
	unitHandler *adaptor.UnitHandler,
	pricingHandler *adaptor.PricingHandler,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	r.Get("/api/units", unitHandler.ListUnits)
	r.Get("/api/units/{id}", unitHandler.GetUnit)

	// GET /api/availability?type=&from=&to= - cached browse view
	r.Get("/api/availability", unitHandler.BrowseAvailability)

	// POST /api/pricing/calculate - price preview, nothing is stored
	r.Post("/api/pricing/calculate", pricingHandler.CalculatePrice)

	// ==================== ADMIN ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireActor(log))

		r.Post("/api/admin/units", unitHandler.CreateUnit)
		r.Put("/api/admin/units/{id}", unitHandler.UpdateUnit)
		r.Put("/api/admin/units/{id}/availability", unitHandler.SetAvailability)
		r.Get("/api/admin/units/{id}/availability", unitHandler.CheckUnitAvailability)

		// GET /api/admin/availability - authoritative, bypasses the cache
		r.Get("/api/admin/availability", unitHandler.FindAvailableUnits)
	})
}
