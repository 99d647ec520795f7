package wire

import (
	"rental-marketplace/internal/adaptor"
	"rental-marketplace/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireVendor(
	r chi.Router,
	vendorHandler *adaptor.VendorHandler,
	bookingHandler *adaptor.BookingHandler,
	contractHandler *adaptor.ContractHandler,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	// POST /api/vendors - registration with the first booking request
	r.Post("/api/vendors", vendorHandler.Register)

	// PUT /api/vendors/{id}/booking-request - replaces the pending request
	r.Put("/api/vendors/{id}/booking-request", vendorHandler.RequestBooking)

	r.Get("/api/vendors/{id}/contracts", vendorHandler.ListContracts)

	// ==================== ADMIN ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireActor(log))

		r.Get("/api/admin/vendors", vendorHandler.ListVendors)
		r.Get("/api/admin/vendors/{id}", vendorHandler.GetVendor)

		// POST /api/admin/vendors/{id}/confirm-booking - turns the pending request into a contract
		r.Post("/api/admin/vendors/{id}/confirm-booking", bookingHandler.ConfirmBooking)

		r.Get("/api/admin/contracts/{id}", contractHandler.GetContract)
	})
}
