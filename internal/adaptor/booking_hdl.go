package adaptor

import (
	"net/http"

	"rental-marketplace/internal/dto/request"
	"rental-marketplace/internal/usecase"
	"rental-marketplace/pkg/utils"

	"go.uber.org/zap"
)

type BookingHandler struct {
	bookings usecase.BookingOrchestrator
	log      *zap.Logger
}

func NewBookingHandler(bookings usecase.BookingOrchestrator, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		log:      log.With(zap.String("handler", "booking")),
	}
}

// ConfirmBooking handles POST /api/admin/vendors/{id}/confirm-booking
func (h *BookingHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Vendor")
	if !ok {
		return
	}

	var req request.ConfirmBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.bookings.ConfirmBooking(r.Context(), id, actorOf(r), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "confirm booking")
		return
	}

	utils.ResponseCreated(w, "Booking confirmed successfully", result)
}
