package adaptor

import (
	"net/http"

	"rental-marketplace/internal/dto/request"
	"rental-marketplace/internal/usecase"
	"rental-marketplace/pkg/utils"

	"go.uber.org/zap"
)

type PricingHandler struct {
	service usecase.PricingService
	log     *zap.Logger
}

func NewPricingHandler(service usecase.PricingService, log *zap.Logger) *PricingHandler {
	return &PricingHandler{
		service: service,
		log:     log.With(zap.String("handler", "pricing")),
	}
}

// CalculatePrice handles POST /api/pricing/calculate
func (h *PricingHandler) CalculatePrice(w http.ResponseWriter, r *http.Request) {
	var req request.CalculatePriceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	breakdown, err := h.service.CalculatePrice(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "calculate price")
		return
	}

	utils.ResponseSuccess(w, "success", breakdown)
}
