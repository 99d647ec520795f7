package adaptor

import (
	"net/http"

	"rental-marketplace/internal/dto/request"
	"rental-marketplace/internal/usecase"
	"rental-marketplace/pkg/utils"

	"go.uber.org/zap"
)

type VendorHandler struct {
	vendors   usecase.VendorService
	contracts usecase.ContractService
	log       *zap.Logger
}

func NewVendorHandler(vendors usecase.VendorService, contracts usecase.ContractService, log *zap.Logger) *VendorHandler {
	return &VendorHandler{
		vendors:   vendors,
		contracts: contracts,
		log:       log.With(zap.String("handler", "vendor")),
	}
}

// Register handles POST /api/vendors
func (h *VendorHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterVendorRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	vendor, err := h.vendors.Register(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "register vendor")
		return
	}

	utils.ResponseCreated(w, "Vendor registered successfully", vendor)
}

// RequestBooking handles PUT /api/vendors/{id}/booking-request
func (h *VendorHandler) RequestBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Vendor")
	if !ok {
		return
	}

	var req request.BookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	vendor, err := h.vendors.RequestBooking(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "request booking")
		return
	}

	utils.ResponseSuccess(w, "Booking request saved", vendor)
}

// GetVendor handles GET /api/admin/vendors/{id}
func (h *VendorHandler) GetVendor(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Vendor")
	if !ok {
		return
	}

	vendor, err := h.vendors.GetVendor(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.log, err, "get vendor")
		return
	}

	utils.ResponseSuccess(w, "success", vendor)
}

// ListVendors handles GET /api/admin/vendors
func (h *VendorHandler) ListVendors(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 20),
	}

	vendors, err := h.vendors.ListVendors(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.log, err, "list vendors")
		return
	}

	utils.ResponseSuccess(w, "success", vendors)
}

// ListContracts handles GET /api/vendors/{id}/contracts
func (h *VendorHandler) ListContracts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "Vendor")
	if !ok {
		return
	}

	contracts, err := h.contracts.ListVendorContracts(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.log, err, "list vendor contracts")
		return
	}

	utils.ResponseSuccess(w, "success", contracts)
}
