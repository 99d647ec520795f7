package request

import "github.com/shopspring/decimal"

// ConfirmBookingRequest is the operator's decision on a vendor's pending
// booking. A nil AddOns keeps what the vendor requested; an empty list drops
// all add-ons.
type ConfirmBookingRequest struct {
	UnitIDs            []string                   `json:"unit_ids" validate:"required,min=1,unique,dive,uuid"`
	PriceOverrides     map[string]decimal.Decimal `json:"price_overrides,omitempty"`
	ScheduledStartDate string                     `json:"scheduled_start_date,omitempty"`
	AddOns             []string                   `json:"add_ons" validate:"omitempty,unique,dive,oneof=storage_handling shipping_handling"`
}
