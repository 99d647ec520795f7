package request

import "github.com/shopspring/decimal"

type CreateUnitRequest struct {
	Label     string          `json:"label" validate:"required,min=1,max=50"`
	Type      string          `json:"type" validate:"required,oneof=standard_shelf cooled_shelf frozen_shelf sales_table display_window other"`
	BasePrice decimal.Decimal `json:"base_price"`
}

type UpdateUnitRequest struct {
	Label     *string          `json:"label,omitempty" validate:"omitempty,min=1,max=50"`
	Type      *string          `json:"type,omitempty" validate:"omitempty,oneof=standard_shelf cooled_shelf frozen_shelf sales_table display_window other"`
	BasePrice *decimal.Decimal `json:"base_price,omitempty"`
}

type SetAvailabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

type ListUnitsRequest struct {
	PaginatedRequest
	Type      string `json:"type" validate:"omitempty,oneof=standard_shelf cooled_shelf frozen_shelf sales_table display_window other"`
	Available *bool  `json:"available,omitempty"`
}

// AvailabilityRequest asks for units free during [From, To). An empty To
// asks about the single instant From.
type AvailabilityRequest struct {
	Type string `json:"type" validate:"omitempty,oneof=standard_shelf cooled_shelf frozen_shelf sales_table display_window other"`
	From string `json:"from" validate:"required"`
	To   string `json:"to,omitempty"`
}
