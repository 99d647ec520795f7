package request

import "github.com/shopspring/decimal"

type PriceSelectionRequest struct {
	UnitType  string          `json:"unit_type" validate:"required,oneof=standard_shelf cooled_shelf frozen_shelf sales_table display_window other"`
	BasePrice decimal.Decimal `json:"base_price"`
	Count     int             `json:"count" validate:"required,min=1"`
}

// CalculatePriceRequest takes either an explicit commission rate or a
// package tier to resolve one from.
type CalculatePriceRequest struct {
	Selections     []PriceSelectionRequest `json:"selections" validate:"required,min=1,dive"`
	DurationMonths int                     `json:"duration_months" validate:"required,min=1"`
	CommissionRate *decimal.Decimal        `json:"commission_rate,omitempty"`
	PackageTier    string                  `json:"package_tier,omitempty"`
	AddOns         []string                `json:"add_ons,omitempty" validate:"omitempty,dive,oneof=storage_handling shipping_handling"`
}
