package request

type UnitSelectionRequest struct {
	UnitType string `json:"unit_type" validate:"required,oneof=standard_shelf cooled_shelf frozen_shelf sales_table display_window other"`
	Count    int    `json:"count" validate:"required,min=1,max=50"`
}

type BookingRequest struct {
	Selections     []UnitSelectionRequest `json:"selections" validate:"required,min=1,dive"`
	AddOns         []string               `json:"add_ons,omitempty" validate:"omitempty,unique,dive,oneof=storage_handling shipping_handling"`
	DurationMonths int                    `json:"duration_months" validate:"required,min=1,max=60"`
	PackageTier    string                 `json:"package_tier" validate:"required,min=1,max=30"`
	Comments       string                 `json:"comments,omitempty" validate:"max=1000"`
}

type RegisterVendorRequest struct {
	Name    string         `json:"name" validate:"required,min=2,max=100"`
	Email   string         `json:"email" validate:"required,email"`
	Company string         `json:"company,omitempty" validate:"max=100"`
	Booking BookingRequest `json:"booking"`
}
