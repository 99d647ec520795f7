package response

import (
	"time"

	"rental-marketplace/internal/data/entity"
)

type UnitResponse struct {
	ID          string          `json:"id"`
	Label       string          `json:"label"`
	Type        entity.UnitType `json:"type"`
	BasePrice   string          `json:"base_price"`
	IsAvailable bool            `json:"is_available"`
	ContractID  *string         `json:"contract_id,omitempty"`
	VendorID    *string         `json:"vendor_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func UnitToResponse(u *entity.RentalUnit) UnitResponse {
	resp := UnitResponse{
		ID:          u.ID.String(),
		Label:       u.Label,
		Type:        u.Type,
		BasePrice:   u.BasePrice.StringFixed(2),
		IsAvailable: u.IsAvailable,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
	if u.ContractID != nil {
		id := u.ContractID.String()
		resp.ContractID = &id
	}
	if u.VendorID != nil {
		id := u.VendorID.String()
		resp.VendorID = &id
	}
	return resp
}

func UnitsToResponse(units []*entity.RentalUnit) []UnitResponse {
	out := make([]UnitResponse, len(units))
	for i, u := range units {
		out[i] = UnitToResponse(u)
	}
	return out
}
