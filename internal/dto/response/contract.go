package response

import (
	"time"

	"rental-marketplace/internal/data/entity"
)

type ContractLineResponse struct {
	UnitID       string    `json:"unit_id"`
	MonthlyPrice string    `json:"monthly_price"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
}

type ContractResponse struct {
	ID                string                 `json:"id"`
	VendorID          string                 `json:"vendor_id"`
	Status            entity.ContractStatus  `json:"status"`
	Lines             []ContractLineResponse `json:"lines"`
	StartDate         time.Time              `json:"start_date"`
	DurationMonths    int                    `json:"duration_months"`
	DiscountRate      string                 `json:"discount_rate"`
	CommissionRate    string                 `json:"commission_rate"`
	TotalMonthlyPrice string                 `json:"total_monthly_price"`
	AddOns            []entity.AddOn         `json:"add_ons"`
	IsTrialBooking    bool                   `json:"is_trial_booking"`
	TrialVendorID     *string                `json:"trial_vendor_id,omitempty"`
	PaymentStartDate  time.Time              `json:"payment_start_date"`
	WindowFrom        time.Time              `json:"window_from"`
	WindowTo          time.Time              `json:"window_to"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// ContractResultResponse is returned by a successful booking confirmation.
type ContractResultResponse struct {
	Contract     ContractResponse       `json:"contract"`
	Price        PriceBreakdownResponse `json:"price"`
	TrialApplied bool                   `json:"trial_applied"`
	TrialDays    int                    `json:"trial_days"`
}

func ContractToResponse(c *entity.Contract) ContractResponse {
	lines := make([]ContractLineResponse, len(c.Lines))
	for i, l := range c.Lines {
		lines[i] = ContractLineResponse{
			UnitID:       l.UnitID.String(),
			MonthlyPrice: l.MonthlyPrice.StringFixed(2),
			StartDate:    l.StartDate,
			EndDate:      l.EndDate,
		}
	}

	addOns := c.AddOns
	if addOns == nil {
		addOns = []entity.AddOn{}
	}

	resp := ContractResponse{
		ID:                c.ID.String(),
		VendorID:          c.VendorID.String(),
		Status:            c.Status,
		Lines:             lines,
		StartDate:         c.StartDate,
		DurationMonths:    c.DurationMonths,
		DiscountRate:      c.DiscountRate.String(),
		CommissionRate:    c.CommissionRate.String(),
		TotalMonthlyPrice: c.TotalMonthlyPrice.StringFixed(2),
		AddOns:            addOns,
		IsTrialBooking:    c.IsTrialBooking,
		PaymentStartDate:  c.PaymentStartDate,
		WindowFrom:        c.WindowFrom,
		WindowTo:          c.WindowTo,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
	if c.TrialVendorID != nil {
		id := c.TrialVendorID.String()
		resp.TrialVendorID = &id
	}
	return resp
}

func ContractsToResponse(contracts []*entity.Contract) []ContractResponse {
	out := make([]ContractResponse, len(contracts))
	for i, c := range contracts {
		out[i] = ContractToResponse(c)
	}
	return out
}
