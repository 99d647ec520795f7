package response

import (
	"rental-marketplace/internal/data/entity"
	"rental-marketplace/internal/pricing"
)

// Amounts are rounded to cents here and nowhere earlier.

type LineCostResponse struct {
	UnitType  entity.UnitType `json:"unit_type"`
	BasePrice string          `json:"base_price"`
	Count     int             `json:"count"`
	Cost      string          `json:"cost"`
}

type AddOnCostResponse struct {
	AddOn entity.AddOn `json:"add_on"`
	Fee   string       `json:"fee"`
}

type PriceBreakdownResponse struct {
	Lines             []LineCostResponse  `json:"lines"`
	AddOns            []AddOnCostResponse `json:"add_ons"`
	DurationMonths    int                 `json:"duration_months"`
	Subtotal          string              `json:"subtotal"`
	DiscountRate      string              `json:"discount_rate"`
	DiscountAmount    string              `json:"discount_amount"`
	AddOnTotal        string              `json:"add_on_total"`
	MonthlyTotal      string              `json:"monthly_total"`
	TotalForDuration  string              `json:"total_for_duration"`
	CommissionRate    string              `json:"commission_rate"`
	CommissionMonthly string              `json:"commission_monthly"`
}

func PriceBreakdownToResponse(b pricing.Breakdown) PriceBreakdownResponse {
	lines := make([]LineCostResponse, len(b.Lines))
	for i, l := range b.Lines {
		lines[i] = LineCostResponse{
			UnitType:  l.UnitType,
			BasePrice: l.BasePrice.StringFixed(2),
			Count:     l.Count,
			Cost:      l.Cost.StringFixed(2),
		}
	}

	addOns := make([]AddOnCostResponse, len(b.AddOns))
	for i, a := range b.AddOns {
		addOns[i] = AddOnCostResponse{AddOn: a.AddOn, Fee: a.Fee.StringFixed(2)}
	}

	return PriceBreakdownResponse{
		Lines:             lines,
		AddOns:            addOns,
		DurationMonths:    b.DurationMonths,
		Subtotal:          b.Subtotal.StringFixed(2),
		DiscountRate:      b.DiscountRate.String(),
		DiscountAmount:    b.DiscountAmount.StringFixed(2),
		AddOnTotal:        b.AddOnTotal.StringFixed(2),
		MonthlyTotal:      b.MonthlyTotal.StringFixed(2),
		TotalForDuration:  b.TotalForDuration.StringFixed(2),
		CommissionRate:    b.CommissionRate.String(),
		CommissionMonthly: b.CommissionMonthly.StringFixed(2),
	}
}
