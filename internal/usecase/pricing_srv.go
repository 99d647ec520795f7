package usecase

import (
	"context"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/internal/dto/request"
	"rental-marketplace/internal/dto/response"
	"rental-marketplace/internal/pricing"
	"rental-marketplace/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PricingService exposes the price calculator for quotes. It has no state.
type PricingService interface {
	CalculatePrice(ctx context.Context, req *request.CalculatePriceRequest) (*response.PriceBreakdownResponse, error)
}

type pricingService struct {
	calculator pricing.Calculator
	log        *zap.Logger
}

func NewPricingService(calculator pricing.Calculator, log *zap.Logger) PricingService {
	return &pricingService{
		calculator: calculator,
		log:        log.With(zap.String("service", "pricing")),
	}
}

func (s *pricingService) CalculatePrice(_ context.Context, req *request.CalculatePriceRequest) (*response.PriceBreakdownResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, invalidFields(errs)
	}

	rate := decimal.Zero
	switch {
	case req.CommissionRate != nil:
		rate = *req.CommissionRate
	case req.PackageTier != "":
		r, ok := s.calculator.CommissionRate(req.PackageTier)
		if !ok {
			return nil, invalid("unknown package tier %q", req.PackageTier)
		}
		rate = r
	}

	in := pricing.Input{
		Selections:     make([]pricing.Selection, len(req.Selections)),
		DurationMonths: req.DurationMonths,
		CommissionRate: rate,
		AddOns:         make([]entity.AddOn, len(req.AddOns)),
	}
	for i, sel := range req.Selections {
		in.Selections[i] = pricing.Selection{
			UnitType:  entity.UnitType(sel.UnitType),
			BasePrice: sel.BasePrice,
			Count:     sel.Count,
		}
	}
	for i, a := range req.AddOns {
		in.AddOns[i] = entity.AddOn(a)
	}

	breakdown, err := s.calculator.Calculate(in)
	if err != nil {
		if pricing.IsInputError(err) {
			s.log.Warn("Price calculation rejected", zap.Error(err))
			return nil, invalid("%v", err)
		}
		s.log.Error("Price calculation failed", zap.Error(err))
		return nil, err
	}

	resp := response.PriceBreakdownToResponse(breakdown)
	return &resp, nil
}
