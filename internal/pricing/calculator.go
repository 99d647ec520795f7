// Package pricing computes rental price breakdowns. Everything here is pure:
// the same input always yields the same Breakdown.
package pricing

import (
	"errors"
	"fmt"
	"slices"

	"rental-marketplace/internal/data/entity"

	"github.com/shopspring/decimal"
)

var (
	ErrNoSelections      = errors.New("at least one unit selection is required")
	ErrInvalidDuration   = errors.New("duration must be at least one month")
	ErrInvalidCount      = errors.New("selection count must be positive")
	ErrInvalidBasePrice  = errors.New("base price must be positive")
	ErrInvalidCommission = errors.New("commission rate must be between 0 and 100")
	ErrUnknownAddOn      = errors.New("unknown add-on")
	ErrOverrideRange     = errors.New("price override out of range")
)

// Selection prices count units of one type at a monthly base price.
type Selection struct {
	UnitType  entity.UnitType
	BasePrice decimal.Decimal
	Count     int
}

type Input struct {
	Selections     []Selection
	DurationMonths int
	CommissionRate decimal.Decimal // percent
	AddOns         []entity.AddOn
}

type LineCost struct {
	UnitType  entity.UnitType
	BasePrice decimal.Decimal
	Count     int
	Cost      decimal.Decimal
}

type AddOnCost struct {
	AddOn entity.AddOn
	Fee   decimal.Decimal
}

// Breakdown carries unrounded amounts. Round only when presenting.
type Breakdown struct {
	Lines             []LineCost
	AddOns            []AddOnCost
	DurationMonths    int
	Subtotal          decimal.Decimal
	DiscountRate      decimal.Decimal
	DiscountAmount    decimal.Decimal
	AddOnTotal        decimal.Decimal
	MonthlyTotal      decimal.Decimal
	TotalForDuration  decimal.Decimal
	CommissionRate    decimal.Decimal
	CommissionMonthly decimal.Decimal
}

type Calculator interface {
	Calculate(in Input) (Breakdown, error)
	// ValidateOverride checks an admin per-unit price: 0 < price <= ceiling.
	ValidateOverride(price decimal.Decimal) error
	DiscountRate(months int) decimal.Decimal
	CommissionRate(tier string) (decimal.Decimal, bool)
}

type calculator struct {
	table Table
}

func NewCalculator(table Table) Calculator {
	return &calculator{table: table}
}

func (c *calculator) DiscountRate(months int) decimal.Decimal {
	return c.table.DiscountRate(months)
}

func (c *calculator) CommissionRate(tier string) (decimal.Decimal, bool) {
	return c.table.CommissionRate(tier)
}

func (c *calculator) ValidateOverride(price decimal.Decimal) error {
	if !price.IsPositive() || price.GreaterThan(c.table.MaxUnitPrice) {
		return fmt.Errorf("%w: %s not in (0, %s]", ErrOverrideRange, price.String(), c.table.MaxUnitPrice.String())
	}
	return nil
}

func (c *calculator) Calculate(in Input) (Breakdown, error) {
	if len(in.Selections) == 0 {
		return Breakdown{}, ErrNoSelections
	}
	if in.DurationMonths < 1 {
		return Breakdown{}, fmt.Errorf("%w: got %d", ErrInvalidDuration, in.DurationMonths)
	}
	if in.CommissionRate.IsNegative() || in.CommissionRate.GreaterThan(hundred) {
		return Breakdown{}, fmt.Errorf("%w: got %s", ErrInvalidCommission, in.CommissionRate.String())
	}

	b := Breakdown{
		DurationMonths: in.DurationMonths,
		Subtotal:       decimal.Zero,
		AddOnTotal:     decimal.Zero,
		CommissionRate: in.CommissionRate,
	}

	for _, sel := range in.Selections {
		if sel.Count < 1 {
			return Breakdown{}, fmt.Errorf("%w: %s x %d", ErrInvalidCount, sel.UnitType, sel.Count)
		}
		if !sel.BasePrice.IsPositive() {
			return Breakdown{}, fmt.Errorf("%w: %s at %s", ErrInvalidBasePrice, sel.UnitType, sel.BasePrice.String())
		}
		cost := sel.BasePrice.Mul(decimal.NewFromInt(int64(sel.Count)))
		b.Lines = append(b.Lines, LineCost{
			UnitType:  sel.UnitType,
			BasePrice: sel.BasePrice,
			Count:     sel.Count,
			Cost:      cost,
		})
		b.Subtotal = b.Subtotal.Add(cost)
	}

	// Add-ons stay outside the discount base.
	b.DiscountRate = c.table.DiscountRate(in.DurationMonths)
	b.DiscountAmount = b.Subtotal.Mul(b.DiscountRate)

	seen := make([]entity.AddOn, 0, len(in.AddOns))
	for _, addOn := range in.AddOns {
		if slices.Contains(seen, addOn) {
			continue
		}
		fee, ok := c.table.AddOnFees[addOn]
		if !ok {
			return Breakdown{}, fmt.Errorf("%w: %s", ErrUnknownAddOn, addOn)
		}
		seen = append(seen, addOn)
		b.AddOns = append(b.AddOns, AddOnCost{AddOn: addOn, Fee: fee})
		b.AddOnTotal = b.AddOnTotal.Add(fee)
	}

	b.MonthlyTotal = b.Subtotal.Sub(b.DiscountAmount).Add(b.AddOnTotal)
	b.TotalForDuration = b.MonthlyTotal.Mul(decimal.NewFromInt(int64(in.DurationMonths)))
	b.CommissionMonthly = b.MonthlyTotal.Mul(in.CommissionRate).Div(hundred)

	return b, nil
}

// IsInputError reports whether err was caused by the caller's input rather
// than by the pricing tables.
func IsInputError(err error) bool {
	for _, target := range []error{
		ErrNoSelections, ErrInvalidDuration, ErrInvalidCount, ErrInvalidBasePrice,
		ErrInvalidCommission, ErrUnknownAddOn, ErrOverrideRange,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
