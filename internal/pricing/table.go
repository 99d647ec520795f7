package pricing

import (
	"fmt"
	"sort"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/pkg/utils"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DiscountTier grants Rate (a fraction) to commitments of at least MinMonths.
type DiscountTier struct {
	MinMonths int
	Rate      decimal.Decimal
}

// Table is the single source of pricing constants.
type Table struct {
	Discounts       []DiscountTier // ascending by MinMonths
	AddOnFees       map[entity.AddOn]decimal.Decimal
	CommissionTiers map[string]decimal.Decimal // percent
	MaxUnitPrice    decimal.Decimal
}

// NewTable converts the configured tables into decimals and checks that the
// discount step function is monotonic.
func NewTable(cfg utils.PricingConfig) (Table, error) {
	t := Table{
		AddOnFees:       make(map[entity.AddOn]decimal.Decimal, len(cfg.AddOnFees)),
		CommissionTiers: make(map[string]decimal.Decimal, len(cfg.CommissionTiers)),
	}

	for months, percent := range cfg.DiscountTiers {
		p, err := decimal.NewFromString(percent)
		if err != nil {
			return Table{}, fmt.Errorf("discount tier %d months: %w", months, err)
		}
		if p.IsNegative() || p.GreaterThanOrEqual(hundred) {
			return Table{}, fmt.Errorf("discount tier %d months: percent %s out of range", months, percent)
		}
		t.Discounts = append(t.Discounts, DiscountTier{MinMonths: months, Rate: p.Div(hundred)})
	}
	sort.Slice(t.Discounts, func(i, j int) bool { return t.Discounts[i].MinMonths < t.Discounts[j].MinMonths })

	for i := 1; i < len(t.Discounts); i++ {
		if t.Discounts[i].Rate.LessThan(t.Discounts[i-1].Rate) {
			return Table{}, fmt.Errorf("discount tiers must not decrease: %d months gives less than %d months",
				t.Discounts[i].MinMonths, t.Discounts[i-1].MinMonths)
		}
	}

	for name, fee := range cfg.AddOnFees {
		f, err := decimal.NewFromString(fee)
		if err != nil {
			return Table{}, fmt.Errorf("add-on %s fee: %w", name, err)
		}
		if f.IsNegative() {
			return Table{}, fmt.Errorf("add-on %s fee must not be negative", name)
		}
		t.AddOnFees[entity.AddOn(name)] = f
	}

	for tier, percent := range cfg.CommissionTiers {
		p, err := decimal.NewFromString(percent)
		if err != nil {
			return Table{}, fmt.Errorf("commission tier %s: %w", tier, err)
		}
		t.CommissionTiers[tier] = p
	}

	maxPrice, err := decimal.NewFromString(cfg.MaxUnitPrice)
	if err != nil {
		return Table{}, fmt.Errorf("max unit price: %w", err)
	}
	if !maxPrice.IsPositive() {
		return Table{}, fmt.Errorf("max unit price must be positive, got %s", cfg.MaxUnitPrice)
	}
	t.MaxUnitPrice = maxPrice

	return t, nil
}

// DefaultTable builds the table from the built-in defaults.
func DefaultTable() Table {
	t, err := NewTable(utils.DefaultPricingConfig())
	if err != nil {
		panic(err)
	}
	return t
}

// DiscountRate returns the fraction unlocked by a commitment of months.
func (t Table) DiscountRate(months int) decimal.Decimal {
	rate := decimal.Zero
	for _, tier := range t.Discounts {
		if months >= tier.MinMonths {
			rate = tier.Rate
		}
	}
	return rate
}

// CommissionRate resolves a package tier to its percentage.
func (t Table) CommissionRate(tier string) (decimal.Decimal, bool) {
	rate, ok := t.CommissionTiers[tier]
	return rate, ok
}
