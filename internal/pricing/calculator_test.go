package pricing

import (
	"testing"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2))
}

func twoShelves(months int, addOns ...entity.AddOn) Input {
	return Input{
		Selections: []Selection{
			{UnitType: entity.UnitTypeStandardShelf, BasePrice: dec("50"), Count: 1},
			{UnitType: entity.UnitTypeCooledShelf, BasePrice: dec("70"), Count: 1},
		},
		DurationMonths: months,
		CommissionRate: dec("7"),
		AddOns:         addOns,
	}
}

func TestCalculate(t *testing.T) {
	calc := NewCalculator(DefaultTable())

	t.Run("Six months unlocks the duration discount", func(t *testing.T) {
		b, err := calc.Calculate(twoShelves(6))
		require.NoError(t, err)

		assertAmount(t, "120.00", b.Subtotal)
		assert.True(t, b.DiscountRate.Equal(dec("0.05")), "discount rate %s", b.DiscountRate)
		assertAmount(t, "6.00", b.DiscountAmount)
		assertAmount(t, "0.00", b.AddOnTotal)
		assertAmount(t, "114.00", b.MonthlyTotal)
		assertAmount(t, "684.00", b.TotalForDuration)
		assertAmount(t, "7.98", b.CommissionMonthly)
		assert.Len(t, b.Lines, 2)
	})

	t.Run("Short commitment gets no discount", func(t *testing.T) {
		b, err := calc.Calculate(twoShelves(3))
		require.NoError(t, err)

		assert.True(t, b.DiscountRate.IsZero())
		assertAmount(t, "120.00", b.MonthlyTotal)
		assertAmount(t, "360.00", b.TotalForDuration)
	})

	t.Run("Add-ons are excluded from the discount base", func(t *testing.T) {
		b, err := calc.Calculate(twoShelves(6, entity.AddOnStorageHandling))
		require.NoError(t, err)

		assertAmount(t, "6.00", b.DiscountAmount)
		assertAmount(t, "20.00", b.AddOnTotal)
		assertAmount(t, "134.00", b.MonthlyTotal)
		assertAmount(t, "804.00", b.TotalForDuration)
	})

	t.Run("Repeated add-on is charged once", func(t *testing.T) {
		b, err := calc.Calculate(twoShelves(1, entity.AddOnShippingHandling, entity.AddOnShippingHandling))
		require.NoError(t, err)

		assert.Len(t, b.AddOns, 1)
		assertAmount(t, "15.00", b.AddOnTotal)
	})

	t.Run("Counts multiply base price", func(t *testing.T) {
		b, err := calc.Calculate(Input{
			Selections:     []Selection{{UnitType: entity.UnitTypeSalesTable, BasePrice: dec("33.33"), Count: 3}},
			DurationMonths: 1,
		})
		require.NoError(t, err)

		assertAmount(t, "99.99", b.Subtotal)
		assertAmount(t, "0.00", b.CommissionMonthly)
	})
}

func TestCalculateIsDeterministic(t *testing.T) {
	calc := NewCalculator(DefaultTable())
	in := twoShelves(7, entity.AddOnStorageHandling, entity.AddOnShippingHandling)

	first, err := calc.Calculate(in)
	require.NoError(t, err)
	second, err := calc.Calculate(in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCrossingDiscountThresholdLowersMonthlyTotal(t *testing.T) {
	calc := NewCalculator(DefaultTable())

	prices := []string{"10", "49.99", "50", "120.5", "999"}
	for _, p := range prices {
		t.Run(p, func(t *testing.T) {
			in := Input{
				Selections:     []Selection{{UnitType: entity.UnitTypeFrozenShelf, BasePrice: dec(p), Count: 2}},
				CommissionRate: dec("4"),
				AddOns:         []entity.AddOn{entity.AddOnShippingHandling},
			}

			in.DurationMonths = 5
			five, err := calc.Calculate(in)
			require.NoError(t, err)

			in.DurationMonths = 6
			six, err := calc.Calculate(in)
			require.NoError(t, err)

			assert.True(t, six.MonthlyTotal.LessThan(five.MonthlyTotal),
				"6 months %s should be below 5 months %s", six.MonthlyTotal, five.MonthlyTotal)
		})
	}
}

func TestCalculateRejectsBadInput(t *testing.T) {
	calc := NewCalculator(DefaultTable())

	tests := []struct {
		name string
		in   Input
		want error
	}{
		{"no selections", Input{DurationMonths: 6}, ErrNoSelections},
		{"zero duration", Input{Selections: []Selection{{BasePrice: dec("1"), Count: 1}}}, ErrInvalidDuration},
		{"zero count", Input{Selections: []Selection{{BasePrice: dec("1"), Count: 0}}, DurationMonths: 1}, ErrInvalidCount},
		{"free unit", Input{Selections: []Selection{{BasePrice: dec("0"), Count: 1}}, DurationMonths: 1}, ErrInvalidBasePrice},
		{"commission above 100", Input{Selections: []Selection{{BasePrice: dec("1"), Count: 1}}, DurationMonths: 1, CommissionRate: dec("101")}, ErrInvalidCommission},
		{"unknown add-on", Input{Selections: []Selection{{BasePrice: dec("1"), Count: 1}}, DurationMonths: 1, AddOns: []entity.AddOn{"gift_wrapping"}}, ErrUnknownAddOn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.Calculate(tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsInputError(err))
		})
	}
}

func TestValidateOverride(t *testing.T) {
	calc := NewCalculator(DefaultTable())

	assert.NoError(t, calc.ValidateOverride(dec("0.01")))
	assert.NoError(t, calc.ValidateOverride(dec("1000")))
	assert.ErrorIs(t, calc.ValidateOverride(dec("0")), ErrOverrideRange)
	assert.ErrorIs(t, calc.ValidateOverride(dec("-5")), ErrOverrideRange)
	assert.ErrorIs(t, calc.ValidateOverride(dec("1000.01")), ErrOverrideRange)
}

func TestTable(t *testing.T) {
	t.Run("Step function picks the highest reached tier", func(t *testing.T) {
		cfg := utils.DefaultPricingConfig()
		cfg.DiscountTiers = map[int]string{12: "10", 6: "5"}
		table, err := NewTable(cfg)
		require.NoError(t, err)

		assert.True(t, table.DiscountRate(1).IsZero())
		assert.True(t, table.DiscountRate(6).Equal(dec("0.05")))
		assert.True(t, table.DiscountRate(11).Equal(dec("0.05")))
		assert.True(t, table.DiscountRate(12).Equal(dec("0.1")))
		assert.True(t, table.DiscountRate(36).Equal(dec("0.1")))
	})

	t.Run("Decreasing tiers are rejected", func(t *testing.T) {
		cfg := utils.DefaultPricingConfig()
		cfg.DiscountTiers = map[int]string{6: "5", 12: "3"}
		_, err := NewTable(cfg)
		assert.Error(t, err)
	})

	t.Run("Commission tiers resolve", func(t *testing.T) {
		table := DefaultTable()
		rate, ok := table.CommissionRate("premium")
		require.True(t, ok)
		assert.True(t, rate.Equal(dec("7")))

		_, ok = table.CommissionRate("platinum")
		assert.False(t, ok)
	})
}
