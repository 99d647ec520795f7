package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ContractStatus string

const (
	ContractStatusScheduled            ContractStatus = "scheduled"
	ContractStatusActive               ContractStatus = "active"
	ContractStatusCancelledDuringTrial ContractStatus = "cancelled_during_trial"
	ContractStatusEnded                ContractStatus = "ended"
)

// Blocks reports whether a contract in this status occupies its units.
func (s ContractStatus) Blocks() bool {
	return s == ContractStatusScheduled || s == ContractStatusActive
}

// ContractLine is one rented unit on a contract, priced at booking time.
type ContractLine struct {
	UnitID       uuid.UUID       `db:"unit_id"`
	MonthlyPrice decimal.Decimal `db:"monthly_price"`
	StartDate    time.Time       `db:"start_date"`
	EndDate      time.Time       `db:"end_date"`
}

type Contract struct {
	BaseNoDelete
	VendorID          uuid.UUID       `db:"vendor_id"`
	Lines             []ContractLine  `db:"-"`
	Status            ContractStatus  `db:"status"`
	StartDate         time.Time       `db:"start_date"`
	DurationMonths    int             `db:"duration_months"`
	DiscountRate      decimal.Decimal `db:"discount_rate"`   // fraction, 0.05 = 5%
	CommissionRate    decimal.Decimal `db:"commission_rate"` // percent
	TotalMonthlyPrice decimal.Decimal `db:"total_monthly_price"`
	AddOns            []AddOn         `db:"add_ons"`
	IsTrialBooking    bool            `db:"is_trial_booking"`
	TrialVendorID     *uuid.UUID      `db:"trial_vendor_id"`
	PaymentStartDate  time.Time       `db:"payment_start_date"`
	WindowFrom        time.Time       `db:"window_from"`
	WindowTo          time.Time       `db:"window_to"`
}

// UnitIDs returns the units referenced by the contract lines, in line order.
func (c *Contract) UnitIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(c.Lines))
	for i, line := range c.Lines {
		ids[i] = line.UnitID
	}
	return ids
}

// References reports whether any line of the contract rents the unit.
func (c *Contract) References(unitID uuid.UUID) bool {
	for _, line := range c.Lines {
		if line.UnitID == unitID {
			return true
		}
	}
	return false
}

// Occupies reports whether the contract blocks its units during the window
// [from, to). A nil to asks about the single instant from.
func (c *Contract) Occupies(from time.Time, to *time.Time) bool {
	if !c.Status.Blocks() {
		return false
	}
	if to == nil {
		return WindowContains(c.WindowFrom, c.WindowTo, from)
	}
	return WindowsOverlap(c.WindowFrom, c.WindowTo, from, *to)
}

// WindowsOverlap reports whether the half-open intervals [aFrom, aTo) and
// [bFrom, bTo) share at least one instant. Touching ends do not overlap.
func WindowsOverlap(aFrom, aTo, bFrom, bTo time.Time) bool {
	return aFrom.Before(bTo) && bFrom.Before(aTo)
}

// WindowContains reports whether t lies in [from, to).
func WindowContains(from, to, t time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
