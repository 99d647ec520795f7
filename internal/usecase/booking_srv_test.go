package usecase

import (
	"sync"
	"testing"
	"time"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/internal/dto/request"
	"rental-marketplace/internal/notify"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmBooking(t *testing.T) {
	t.Run("Confirms a trial booking and claims every unit", func(t *testing.T) {
		f := newFixture(t)
		shelf := f.createUnit(t, "R-1", entity.UnitTypeStandardShelf, "50")
		cooled := f.createUnit(t, "K-1", entity.UnitTypeCooledShelf, "70")
		vendorID := f.registerVendor(t, "anna@example.com", bookingRequest(6))

		result, err := f.svc.Booking.ConfirmBooking(f.ctx, vendorID, "admin", confirmRequest(shelf, cooled))
		require.NoError(t, err)

		assert.Equal(t, "120.00", result.Price.Subtotal)
		assert.Equal(t, "114.00", result.Price.MonthlyTotal)
		assert.Equal(t, "684.00", result.Price.TotalForDuration)
		assert.Equal(t, "7.98", result.Price.CommissionMonthly)

		assert.True(t, result.TrialApplied)
		assert.Equal(t, 30, result.TrialDays)
		assert.Equal(t, entity.ContractStatusScheduled, result.Contract.Status)
		assert.Equal(t, baseTime, result.Contract.StartDate)
		assert.Equal(t, baseTime.AddDate(0, 0, 30), result.Contract.PaymentStartDate)
		assert.Equal(t, baseTime.AddDate(0, 0, 30).AddDate(0, 6, 0), result.Contract.WindowTo)
		require.Len(t, result.Contract.Lines, 2)
		assert.Equal(t, shelf.String(), result.Contract.Lines[0].UnitID)
		assert.Equal(t, "50.00", result.Contract.Lines[0].MonthlyPrice)

		contractID := uuid.MustParse(result.Contract.ID)
		for _, id := range []uuid.UUID{shelf, cooled} {
			u := f.unit(t, id)
			assert.False(t, u.IsAvailable)
			require.NotNil(t, u.ContractID)
			assert.Equal(t, contractID, *u.ContractID)
			require.NotNil(t, u.VendorID)
			assert.Equal(t, vendorID, *u.VendorID)
		}

		pending, ok := f.vendor(t, vendorID).Pending.Get()
		require.True(t, ok)
		assert.Equal(t, entity.PendingBookingStatusCompleted, pending.Status)

		assert.Contains(t, f.auditActions(t, vendorID), entity.AuditActionBookingConfirmed)
		assert.Contains(t, f.notifier.Names(), notify.EventBookingConfirmed)
	})

	t.Run("A completed booking cannot be confirmed again", func(t *testing.T) {
		f := newFixture(t)
		shelf := f.createUnit(t, "R-1", entity.UnitTypeStandardShelf, "50")
		other := f.createUnit(t, "R-2", entity.UnitTypeStandardShelf, "50")
		vendorID := f.registerVendor(t, "anna@example.com", bookingRequest(3))

		_, err := f.svc.Booking.ConfirmBooking(f.ctx, vendorID, "admin", confirmRequest(shelf))
		require.NoError(t, err)

		_, err = f.svc.Booking.ConfirmBooking(f.ctx, vendorID, "admin", confirmRequest(other))
		asState(t, err)
		assert.True(t, f.unit(t, other).IsAvailable)
	})

	t.Run("Vendor without a pending booking", func(t *testing.T) {
		f := newFixture(t)
		shelf := f.createUnit(t, "R-1", entity.UnitTypeStandardShelf, "50")

		_, err := f.svc.Booking.ConfirmBooking(f.ctx, uuid.New(), "admin", confirmRequest(shelf))
		asNotFound(t, err)
	})

	t.Run("One unavailable unit rejects the whole booking", func(t *testing.T) {
		f := newFixture(t)
		free := f.createUnit(t, "R-1", entity.UnitTypeStandardShelf, "50")
		blocked := f.createUnit(t, "R-2", entity.UnitTypeStandardShelf, "50")
		_, err := f.svc.Unit.SetAvailability(f.ctx, blocked, false)
		require.NoError(t, err)
		vendorID := f.registerVendor(t, "anna@example.com", bookingRequest(3))

		_, err = f.svc.Booking.ConfirmBooking(f.ctx, vendorID, "admin", confirmRequest(free, blocked))
		conflict := asConflict(t, err)
		require.Len(t, conflict.Units, 1)
		assert.Equal(t, blocked, conflict.Units[0].UnitID)
		assert.Equal(t, "R-2", conflict.Units[0].Label)
		assert.Equal(t, ConflictNotAvailable, conflict.Units[0].Reason)

		u := f.unit(t, free)
		assert.True(t, u.IsAvailable)
		assert.Nil(t, u.ContractID)

		contracts, err := f.repo.Contract.FindByVendorID(f.ctx, vendorID)
		require.NoError(t, err)
		assert.Empty(t, contracts)

		pending, _ := f.vendor(t, vendorID).Pending.Get()
		assert.Equal(t, entity.PendingBookingStatusPending, pending.Status)
		assert.NotContains(t, f.auditActions(t, vendorID), entity.AuditActionBookingConfirmed)
	})

	t.Run("Unit assigned to another vendor is reported as already assigned", func(t *testing.T) {
		f := newFixture(t)
		shelf := f.createUnit(t, "R-1", entity.UnitTypeStandardShelf, "50")
		first := f.registerVendor(t, "anna@example.com", bookingRequest(3))
		second := f.registerVendor(t, "ben@example.com", bookingRequest(3))

		_, err := f.svc.Booking.ConfirmBooking(f.ctx, first, "admin", confirmRequest(shelf))
		require.NoError(t, err)

		_, err = f.svc.Booking.ConfirmBooking(f.ctx, second, "admin", confirmRequest(shelf))
		conflict := asConflict(t, err)
		require.Len(t, conflict.Units, 1)
		assert.Equal(t, ConflictAlreadyAssigned, conflict.Units[0].Reason)
	})

	t.Run("Concurrent confirmations of the same unit", func(t *testing.T) {
		f := newFixture(t)
		shelf := f.createUnit(t, "R-1", entity.UnitTypeStandardShelf, "50")

		const vendors = 8
		ids := make([]uuid.UUID, vendors)
		for i := range ids {
			ids[i] = f.registerVendor(t, uuid.NewString()+"@example.com", bookingRequest(3))
		}

		errs := make([]error, vendors)
		var wg sync.WaitGroup
		for i, id := range ids {
			wg.Add(1)
			go func(i int, id uuid.UUID) {
				defer wg.Done()
				_, errs[i] = f.svc.Booking.ConfirmBooking(f.ctx, id, "admin", confirmRequest(shelf))
			}(i, id)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			conflict := asConflict(t, err)
			require.Len(t, conflict.Units, 1)
			assert.Equal(t, shelf, conflict.Units[0].UnitID)
		}
		assert.Equal(t, 1, succeeded)

		u := f.unit(t, shelf)
		require.NotNil(t, u.VendorID)
		assert.Contains(t, ids, *u.VendorID)
	})

	t.Run("Price overrides apply per unit and are audited", func(t *testing.T) {
		f := newFixture(t)
		shelf := f.createUnit(t, "R-1", entity.UnitTypeStandardShelf, "50")
		cooled := f.createUnit(t, "K-1", entity.UnitTypeCooledShelf, "70")
		vendorID := f.registerVendor(t, "anna@example.com", bookingRequest(1))

		req := confirmRequest(shelf, cooled)
		req.PriceOverrides = map[string]decimal.Decimal{cooled.String(): decimal.RequireFromString("45")}

		result, err := f.svc.Booking.ConfirmBooking(f.ctx, vendorID, "admin", req)
		require.NoError(t, err)

		assert.Equal(t, "50.00", result.Contract.Lines[0].MonthlyPrice)
		assert.Equal(t, "45.00", result.Contract.Lines[1].MonthlyPrice)
		assert.Equal(t, "95.00", result.Price.MonthlyTotal)

		entries, err := f.repo.Audit.FindByVendorID(f.ctx, vendorID)
		require.NoError(t, err)
		var override *entity.AuditEntry
		for _, e := range entries {
			if e.Action == entity.AuditActionPriceOverride {
				override = e
			}
		}
		require.NotNil(t, override)
		assert.Equal(t, "admin", override.Actor)
		assert.Equal(t, "70.00", override.Details["catalog_price"])
		assert.Equal(t, "45.00", override.Details["override_price"])
	})

	t.Run("Rejects invalid requests before touching state", func(t *testing.T) {
		f := newFixture(t)
		shelf := f.createUnit(t, "R-1", entity.UnitTypeStandardShelf, "50")
		vendorID := f.registerVendor(t, "anna@example.com", bookingRequest(1))

		tooHigh := confirmRequest(shelf)
		tooHigh.PriceOverrides = map[string]decimal.Decimal{shelf.String(): decimal.RequireFromString("1000.01")}

		foreign := confirmRequest(shelf)
		foreign.PriceOverrides = map[string]decimal.Decimal{uuid.NewString(): decimal.RequireFromString("10")}

		unrequested := confirmRequest(shelf)
		unrequested.AddOns = []string{string(entity.AddOnShippingHandling)}

		badDate := confirmRequest(shelf)
		badDate.ScheduledStartDate = "next tuesday"

		cases := map[string]*request.ConfirmBookingRequest{
			"empty unit list":        {},
			"override above ceiling": tooHigh,
			"override outside units": foreign,
			"unrequested add-on":     unrequested,
			"unparseable start date": badDate,
		}
		for name, req := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := f.svc.Booking.ConfirmBooking(f.ctx, vendorID, "admin", req)
				asValidation(t, err)
			})
		}

		assert.True(t, f.unit(t, shelf).IsAvailable)
	})

	t.Run("Requested add-ons are kept unless the operator overrides them", func(t *testing.T) {
		f := newFixture(t)
		shelf := f.createUnit(t, "R-1", entity.UnitTypeStandardShelf, "50")
		other := f.createUnit(t, "R-2", entity.UnitTypeStandardShelf, "50")
		first := f.registerVendor(t, "anna@example.com", bookingRequest(1, string(entity.AddOnStorageHandling)))
		second := f.registerVendor(t, "ben@example.com", bookingRequest(1, string(entity.AddOnStorageHandling)))

		kept, err := f.svc.Booking.ConfirmBooking(f.ctx, first, "admin", confirmRequest(shelf))
		require.NoError(t, err)
		assert.Equal(t, []entity.AddOn{entity.AddOnStorageHandling}, kept.Contract.AddOns)
		assert.Equal(t, "70.00", kept.Price.MonthlyTotal)

		req := confirmRequest(other)
		req.AddOns = []string{}
		dropped, err := f.svc.Booking.ConfirmBooking(f.ctx, second, "admin", req)
		require.NoError(t, err)
		assert.Empty(t, dropped.Contract.AddOns)
		assert.Equal(t, "50.00", dropped.Price.MonthlyTotal)
	})

	t.Run("Duplicated add-ons are rejected", func(t *testing.T) {
		f := newFixture(t)
		shelf := f.createUnit(t, "R-1", entity.UnitTypeStandardShelf, "50")
		vendorID := f.registerVendor(t, "anna@example.com", bookingRequest(1, string(entity.AddOnStorageHandling)))

		req := confirmRequest(shelf)
		req.AddOns = []string{string(entity.AddOnStorageHandling), string(entity.AddOnStorageHandling)}
		_, err := f.svc.Booking.ConfirmBooking(f.ctx, vendorID, "admin", req)
		asValidation(t, err)
		assert.False(t, f.unit(t, shelf).IsAssigned())

		req.AddOns = []string{string(entity.AddOnStorageHandling)}
		result, err := f.svc.Booking.ConfirmBooking(f.ctx, vendorID, "admin", req)
		require.NoError(t, err)
		assert.Equal(t, []entity.AddOn{entity.AddOnStorageHandling}, result.Contract.AddOns)
		assert.Equal(t, "70.00", result.Price.MonthlyTotal)
	})

	t.Run("Cancelled vendor cannot confirm its pending booking", func(t *testing.T) {
		f := newFixture(t)
		shelf := f.createUnit(t, "R-1", entity.UnitTypeStandardShelf, "50")
		vendorID := f.registerVendor(t, "anna@example.com", bookingRequest(1))
		_, err := f.svc.Trial.CancelTrial(f.ctx, vendorID, "admin", "left the market")
		require.NoError(t, err)

		_, err = f.svc.Booking.ConfirmBooking(f.ctx, vendorID, "admin", confirmRequest(shelf))
		asState(t, err)

		u := f.unit(t, shelf)
		assert.True(t, u.IsAvailable)
		assert.False(t, u.IsAssigned())
		contracts, err := f.repo.Contract.FindByVendorID(f.ctx, vendorID)
		require.NoError(t, err)
		assert.Empty(t, contracts)

		_, err = f.svc.Trial.ReactivateTrial(f.ctx, vendorID, "admin", "back again")
		require.NoError(t, err)
		_, err = f.svc.Booking.ConfirmBooking(f.ctx, vendorID, "admin", confirmRequest(shelf))
		require.NoError(t, err)
		assert.True(t, f.unit(t, shelf).IsAssigned())
	})

	t.Run("Before opening the contract starts at the opening date", func(t *testing.T) {
		opening := baseTime.AddDate(0, 1, 0)
		f := newFixture(t, openingAt(opening))
		shelf := f.createUnit(t, "R-1", entity.UnitTypeStandardShelf, "50")
		vendorID := f.registerVendor(t, "anna@example.com", bookingRequest(3))
		require.Equal(t, entity.RegistrationStatusPreregistered, f.vendor(t, vendorID).Status)

		result, err := f.svc.Booking.ConfirmBooking(f.ctx, vendorID, "admin", confirmRequest(shelf))
		require.NoError(t, err)

		assert.True(t, result.TrialApplied)
		assert.Equal(t, opening, result.Contract.StartDate)
		assert.Equal(t, opening.AddDate(0, 0, 30), result.Contract.PaymentStartDate)
	})

	t.Run("Converted vendor books without trial days", func(t *testing.T) {
		f := newFixture(t)
		shelf := f.createUnit(t, "R-1", entity.UnitTypeStandardShelf, "50")
		vendorID := f.registerVendor(t, "anna@example.com", bookingRequest(2))
		_, err := f.svc.Trial.ConvertTrial(f.ctx, vendorID, "admin")
		require.NoError(t, err)

		start := baseTime.Add(48 * time.Hour)
		req := confirmRequest(shelf)
		req.ScheduledStartDate = start.Format(time.RFC3339)

		result, err := f.svc.Booking.ConfirmBooking(f.ctx, vendorID, "admin", req)
		require.NoError(t, err)

		assert.False(t, result.TrialApplied)
		assert.Zero(t, result.TrialDays)
		assert.Nil(t, result.Contract.TrialVendorID)
		assert.Equal(t, start, result.Contract.PaymentStartDate)
		assert.Equal(t, start.AddDate(0, 2, 0), result.Contract.WindowTo)
	})
}
