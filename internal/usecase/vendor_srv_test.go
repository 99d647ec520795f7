package usecase

import (
	"testing"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/internal/dto/request"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterVendor(t *testing.T) {
	f := newFixture(t)

	vendor, err := f.svc.Vendor.Register(f.ctx, &request.RegisterVendorRequest{
		Name:    "Anna Berg",
		Email:   "Anna@Example.com",
		Booking: bookingRequest(6, string(entity.AddOnStorageHandling)),
	})
	require.NoError(t, err)

	assert.Equal(t, "anna@example.com", vendor.Email)
	require.NotNil(t, vendor.PendingBooking)
	assert.Equal(t, entity.PendingBookingStatusPending, vendor.PendingBooking.Status)
	assert.Equal(t, "7", vendor.PendingBooking.CommissionRate)
	assert.Equal(t, []entity.AddOn{entity.AddOnStorageHandling}, vendor.PendingBooking.AddOns)

	_, err = f.svc.Vendor.Register(f.ctx, &request.RegisterVendorRequest{
		Name:    "Anna Again",
		Email:   "anna@example.com",
		Booking: bookingRequest(1),
	})
	asConflict(t, err)

	unknownTier := bookingRequest(1)
	unknownTier.PackageTier = "platinum"
	_, err = f.svc.Vendor.Register(f.ctx, &request.RegisterVendorRequest{
		Name:    "Carla",
		Email:   "carla@example.com",
		Booking: unknownTier,
	})
	asValidation(t, err)

	_, err = f.svc.Vendor.Register(f.ctx, &request.RegisterVendorRequest{
		Name:  "Dora",
		Email: "dora@example.com",
	})
	asValidation(t, err)
}

func TestRequestBookingSupersedes(t *testing.T) {
	f := newFixture(t)
	shelf := f.createUnit(t, "R-1", entity.UnitTypeStandardShelf, "50")
	vendorID := f.registerVendor(t, "anna@example.com", bookingRequest(3))
	_, err := f.svc.Booking.ConfirmBooking(f.ctx, vendorID, "admin", confirmRequest(shelf))
	require.NoError(t, err)

	next := bookingRequest(12)
	next.PackageTier = "basic"
	next.Comments = "  more space for the holidays "
	vendor, err := f.svc.Vendor.RequestBooking(f.ctx, vendorID, &next)
	require.NoError(t, err)

	require.NotNil(t, vendor.PendingBooking)
	assert.Equal(t, entity.PendingBookingStatusPending, vendor.PendingBooking.Status)
	assert.Equal(t, 12, vendor.PendingBooking.DurationMonths)
	assert.Equal(t, "4", vendor.PendingBooking.CommissionRate)
	assert.Equal(t, "more space for the holidays", vendor.PendingBooking.Comments)

	_, err = f.svc.Trial.CancelTrial(f.ctx, vendorID, "admin", "closed shop")
	require.NoError(t, err)
	_, err = f.svc.Vendor.RequestBooking(f.ctx, vendorID, &next)
	asState(t, err)

	_, err = f.svc.Vendor.RequestBooking(f.ctx, uuid.New(), &next)
	asNotFound(t, err)
}

func TestListVendors(t *testing.T) {
	f := newFixture(t)
	f.registerVendor(t, "anna@example.com", bookingRequest(1))
	f.registerVendor(t, "ben@example.com", bookingRequest(1))

	page, err := f.svc.Vendor.ListVendors(f.ctx, &request.PaginatedRequest{Page: 1, PerPage: 1})
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, int64(2), page.Pagination.Total)

	_, err = f.svc.Vendor.GetVendor(f.ctx, uuid.New())
	asNotFound(t, err)
}
