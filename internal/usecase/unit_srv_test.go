package usecase

import (
	"testing"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/internal/dto/request"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUnit(t *testing.T) {
	f := newFixture(t)

	unit, err := f.svc.Unit.CreateUnit(f.ctx, &request.CreateUnitRequest{
		Label:     " R-12 ",
		Type:      string(entity.UnitTypeSalesTable),
		BasePrice: decimal.RequireFromString("35.5"),
	})
	require.NoError(t, err)
	assert.Equal(t, "R-12", unit.Label)
	assert.Equal(t, "35.50", unit.BasePrice)
	assert.True(t, unit.IsAvailable)

	_, err = f.svc.Unit.CreateUnit(f.ctx, &request.CreateUnitRequest{
		Label:     "R-12",
		Type:      string(entity.UnitTypeStandardShelf),
		BasePrice: decimal.RequireFromString("10"),
	})
	conflict := asConflict(t, err)
	assert.Empty(t, conflict.Units)

	_, err = f.svc.Unit.CreateUnit(f.ctx, &request.CreateUnitRequest{
		Label:     "R-13",
		Type:      "bookshelf",
		BasePrice: decimal.RequireFromString("10"),
	})
	asValidation(t, err)

	_, err = f.svc.Unit.CreateUnit(f.ctx, &request.CreateUnitRequest{
		Label:     "R-14",
		Type:      string(entity.UnitTypeStandardShelf),
		BasePrice: decimal.Zero,
	})
	asValidation(t, err)
}

func TestUpdateUnit(t *testing.T) {
	f := newFixture(t)
	id := f.createUnit(t, "R-1", entity.UnitTypeStandardShelf, "50")
	f.createUnit(t, "R-2", entity.UnitTypeStandardShelf, "50")

	label := "R-1a"
	price := decimal.RequireFromString("55")
	unit, err := f.svc.Unit.UpdateUnit(f.ctx, id, &request.UpdateUnitRequest{Label: &label, BasePrice: &price})
	require.NoError(t, err)
	assert.Equal(t, "R-1a", unit.Label)
	assert.Equal(t, "55.00", unit.BasePrice)

	taken := "R-2"
	_, err = f.svc.Unit.UpdateUnit(f.ctx, id, &request.UpdateUnitRequest{Label: &taken})
	asConflict(t, err)

	_, err = f.svc.Unit.UpdateUnit(f.ctx, uuid.New(), &request.UpdateUnitRequest{Label: &label})
	asNotFound(t, err)
}

func TestListUnits(t *testing.T) {
	f := newFixture(t)
	f.createUnit(t, "A-1", entity.UnitTypeStandardShelf, "50")
	f.createUnit(t, "A-2", entity.UnitTypeStandardShelf, "50")
	blocked := f.createUnit(t, "B-1", entity.UnitTypeCooledShelf, "70")
	_, err := f.svc.Unit.SetAvailability(f.ctx, blocked, false)
	require.NoError(t, err)

	page, err := f.svc.Unit.ListUnits(f.ctx, &request.ListUnitsRequest{
		PaginatedRequest: request.PaginatedRequest{Page: 1, PerPage: 2},
	})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)

	available := true
	page, err = f.svc.Unit.ListUnits(f.ctx, &request.ListUnitsRequest{
		PaginatedRequest: request.PaginatedRequest{Page: 1, PerPage: 10},
		Available:        &available,
	})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "A-1", page.Data[0].Label)

	page, err = f.svc.Unit.ListUnits(f.ctx, &request.ListUnitsRequest{
		PaginatedRequest: request.PaginatedRequest{Page: 1, PerPage: 10},
		Type:             string(entity.UnitTypeCooledShelf),
	})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "B-1", page.Data[0].Label)
}

func TestSetAvailability(t *testing.T) {
	f := newFixture(t)
	shelf := f.createUnit(t, "R-1", entity.UnitTypeStandardShelf, "50")
	vendorID := f.registerVendor(t, "anna@example.com", bookingRequest(3))
	_, err := f.svc.Booking.ConfirmBooking(f.ctx, vendorID, "admin", confirmRequest(shelf))
	require.NoError(t, err)

	_, err = f.svc.Unit.SetAvailability(f.ctx, shelf, true)
	asState(t, err)

	_, err = f.svc.Unit.SetAvailability(f.ctx, uuid.New(), false)
	asNotFound(t, err)
}

func TestAssignAndRelease(t *testing.T) {
	f := newFixture(t)
	shelf := f.createUnit(t, "R-1", entity.UnitTypeStandardShelf, "50")
	vendorID, contractID := uuid.New(), uuid.New()

	require.NoError(t, f.svc.Unit.AssignToVendor(f.ctx, shelf, vendorID, contractID))

	err := f.svc.Unit.AssignToVendor(f.ctx, shelf, uuid.New(), uuid.New())
	conflict := asConflict(t, err)
	require.Len(t, conflict.Units, 1)
	assert.Equal(t, ConflictAlreadyAssigned, conflict.Units[0].Reason)

	require.NoError(t, f.svc.Unit.Release(f.ctx, shelf))
	require.NoError(t, f.svc.Unit.Release(f.ctx, shelf), "release is idempotent")
	assert.True(t, f.unit(t, shelf).IsAvailable)

	_, err = f.svc.Unit.SetAvailability(f.ctx, shelf, false)
	require.NoError(t, err)
	err = f.svc.Unit.AssignToVendor(f.ctx, shelf, vendorID, contractID)
	conflict = asConflict(t, err)
	assert.Equal(t, ConflictNotAvailable, conflict.Units[0].Reason)

	asNotFound(t, f.svc.Unit.Release(f.ctx, uuid.New()))
}

func TestLoadUnitsKeepsRequestOrder(t *testing.T) {
	f := newFixture(t)
	a := f.createUnit(t, "A", entity.UnitTypeStandardShelf, "50")
	b := f.createUnit(t, "B", entity.UnitTypeStandardShelf, "50")

	units, err := f.svc.Unit.LoadUnits(f.ctx, []uuid.UUID{b, a})
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, b, units[0].ID)
	assert.Equal(t, a, units[1].ID)

	_, err = f.svc.Unit.LoadUnits(f.ctx, []uuid.UUID{a, uuid.New()})
	asNotFound(t, err)
}

func TestOperatorEditsRefreshDisplay(t *testing.T) {
	f := newCachedFixture(t, newMapCache())
	shelf := f.createUnit(t, "R-1", entity.UnitTypeStandardShelf, "50")

	listed := func() []string {
		t.Helper()
		units, err := f.svc.Display.FindAvailableUnitsForDisplay(f.ctx, nil, baseTime, nil)
		require.NoError(t, err)
		labels := make([]string, len(units))
		for i, u := range units {
			labels[i] = u.Label
		}
		return labels
	}

	require.Equal(t, []string{"R-1"}, listed())

	_, err := f.svc.Unit.SetAvailability(f.ctx, shelf, false)
	require.NoError(t, err)
	assert.Empty(t, listed())

	_, err = f.svc.Unit.SetAvailability(f.ctx, shelf, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"R-1"}, listed())

	label := "R-9"
	_, err = f.svc.Unit.UpdateUnit(f.ctx, shelf, &request.UpdateUnitRequest{Label: &label})
	require.NoError(t, err)
	assert.Equal(t, []string{"R-9"}, listed())

	f.createUnit(t, "R-2", entity.UnitTypeStandardShelf, "50")
	assert.Equal(t, []string{"R-2", "R-9"}, listed())
}
