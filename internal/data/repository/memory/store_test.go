package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/internal/data/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newUnit(label string) *entity.RentalUnit {
	return &entity.RentalUnit{
		Base:        entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Label:       label,
		Type:        entity.UnitTypeStandardShelf,
		BasePrice:   decimal.NewFromInt(50),
		IsAvailable: true,
	}
}

func newVendor(email string) *entity.Vendor {
	return &entity.Vendor{
		Base:    entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:    "Vendor",
		Email:   email,
		Status:  entity.RegistrationStatusPreregistered,
		Version: 1,
	}
}

func TestUnitRepo_LabelsAreUnique(t *testing.T) {
	repo := NewRepository(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Unit.Create(ctx, newUnit("R-1")))
	assert.Error(t, repo.Unit.Create(ctx, newUnit("R-1")))
}

func TestUnitRepo_ReturnsCopies(t *testing.T) {
	repo := NewRepository(zap.NewNop())
	ctx := context.Background()

	u := newUnit("R-1")
	require.NoError(t, repo.Unit.Create(ctx, u))

	got, err := repo.Unit.FindByID(ctx, u.ID)
	require.NoError(t, err)
	got.IsAvailable = false

	again, err := repo.Unit.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, again.IsAvailable)
}

func TestUnitRepo_Claim(t *testing.T) {
	repo := NewRepository(zap.NewNop())
	ctx := context.Background()

	u := newUnit("R-1")
	require.NoError(t, repo.Unit.Create(ctx, u))

	vendorID, contractID := uuid.New(), uuid.New()
	ok, err := repo.Unit.Claim(ctx, u.ID, vendorID, contractID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Unit.Claim(ctx, u.ID, uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	got, _ := repo.Unit.FindByID(ctx, u.ID)
	assert.Equal(t, contractID, *got.ContractID)
	assert.Equal(t, vendorID, *got.VendorID)
	assert.False(t, got.IsAvailable)

	require.NoError(t, repo.Unit.Release(ctx, u.ID))
	got, _ = repo.Unit.FindByID(ctx, u.ID)
	assert.False(t, got.IsAssigned())
	assert.True(t, got.IsAvailable)
}

func TestUnitRepo_ClaimBlockedUnit(t *testing.T) {
	repo := NewRepository(zap.NewNop())
	ctx := context.Background()

	u := newUnit("R-1")
	require.NoError(t, repo.Unit.Create(ctx, u))
	require.NoError(t, repo.Unit.SetAvailability(ctx, u.ID, false))

	ok, err := repo.Unit.Claim(ctx, u.ID, uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnitRepo_ConcurrentClaimHasOneWinner(t *testing.T) {
	repo := NewRepository(zap.NewNop())
	ctx := context.Background()

	u := newUnit("R-1")
	require.NoError(t, repo.Unit.Create(ctx, u))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Unit.Claim(ctx, u.ID, uuid.New(), uuid.New())
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestUnitRepo_ListPaging(t *testing.T) {
	repo := NewRepository(zap.NewNop())
	ctx := context.Background()

	for _, label := range []string{"C", "A", "B"} {
		require.NoError(t, repo.Unit.Create(ctx, newUnit(label)))
	}

	page, err := repo.Unit.List(ctx, repository.UnitFilter{}, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "B", page[0].Label)
	assert.Equal(t, "C", page[1].Label)

	all, err := repo.Unit.List(ctx, repository.UnitFilter{}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	empty, err := repo.Unit.List(ctx, repository.UnitFilter{}, 2, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestVendorRepo_OptimisticUpdate(t *testing.T) {
	repo := NewRepository(zap.NewNop())
	ctx := context.Background()

	v := newVendor("a@example.com")
	require.NoError(t, repo.Vendor.Create(ctx, v))

	first, _ := repo.Vendor.FindByID(ctx, v.ID)
	second, _ := repo.Vendor.FindByID(ctx, v.ID)

	first.Name = "First"
	require.NoError(t, repo.Vendor.Update(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.Name = "Second"
	err := repo.Vendor.Update(ctx, second)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	stored, _ := repo.Vendor.FindByID(ctx, v.ID)
	assert.Equal(t, "First", stored.Name)
}

func TestVendorRepo_EmailIsCaseInsensitive(t *testing.T) {
	repo := NewRepository(zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Vendor.Create(ctx, newVendor("anna@example.com")))
	assert.Error(t, repo.Vendor.Create(ctx, newVendor("Anna@Example.com")))
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	repo := NewRepository(zap.NewNop())
	ctx := context.Background()

	u := newUnit("R-1")
	v := newVendor("a@example.com")
	require.NoError(t, repo.Unit.Create(ctx, u))
	require.NoError(t, repo.Vendor.Create(ctx, v))

	boom := errors.New("boom")
	err := repo.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
		ok, err := tx.Unit.Claim(ctx, u.ID, v.ID, uuid.New())
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, tx.Unit.Create(ctx, newUnit("R-2")))
		require.NoError(t, tx.Audit.Append(ctx, &entity.AuditEntry{
			BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
			VendorID:   v.ID,
			Actor:      "admin",
			Action:     entity.AuditActionBookingConfirmed,
		}))

		stored, _ := tx.Vendor.FindByID(ctx, v.ID)
		stored.Status = entity.RegistrationStatusActive
		require.NoError(t, tx.Vendor.Update(ctx, stored))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, _ := repo.Unit.FindByID(ctx, u.ID)
	assert.False(t, got.IsAssigned())
	assert.True(t, got.IsAvailable)

	missing, _ := repo.Unit.FindByLabel(ctx, "R-2")
	assert.Nil(t, missing)

	entries, _ := repo.Audit.FindByVendorID(ctx, v.ID)
	assert.Empty(t, entries)

	vendor, _ := repo.Vendor.FindByID(ctx, v.ID)
	assert.Equal(t, entity.RegistrationStatusPreregistered, vendor.Status)
	assert.Equal(t, 1, vendor.Version)
}

func TestWithinTx_Commits(t *testing.T) {
	repo := NewRepository(zap.NewNop())
	ctx := context.Background()

	u := newUnit("R-1")
	require.NoError(t, repo.Unit.Create(ctx, u))

	err := repo.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
		return tx.Tx.WithinTx(ctx, func(inner *repository.Repository) error {
			_, err := inner.Unit.Claim(ctx, u.ID, uuid.New(), uuid.New())
			return err
		})
	})
	require.NoError(t, err)

	got, _ := repo.Unit.FindByID(ctx, u.ID)
	assert.True(t, got.IsAssigned())
}

func TestWithinTx_CancelledContext(t *testing.T) {
	repo := NewRepository(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := repo.Tx.WithinTx(ctx, func(*repository.Repository) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestWithinTx_RollsBackOnPanic(t *testing.T) {
	repo := NewRepository(zap.NewNop())
	ctx := context.Background()

	u := newUnit("R-1")
	require.NoError(t, repo.Unit.Create(ctx, u))

	assert.Panics(t, func() {
		_ = repo.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
			_, _ = tx.Unit.Claim(ctx, u.ID, uuid.New(), uuid.New())
			panic("boom")
		})
	})

	got, err := repo.Unit.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsAssigned())
}
