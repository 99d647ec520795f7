package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/internal/data/repository"
	"rental-marketplace/internal/data/repository/memory"
	"rental-marketplace/internal/dto/request"
	"rental-marketplace/internal/notify"
	"rental-marketplace/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, event notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Names() []notify.EventName {
	n.mu.Lock()
	defer n.mu.Unlock()
	names := make([]notify.EventName, len(n.events))
	for i, e := range n.events {
		names[i] = e.Name
	}
	return names
}

type fixture struct {
	svc      *Service
	repo     *repository.Repository
	clock    *testClock
	notifier *recordingNotifier
	ctx      context.Context
}

func testConfig() *utils.Config {
	return &utils.Config{
		Trial: utils.TrialConfig{LengthDays: 30, WarningDays: 7},
		Redis: utils.RedisConfig{CacheTTL: time.Minute},
	}
}

func newFixture(t *testing.T, opts ...func(*utils.Config)) *fixture {
	t.Helper()
	return newCachedFixture(t, nil, opts...)
}

// newCachedFixture backs the availability display with cache.
func newCachedFixture(t *testing.T, cache DisplayCache, opts ...func(*utils.Config)) *fixture {
	t.Helper()

	config := testConfig()
	for _, opt := range opts {
		opt(config)
	}

	clock := &testClock{now: baseTime}
	notifier := &recordingNotifier{}
	repo := memory.NewRepository(zap.NewNop())

	svc := NewService(repo, config, Dependencies{
		Notifier: notifier,
		Cache:    cache,
		Clock:    clock.Now,
	}, zap.NewNop())

	return &fixture{
		svc:      svc,
		repo:     repo,
		clock:    clock,
		notifier: notifier,
		ctx:      context.Background(),
	}
}

// openingAt configures a marketplace that opens at the given instant.
func openingAt(at time.Time) func(*utils.Config) {
	return func(c *utils.Config) {
		c.Marketplace = utils.MarketplaceConfig{OpeningEnabled: true, OpeningAt: at}
	}
}

func (f *fixture) createUnit(t *testing.T, label string, unitType entity.UnitType, price string) uuid.UUID {
	t.Helper()

	unit, err := f.svc.Unit.CreateUnit(f.ctx, &request.CreateUnitRequest{
		Label:     label,
		Type:      string(unitType),
		BasePrice: decimal.RequireFromString(price),
	})
	require.NoError(t, err)
	return uuid.MustParse(unit.ID)
}

func bookingRequest(months int, addOns ...string) request.BookingRequest {
	return request.BookingRequest{
		Selections: []request.UnitSelectionRequest{
			{UnitType: string(entity.UnitTypeStandardShelf), Count: 1},
			{UnitType: string(entity.UnitTypeCooledShelf), Count: 1},
		},
		AddOns:         addOns,
		DurationMonths: months,
		PackageTier:    "premium",
	}
}

func (f *fixture) registerVendor(t *testing.T, email string, booking request.BookingRequest) uuid.UUID {
	t.Helper()

	vendor, err := f.svc.Vendor.Register(f.ctx, &request.RegisterVendorRequest{
		Name:    "Vendor " + email,
		Email:   email,
		Company: "Handmade GmbH",
		Booking: booking,
	})
	require.NoError(t, err)
	return uuid.MustParse(vendor.ID)
}

func (f *fixture) vendor(t *testing.T, id uuid.UUID) *entity.Vendor {
	t.Helper()

	v, err := f.repo.Vendor.FindByID(f.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, v)
	return v
}

func (f *fixture) unit(t *testing.T, id uuid.UUID) *entity.RentalUnit {
	t.Helper()

	u, err := f.repo.Unit.FindByID(f.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

func (f *fixture) auditActions(t *testing.T, vendorID uuid.UUID) []entity.AuditAction {
	t.Helper()

	entries, err := f.repo.Audit.FindByVendorID(f.ctx, vendorID)
	require.NoError(t, err)
	actions := make([]entity.AuditAction, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	return actions
}

func confirmRequest(ids ...uuid.UUID) *request.ConfirmBookingRequest {
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	return &request.ConfirmBookingRequest{UnitIDs: raw}
}

func asValidation(t *testing.T, err error) *ValidationError {
	t.Helper()
	var target *ValidationError
	require.True(t, errors.As(err, &target), "expected ValidationError, got %v", err)
	return target
}

func asConflict(t *testing.T, err error) *ConflictError {
	t.Helper()
	var target *ConflictError
	require.True(t, errors.As(err, &target), "expected ConflictError, got %v", err)
	return target
}

func asState(t *testing.T, err error) *StateError {
	t.Helper()
	var target *StateError
	require.True(t, errors.As(err, &target), "expected StateError, got %v", err)
	return target
}

func asNotFound(t *testing.T, err error) *NotFoundError {
	t.Helper()
	var target *NotFoundError
	require.True(t, errors.As(err, &target), "expected NotFoundError, got %v", err)
	return target
}
