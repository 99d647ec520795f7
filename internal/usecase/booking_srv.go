package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/internal/data/repository"
	"rental-marketplace/internal/dto/request"
	"rental-marketplace/internal/dto/response"
	"rental-marketplace/internal/notify"
	"rental-marketplace/internal/pricing"
	"rental-marketplace/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BookingOrchestrator turns a vendor's pending booking into a contract.
type BookingOrchestrator interface {
	// ConfirmBooking either commits a scheduled contract with every requested
	// unit claimed, or changes nothing.
	ConfirmBooking(ctx context.Context, vendorID uuid.UUID, actor string, req *request.ConfirmBookingRequest) (*response.ContractResultResponse, error)
}

type bookingOrchestrator struct {
	repo         *repository.Repository
	units        UnitRegistry
	availability AvailabilityIndex
	display      AvailabilityDisplay
	calculator   pricing.Calculator
	trials       TrialManager
	notifier     notify.Notifier
	market       utils.MarketplaceConfig
	clock        Clock
	log          *zap.Logger
}

func NewBookingOrchestrator(
	repo *repository.Repository,
	units UnitRegistry,
	availability AvailabilityIndex,
	display AvailabilityDisplay,
	calculator pricing.Calculator,
	trials TrialManager,
	notifier notify.Notifier,
	market utils.MarketplaceConfig,
	clock Clock,
	log *zap.Logger,
) BookingOrchestrator {
	return &bookingOrchestrator{
		repo:         repo,
		units:        units,
		availability: availability,
		display:      display,
		calculator:   calculator,
		trials:       trials,
		notifier:     notifier,
		market:       market,
		clock:        clock,
		log:          log.With(zap.String("service", "booking")),
	}
}

// confirmation is the validated form of a ConfirmBookingRequest.
type confirmation struct {
	unitIDs   []uuid.UUID
	overrides map[uuid.UUID]decimal.Decimal
	start     *time.Time
	addOns    []entity.AddOn // nil keeps the requested add-ons
}

// schedule is the time layout of one contract.
type schedule struct {
	start        time.Time
	trialDays    int
	paymentStart time.Time
	windowTo     time.Time
}

func (o *bookingOrchestrator) ConfirmBooking(ctx context.Context, vendorID uuid.UUID, actor string, req *request.ConfirmBookingRequest) (*response.ContractResultResponse, error) {
	in, err := o.validate(req)
	if err != nil {
		o.log.Warn("Confirm booking validation failed", zap.Error(err), zap.String("vendor_id", vendorID.String()))
		return nil, err
	}

	var (
		contract  *entity.Contract
		breakdown pricing.Breakdown
		sched     schedule
	)

	_, change, err := mutateVendor(ctx, o.repo, o.clock, o.log, vendorID, func(ctx context.Context, tx *repository.Repository, v *entity.Vendor, now time.Time) (*vendorChange, error) {
		if v.Status == entity.RegistrationStatusCancelled {
			return nil, invalidState("vendor is %s, reactivate it before confirming a booking", v.Status)
		}

		pending, ok := v.Pending.Get()
		if !ok {
			return nil, &NotFoundError{Resource: "pending booking for vendor", ID: v.ID.String()}
		}
		if pending.Status != entity.PendingBookingStatusPending {
			return nil, invalidState("pending booking is %s, only a pending booking can be confirmed", pending.Status)
		}

		addOns, err := resolveAddOns(pending, in.addOns)
		if err != nil {
			return nil, err
		}

		units, err := o.units.WithRepository(tx).LoadUnits(ctx, in.unitIDs)
		if err != nil {
			return nil, err
		}

		sched = o.schedule(v, in.start, pending.DurationMonths, now)

		conflicts, err := o.availability.WithRepository(tx).CheckUnits(ctx, units, sched.start, sched.windowTo)
		if err != nil {
			return nil, err
		}
		if len(conflicts) > 0 {
			return nil, &ConflictError{Message: "requested units are not available", Units: conflicts}
		}

		breakdown, err = o.price(units, in.overrides, pending, addOns)
		if err != nil {
			return nil, err
		}

		contract = o.newContract(v, units, breakdown, addOns, sched, now)
		if err := tx.Contract.Create(ctx, contract); err != nil {
			return nil, fmt.Errorf("create contract: %w", err)
		}

		if err := o.claim(ctx, tx, v.ID, contract.ID, units); err != nil {
			return nil, err
		}

		if err := v.Pending.MarkCompleted(); err != nil {
			return nil, invalidState("%v", err)
		}

		return &vendorChange{
			changed: true,
			audit:   o.auditEntries(v.ID, actor, contract, units, in.overrides, now),
			event: vendorEvent(notify.EventBookingConfirmed, v, now, map[string]string{
				"contract_id":        contract.ID.String(),
				"start_date":         formatDate(&contract.StartDate),
				"payment_start_date": formatDate(&contract.PaymentStartDate),
				"monthly_total":      breakdown.MonthlyTotal.StringFixed(2),
				"duration_months":    strconv.Itoa(contract.DurationMonths),
				"units":              unitLabels(units),
			}),
		}, nil
	})
	if err != nil {
		logFailure(o.log, "Booking confirmation rejected", err,
			zap.String("vendor_id", vendorID.String()),
			zap.Int("unit_count", len(in.unitIDs)),
		)
		return nil, err
	}

	o.log.Info("Booking confirmed",
		zap.String("contract_id", contract.ID.String()),
		zap.String("vendor_id", vendorID.String()),
		zap.String("actor", actor),
		zap.Int("unit_count", len(contract.Lines)),
		zap.Time("start_date", contract.StartDate),
		zap.Int("trial_days", sched.trialDays),
		zap.String("monthly_total", breakdown.MonthlyTotal.StringFixed(2)),
	)

	o.display.Invalidate(ctx)
	o.notifier.Notify(ctx, *change.event)

	return &response.ContractResultResponse{
		Contract:     response.ContractToResponse(contract),
		Price:        response.PriceBreakdownToResponse(breakdown),
		TrialApplied: contract.IsTrialBooking,
		TrialDays:    sched.trialDays,
	}, nil
}

func (o *bookingOrchestrator) validate(req *request.ConfirmBookingRequest) (*confirmation, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, invalidFields(errs)
	}

	in := &confirmation{
		unitIDs:   make([]uuid.UUID, len(req.UnitIDs)),
		overrides: make(map[uuid.UUID]decimal.Decimal, len(req.PriceOverrides)),
	}

	requested := make(map[uuid.UUID]bool, len(req.UnitIDs))
	for i, raw := range req.UnitIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, invalid("invalid unit ID %q", raw)
		}
		if requested[id] {
			return nil, invalid("unit %s listed twice", id)
		}
		requested[id] = true
		in.unitIDs[i] = id
	}

	for raw, price := range req.PriceOverrides {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, invalid("invalid unit ID %q in price overrides", raw)
		}
		if !requested[id] {
			return nil, invalid("price override for unit %s which is not part of the booking", id)
		}
		if err := o.calculator.ValidateOverride(price); err != nil {
			return nil, invalid("unit %s: %v", id, err)
		}
		in.overrides[id] = price
	}

	if req.ScheduledStartDate != "" {
		start, err := utils.ParseTime(req.ScheduledStartDate)
		if err != nil {
			return nil, invalid("scheduled start date: %v", err)
		}
		in.start = &start
	}

	if req.AddOns != nil {
		in.addOns = make([]entity.AddOn, 0, len(req.AddOns))
		for _, raw := range req.AddOns {
			in.addOns = append(in.addOns, entity.AddOn(strings.TrimSpace(raw)))
		}
	}

	return in, nil
}

// resolveAddOns keeps the requested add-ons when none are given and refuses
// any add-on the vendor never asked for.
func resolveAddOns(pending entity.PendingBooking, selected []entity.AddOn) ([]entity.AddOn, error) {
	if selected == nil {
		return pending.AddOns, nil
	}
	for _, a := range selected {
		if !pending.Requested(a) {
			return nil, invalid("add-on %s was not requested by the vendor", a)
		}
	}
	return selected, nil
}

// schedule places the contract window. The start is the explicit date, else
// now when the marketplace is open, else the opening date. Trial days are
// free and push both the payment start and the window end.
func (o *bookingOrchestrator) schedule(v *entity.Vendor, explicit *time.Time, months int, now time.Time) schedule {
	start := now
	switch {
	case explicit != nil:
		start = *explicit
	case !o.market.IsOpen(now):
		start = o.market.OpeningAt
	}

	trialDays := 0
	if o.trials.TrialApplies(v) {
		trialDays = o.trials.TrialLengthDays()
	}

	paymentStart := start.AddDate(0, 0, trialDays)
	return schedule{
		start:        start,
		trialDays:    trialDays,
		paymentStart: paymentStart,
		windowTo:     paymentStart.AddDate(0, months, 0),
	}
}

// price bills each unit as its own line so overrides stay per unit.
func (o *bookingOrchestrator) price(units []*entity.RentalUnit, overrides map[uuid.UUID]decimal.Decimal, pending entity.PendingBooking, addOns []entity.AddOn) (pricing.Breakdown, error) {
	selections := make([]pricing.Selection, len(units))
	for i, u := range units {
		price := u.BasePrice
		if override, ok := overrides[u.ID]; ok {
			price = override
		}
		selections[i] = pricing.Selection{UnitType: u.Type, BasePrice: price, Count: 1}
	}

	breakdown, err := o.calculator.Calculate(pricing.Input{
		Selections:     selections,
		DurationMonths: pending.DurationMonths,
		CommissionRate: pending.CommissionRate,
		AddOns:         addOns,
	})
	if err != nil {
		if pricing.IsInputError(err) {
			return pricing.Breakdown{}, invalid("%v", err)
		}
		return pricing.Breakdown{}, fmt.Errorf("calculate price: %w", err)
	}
	return breakdown, nil
}

func (o *bookingOrchestrator) newContract(v *entity.Vendor, units []*entity.RentalUnit, b pricing.Breakdown, addOns []entity.AddOn, sched schedule, now time.Time) *entity.Contract {
	lines := make([]entity.ContractLine, len(units))
	for i, u := range units {
		lines[i] = entity.ContractLine{
			UnitID:       u.ID,
			MonthlyPrice: b.Lines[i].BasePrice,
			StartDate:    sched.start,
			EndDate:      sched.windowTo,
		}
	}

	contract := &entity.Contract{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		VendorID:          v.ID,
		Lines:             lines,
		Status:            entity.ContractStatusScheduled,
		StartDate:         sched.start,
		DurationMonths:    b.DurationMonths,
		DiscountRate:      b.DiscountRate,
		CommissionRate:    b.CommissionRate,
		TotalMonthlyPrice: b.MonthlyTotal,
		AddOns:            append([]entity.AddOn(nil), addOns...),
		PaymentStartDate:  sched.paymentStart,
		WindowFrom:        sched.start,
		WindowTo:          sched.windowTo,
	}
	if sched.trialDays > 0 {
		vendorID := v.ID
		contract.IsTrialBooking = true
		contract.TrialVendorID = &vendorID
	}
	return contract
}

// claim assigns every unit or none. Units claimed before a failure are
// released again before the conflict is returned.
func (o *bookingOrchestrator) claim(ctx context.Context, tx *repository.Repository, vendorID, contractID uuid.UUID, units []*entity.RentalUnit) error {
	registry := o.units.WithRepository(tx)

	var (
		claimed   []uuid.UUID
		conflicts []UnitConflict
	)
	for _, u := range units {
		err := registry.AssignToVendor(ctx, u.ID, vendorID, contractID)
		if err == nil {
			claimed = append(claimed, u.ID)
			continue
		}

		var ce *ConflictError
		if !errors.As(err, &ce) {
			o.rollbackClaims(ctx, registry, claimed)
			return err
		}
		conflicts = append(conflicts, ce.Units...)
	}

	if len(conflicts) > 0 {
		o.rollbackClaims(ctx, registry, claimed)
		return &ConflictError{Message: "requested units were claimed concurrently", Units: conflicts}
	}
	return nil
}

func (o *bookingOrchestrator) rollbackClaims(ctx context.Context, registry UnitRegistry, claimed []uuid.UUID) {
	for _, id := range claimed {
		if err := registry.Release(ctx, id); err != nil {
			o.log.Error("Failed to release unit after aborted claim", zap.Error(err), zap.String("unit_id", id.String()))
		}
	}
}

func (o *bookingOrchestrator) auditEntries(vendorID uuid.UUID, actor string, contract *entity.Contract, units []*entity.RentalUnit, overrides map[uuid.UUID]decimal.Decimal, now time.Time) []*entity.AuditEntry {
	confirmed := newAuditEntry(vendorID, actor, entity.AuditActionBookingConfirmed, "", 0, now)
	confirmed.Details = map[string]string{
		"contract_id": contract.ID.String(),
		"units":       unitLabels(units),
	}
	entries := []*entity.AuditEntry{confirmed}

	for _, u := range units {
		price, ok := overrides[u.ID]
		if !ok {
			continue
		}
		entry := newAuditEntry(vendorID, actor, entity.AuditActionPriceOverride, "", 0, now)
		entry.Details = map[string]string{
			"contract_id":    contract.ID.String(),
			"unit_id":        u.ID.String(),
			"unit_label":     u.Label,
			"catalog_price":  u.BasePrice.StringFixed(2),
			"override_price": price.StringFixed(2),
		}
		entries = append(entries, entry)
	}
	return entries
}

func unitLabels(units []*entity.RentalUnit) string {
	labels := make([]string, len(units))
	for i, u := range units {
		labels[i] = u.Label
	}
	return strings.Join(labels, ",")
}
