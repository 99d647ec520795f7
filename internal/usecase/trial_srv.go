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
	"rental-marketplace/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TrialManager owns the registration state machine of a vendor:
//
//	preregistered -> trial_active -> trial_expired | active | cancelled
//	trial_expired -> active
//	cancelled     -> trial_active (admin reactivation)
//
// Every admin action is appended to the audit log in the same transaction as
// the state change.
type TrialManager interface {
	TrialLengthDays() int
	// TrialApplies reports whether a booking confirmed now for v gets free trial days.
	TrialApplies(v *entity.Vendor) bool

	ActivateTrial(ctx context.Context, vendorID uuid.UUID, actor string) (*response.TrialStatusResponse, error)
	ExtendTrial(ctx context.Context, vendorID uuid.UUID, days int, actor, reason string) (*response.TrialStatusResponse, error)
	CancelTrial(ctx context.Context, vendorID uuid.UUID, actor, reason string) (*response.TrialStatusResponse, error)
	ConvertTrial(ctx context.Context, vendorID uuid.UUID, actor string) (*response.TrialStatusResponse, error)
	ExpireTrial(ctx context.Context, vendorID uuid.UUID, actor string) (*response.TrialStatusResponse, error)
	ReactivateTrial(ctx context.Context, vendorID uuid.UUID, actor, reason string) (*response.TrialStatusResponse, error)
	ResetReminder(ctx context.Context, vendorID uuid.UUID, actor string) (*response.TrialStatusResponse, error)

	GetTrialStatus(ctx context.Context, vendorID uuid.UUID) (*response.TrialStatusResponse, error)
	AuditLog(ctx context.Context, vendorID uuid.UUID) ([]response.AuditEntryResponse, error)
	BulkTrialOperation(ctx context.Context, actor string, req *request.BulkTrialRequest) (*response.BulkResultResponse, error)

	// Sweeps. Each is idempotent and returns the number of vendors it changed.
	ActivateDueTrials(ctx context.Context) (int, error)
	ExpireDueTrials(ctx context.Context) (int, error)
	SendExpiryWarnings(ctx context.Context) (int, error)
}

const (
	BulkExtend        = "extend"
	BulkExpire        = "expire"
	BulkResetReminder = "reset_reminder"
)

type trialManager struct {
	repo     *repository.Repository
	units    UnitRegistry
	display  AvailabilityDisplay
	notifier notify.Notifier
	trial    utils.TrialConfig
	market   utils.MarketplaceConfig
	clock    Clock
	log      *zap.Logger
}

func NewTrialManager(
	repo *repository.Repository,
	units UnitRegistry,
	display AvailabilityDisplay,
	notifier notify.Notifier,
	config *utils.Config,
	clock Clock,
	log *zap.Logger,
) TrialManager {
	return &trialManager{
		repo:     repo,
		units:    units,
		display:  display,
		notifier: notifier,
		trial:    config.Trial,
		market:   config.Marketplace,
		clock:    clock,
		log:      log.With(zap.String("service", "trial")),
	}
}

func (s *trialManager) TrialLengthDays() int {
	return s.trial.LengthDays
}

func (s *trialManager) TrialApplies(v *entity.Vendor) bool {
	return v.Status.InTrial()
}

// apply runs one vendor mutation and emits its event after commit.
func (s *trialManager) apply(ctx context.Context, vendorID uuid.UUID, op string, fn vendorMutation) (*entity.Vendor, bool, error) {
	vendor, change, err := mutateVendor(ctx, s.repo, s.clock, s.log, vendorID, fn)
	if err != nil {
		logFailure(s.log, "Trial "+op+" failed", err, zap.String("vendor_id", vendorID.String()))
		return nil, false, err
	}

	if change.changed {
		s.log.Info("Trial "+op,
			zap.String("vendor_id", vendorID.String()),
			zap.String("status", string(vendor.Status)),
			zap.String("trial_end_date", formatDate(vendor.TrialEndDate)),
		)
	}
	if change.event != nil {
		s.notifier.Notify(ctx, *change.event)
	}
	return vendor, change.changed, nil
}

func (s *trialManager) status(vendor *entity.Vendor) *response.TrialStatusResponse {
	resp := response.TrialStatusToResponse(vendor, s.clock())
	return &resp
}

func (s *trialManager) ActivateTrial(ctx context.Context, vendorID uuid.UUID, actor string) (*response.TrialStatusResponse, error) {
	vendor, _, err := s.apply(ctx, vendorID, "activated", s.activation(actor, true))
	if err != nil {
		return nil, err
	}
	return s.status(vendor), nil
}

func (s *trialManager) activation(actor string, strict bool) vendorMutation {
	return func(_ context.Context, _ *repository.Repository, v *entity.Vendor, now time.Time) (*vendorChange, error) {
		if v.Status != entity.RegistrationStatusPreregistered {
			if strict {
				return nil, invalidState("vendor is %s, only preregistered vendors can be activated", v.Status)
			}
			return &vendorChange{}, nil
		}

		v.StartTrial(now, s.trial.LengthDays)
		return &vendorChange{
			changed: true,
			audit:   []*entity.AuditEntry{newAuditEntry(v.ID, actor, entity.AuditActionTrialActivated, "", 0, now)},
			event: vendorEvent(notify.EventTrialActivated, v, now, map[string]string{
				"trial_start_date": formatDate(v.TrialStartDate),
				"trial_end_date":   formatDate(v.TrialEndDate),
			}),
		}, nil
	}
}

func (s *trialManager) ExtendTrial(ctx context.Context, vendorID uuid.UUID, days int, actor, reason string) (*response.TrialStatusResponse, error) {
	if days <= 0 {
		return nil, invalid("extension must be at least one day, got %d", days)
	}

	vendor, _, err := s.apply(ctx, vendorID, "extended", s.extension(days, actor, reason))
	if err != nil {
		return nil, err
	}
	return s.status(vendor), nil
}

func (s *trialManager) extension(days int, actor, reason string) vendorMutation {
	return func(_ context.Context, _ *repository.Repository, v *entity.Vendor, now time.Time) (*vendorChange, error) {
		if v.Status != entity.RegistrationStatusTrialActive || v.TrialEndDate == nil {
			return nil, invalidState("vendor is %s, only an active trial can be extended", v.Status)
		}

		end := v.TrialEndDate.AddDate(0, 0, days)
		v.TrialEndDate = &end
		v.TrialWarningSentAt = nil

		return &vendorChange{
			changed: true,
			audit:   []*entity.AuditEntry{newAuditEntry(v.ID, actor, entity.AuditActionTrialExtended, reason, days, now)},
			event: vendorEvent(notify.EventTrialExtended, v, now, map[string]string{
				"days":           strconv.Itoa(days),
				"trial_end_date": formatDate(v.TrialEndDate),
			}),
		}, nil
	}
}

// CancelTrial hides the vendor and, when it was still in trial, cancels its
// trial contracts and frees their units.
func (s *trialManager) CancelTrial(ctx context.Context, vendorID uuid.UUID, actor, reason string) (*response.TrialStatusResponse, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, invalid("cancellation reason is required")
	}

	var released int
	vendor, _, err := s.apply(ctx, vendorID, "cancelled", func(ctx context.Context, tx *repository.Repository, v *entity.Vendor, now time.Time) (*vendorChange, error) {
		released = 0
		if v.Status.IsTerminal() {
			return nil, invalidState("vendor is already %s", v.Status)
		}

		// An expired trial never started paying, so its trial contracts go too.
		wasTrial := v.Status.InTrial() || v.Status == entity.RegistrationStatusTrialExpired
		v.Status = entity.RegistrationStatusCancelled
		v.CancellationReason = reason
		v.IsPublic = false

		entry := newAuditEntry(v.ID, actor, entity.AuditActionTrialCancelled, reason, 0, now)
		if wasTrial {
			contracts, units, err := s.cancelTrialContracts(ctx, tx, v.ID)
			if err != nil {
				return nil, err
			}
			released = units
			entry.Details = map[string]string{
				"cancelled_contracts": strconv.Itoa(contracts),
				"released_units":      strconv.Itoa(units),
			}
		}

		return &vendorChange{
			changed: true,
			audit:   []*entity.AuditEntry{entry},
			event:   vendorEvent(notify.EventTrialCancelled, v, now, map[string]string{"reason": reason}),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if released > 0 {
		s.display.Invalidate(ctx)
	}
	return s.status(vendor), nil
}

func (s *trialManager) cancelTrialContracts(ctx context.Context, tx *repository.Repository, vendorID uuid.UUID) (int, int, error) {
	contracts, err := tx.Contract.FindByVendorID(ctx, vendorID)
	if err != nil {
		return 0, 0, fmt.Errorf("find vendor contracts: %w", err)
	}

	registry := s.units.WithRepository(tx)
	var cancelled, released int
	for _, c := range contracts {
		if !c.IsTrialBooking || !c.Status.Blocks() || c.TrialVendorID == nil || *c.TrialVendorID != vendorID {
			continue
		}

		ok, err := tx.Contract.UpdateStatus(ctx, c.ID, c.Status, entity.ContractStatusCancelledDuringTrial)
		if err != nil {
			return 0, 0, fmt.Errorf("cancel contract %s: %w", c.ID, err)
		}
		if !ok {
			continue
		}
		cancelled++

		n, err := releaseContractUnits(ctx, tx, registry, c)
		if err != nil {
			return 0, 0, err
		}
		released += n
	}
	return cancelled, released, nil
}

// releaseContractUnits frees the units still cross-referenced to c.
func releaseContractUnits(ctx context.Context, tx *repository.Repository, registry UnitRegistry, c *entity.Contract) (int, error) {
	units, err := tx.Unit.FindByIDs(ctx, c.UnitIDs())
	if err != nil {
		return 0, fmt.Errorf("load units of contract %s: %w", c.ID, err)
	}

	released := 0
	for _, u := range units {
		if u.ContractID == nil || *u.ContractID != c.ID {
			continue
		}
		if err := registry.Release(ctx, u.ID); err != nil {
			return 0, err
		}
		released++
	}
	return released, nil
}

// ConvertTrial is idempotent: converting an active vendor succeeds without
// touching state or the audit log.
func (s *trialManager) ConvertTrial(ctx context.Context, vendorID uuid.UUID, actor string) (*response.TrialStatusResponse, error) {
	vendor, _, err := s.apply(ctx, vendorID, "converted", func(_ context.Context, _ *repository.Repository, v *entity.Vendor, now time.Time) (*vendorChange, error) {
		switch v.Status {
		case entity.RegistrationStatusActive:
			return &vendorChange{}, nil
		case entity.RegistrationStatusTrialActive, entity.RegistrationStatusTrialExpired:
		default:
			return nil, invalidState("vendor is %s, only trial vendors can be converted", v.Status)
		}

		v.Status = entity.RegistrationStatusActive
		v.IsPublic = true
		return &vendorChange{
			changed: true,
			audit:   []*entity.AuditEntry{newAuditEntry(v.ID, actor, entity.AuditActionTrialConverted, "", 0, now)},
			event:   vendorEvent(notify.EventTrialConverted, v, now, nil),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return s.status(vendor), nil
}

func (s *trialManager) ExpireTrial(ctx context.Context, vendorID uuid.UUID, actor string) (*response.TrialStatusResponse, error) {
	vendor, _, err := s.apply(ctx, vendorID, "expired", s.expiration(actor, true))
	if err != nil {
		return nil, err
	}
	return s.status(vendor), nil
}

// expiration moves trial_active to trial_expired. The sweep variant only acts
// once the end date has passed and skips anything else silently.
func (s *trialManager) expiration(actor string, manual bool) vendorMutation {
	return func(_ context.Context, _ *repository.Repository, v *entity.Vendor, now time.Time) (*vendorChange, error) {
		if v.Status == entity.RegistrationStatusTrialExpired {
			return &vendorChange{}, nil
		}
		if v.Status != entity.RegistrationStatusTrialActive {
			if manual {
				return nil, invalidState("vendor is %s, only an active trial can expire", v.Status)
			}
			return &vendorChange{}, nil
		}
		if !manual && (v.TrialEndDate == nil || v.TrialEndDate.After(now)) {
			return &vendorChange{}, nil
		}

		v.Status = entity.RegistrationStatusTrialExpired
		return &vendorChange{
			changed: true,
			audit:   []*entity.AuditEntry{newAuditEntry(v.ID, actor, entity.AuditActionTrialExpired, "", 0, now)},
			event: vendorEvent(notify.EventTrialExpired, v, now, map[string]string{
				"trial_end_date": formatDate(v.TrialEndDate),
			}),
		}, nil
	}
}

func (s *trialManager) ReactivateTrial(ctx context.Context, vendorID uuid.UUID, actor, reason string) (*response.TrialStatusResponse, error) {
	vendor, _, err := s.apply(ctx, vendorID, "reactivated", func(_ context.Context, _ *repository.Repository, v *entity.Vendor, now time.Time) (*vendorChange, error) {
		if v.Status != entity.RegistrationStatusCancelled {
			return nil, invalidState("vendor is %s, only cancelled vendors can be reactivated", v.Status)
		}

		v.StartTrial(now, s.trial.LengthDays)
		v.CancellationReason = ""
		return &vendorChange{
			changed: true,
			audit:   []*entity.AuditEntry{newAuditEntry(v.ID, actor, entity.AuditActionTrialReactivated, reason, 0, now)},
			event: vendorEvent(notify.EventTrialReactivated, v, now, map[string]string{
				"trial_end_date": formatDate(v.TrialEndDate),
			}),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return s.status(vendor), nil
}

func (s *trialManager) ResetReminder(ctx context.Context, vendorID uuid.UUID, actor string) (*response.TrialStatusResponse, error) {
	vendor, _, err := s.apply(ctx, vendorID, "reminder reset", s.reminderReset(actor))
	if err != nil {
		return nil, err
	}
	return s.status(vendor), nil
}

func (s *trialManager) reminderReset(actor string) vendorMutation {
	return func(_ context.Context, _ *repository.Repository, v *entity.Vendor, now time.Time) (*vendorChange, error) {
		if v.Status != entity.RegistrationStatusTrialActive {
			return nil, invalidState("vendor is %s, reminders only apply to an active trial", v.Status)
		}
		if v.TrialWarningSentAt == nil {
			return &vendorChange{}, nil
		}

		v.TrialWarningSentAt = nil
		return &vendorChange{
			changed: true,
			audit:   []*entity.AuditEntry{newAuditEntry(v.ID, actor, entity.AuditActionReminderReset, "", 0, now)},
		}, nil
	}
}

func (s *trialManager) warning() vendorMutation {
	return func(_ context.Context, _ *repository.Repository, v *entity.Vendor, now time.Time) (*vendorChange, error) {
		if v.Status != entity.RegistrationStatusTrialActive || v.TrialWarningSentAt != nil || v.TrialEndDate == nil {
			return &vendorChange{}, nil
		}
		if !v.TrialEndDate.After(now) || v.TrialEndDate.After(now.AddDate(0, 0, s.trial.WarningDays)) {
			return &vendorChange{}, nil
		}

		sentAt := now
		v.TrialWarningSentAt = &sentAt
		return &vendorChange{
			changed: true,
			event: vendorEvent(notify.EventTrialExpiring, v, now, map[string]string{
				"days_remaining": strconv.Itoa(v.TrialDaysRemaining(now)),
				"trial_end_date": formatDate(v.TrialEndDate),
			}),
		}, nil
	}
}

func (s *trialManager) findVendor(ctx context.Context, vendorID uuid.UUID) (*entity.Vendor, error) {
	vendor, err := s.repo.Vendor.FindByID(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("find vendor %s: %w", vendorID, err)
	}
	if vendor == nil {
		return nil, notFound("vendor", vendorID)
	}
	return vendor, nil
}

func (s *trialManager) GetTrialStatus(ctx context.Context, vendorID uuid.UUID) (*response.TrialStatusResponse, error) {
	vendor, err := s.findVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	return s.status(vendor), nil
}

func (s *trialManager) AuditLog(ctx context.Context, vendorID uuid.UUID) ([]response.AuditEntryResponse, error) {
	if _, err := s.findVendor(ctx, vendorID); err != nil {
		return nil, err
	}

	entries, err := s.repo.Audit.FindByVendorID(ctx, vendorID)
	if err != nil {
		s.log.Error("Failed to read audit log", zap.Error(err), zap.String("vendor_id", vendorID.String()))
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	return response.AuditEntriesToResponse(entries), nil
}

// BulkTrialOperation applies one operation per vendor id and tallies the
// outcome. A failing id never stops the rest of the batch.
func (s *trialManager) BulkTrialOperation(ctx context.Context, actor string, req *request.BulkTrialRequest) (*response.BulkResultResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, invalidFields(errs)
	}
	if req.Operation == BulkExtend && req.Days <= 0 {
		return nil, invalid("extend requires a positive number of days, got %d", req.Days)
	}

	result := &response.BulkResultResponse{
		Operation: req.Operation,
		Errors:    []response.BulkItemError{},
	}

	for _, raw := range req.VendorIDs {
		err := s.bulkOne(ctx, actor, req, raw)
		if err != nil {
			result.FailureCount++
			result.Errors = append(result.Errors, response.BulkItemError{VendorID: raw, Error: err.Error()})
			continue
		}
		result.SuccessCount++
	}

	s.log.Info("Bulk trial operation finished",
		zap.String("operation", req.Operation),
		zap.String("actor", actor),
		zap.Int("success", result.SuccessCount),
		zap.Int("failure", result.FailureCount),
	)
	return result, nil
}

func (s *trialManager) bulkOne(ctx context.Context, actor string, req *request.BulkTrialRequest, raw string) error {
	vendorID, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return invalid("invalid vendor ID %q", raw)
	}

	switch req.Operation {
	case BulkExtend:
		_, err = s.ExtendTrial(ctx, vendorID, req.Days, actor, req.Reason)
	case BulkExpire:
		_, err = s.ExpireTrial(ctx, vendorID, actor)
	case BulkResetReminder:
		_, err = s.ResetReminder(ctx, vendorID, actor)
	default:
		err = invalid("unknown bulk operation %q", req.Operation)
	}
	return err
}

func (s *trialManager) ActivateDueTrials(ctx context.Context) (int, error) {
	now := s.clock()
	if !s.market.IsOpen(now) {
		s.log.Debug("Marketplace not open yet, skipping trial activation", zap.Time("opening_at", s.market.OpeningAt))
		return 0, nil
	}

	vendors, err := s.repo.Vendor.FindByStatus(ctx, entity.RegistrationStatusPreregistered)
	if err != nil {
		return 0, fmt.Errorf("find preregistered vendors: %w", err)
	}
	return s.sweep(ctx, "activated", vendors, s.activation(SystemActor, false))
}

func (s *trialManager) ExpireDueTrials(ctx context.Context) (int, error) {
	vendors, err := s.repo.Vendor.FindTrialsEndingBefore(ctx, s.clock())
	if err != nil {
		return 0, fmt.Errorf("find ended trials: %w", err)
	}
	return s.sweep(ctx, "expired", vendors, s.expiration(SystemActor, false))
}

func (s *trialManager) SendExpiryWarnings(ctx context.Context) (int, error) {
	horizon := s.clock().AddDate(0, 0, s.trial.WarningDays)
	vendors, err := s.repo.Vendor.FindTrialsEndingBefore(ctx, horizon)
	if err != nil {
		return 0, fmt.Errorf("find ending trials: %w", err)
	}
	return s.sweep(ctx, "warning sent", vendors, s.warning())
}

// sweep applies fn to each candidate. Candidates are re-read inside the
// mutation, so one that changed since the query is skipped.
func (s *trialManager) sweep(ctx context.Context, op string, vendors []*entity.Vendor, fn vendorMutation) (int, error) {
	var (
		changed int
		errs    []error
	)
	for _, v := range vendors {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		_, ok, err := s.apply(ctx, v.ID, op, fn)
		if err != nil {
			errs = append(errs, fmt.Errorf("vendor %s: %w", v.ID, err))
			continue
		}
		if ok {
			changed++
		}
	}

	if changed > 0 || len(errs) > 0 {
		s.log.Info("Trial sweep finished",
			zap.String("operation", op),
			zap.Int("candidates", len(vendors)),
			zap.Int("changed", changed),
			zap.Int("failed", len(errs)),
		)
	}
	return changed, errors.Join(errs...)
}
