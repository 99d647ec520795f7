package usecase

import (
	"context"
	"fmt"
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
	"go.uber.org/zap"
)

type VendorService interface {
	// Register creates a vendor with its first booking request. Before the
	// marketplace opens the vendor waits as preregistered; afterwards the
	// trial starts right away.
	Register(ctx context.Context, req *request.RegisterVendorRequest) (*response.VendorResponse, error)
	// RequestBooking replaces the vendor's pending booking with a new one.
	RequestBooking(ctx context.Context, vendorID uuid.UUID, req *request.BookingRequest) (*response.VendorResponse, error)
	GetVendor(ctx context.Context, vendorID uuid.UUID) (*response.VendorResponse, error)
	ListVendors(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.VendorResponse], error)
}

type vendorService struct {
	repo       *repository.Repository
	calculator pricing.Calculator
	notifier   notify.Notifier
	trial      utils.TrialConfig
	market     utils.MarketplaceConfig
	clock      Clock
	log        *zap.Logger
}

func NewVendorService(repo *repository.Repository, calculator pricing.Calculator, notifier notify.Notifier, config *utils.Config, clock Clock, log *zap.Logger) VendorService {
	return &vendorService{
		repo:       repo,
		calculator: calculator,
		notifier:   notifier,
		trial:      config.Trial,
		market:     config.Marketplace,
		clock:      clock,
		log:        log.With(zap.String("service", "vendor")),
	}
}

func (s *vendorService) pendingBooking(req *request.BookingRequest, now time.Time) (entity.PendingBooking, error) {
	rate, ok := s.calculator.CommissionRate(req.PackageTier)
	if !ok {
		return entity.PendingBooking{}, invalid("unknown package tier %q", req.PackageTier)
	}

	selections := make([]entity.UnitSelection, len(req.Selections))
	for i, sel := range req.Selections {
		selections[i] = entity.UnitSelection{UnitType: entity.UnitType(sel.UnitType), Count: sel.Count}
	}

	addOns := make([]entity.AddOn, len(req.AddOns))
	for i, a := range req.AddOns {
		addOns[i] = entity.AddOn(a)
	}

	return entity.PendingBooking{
		Selections:     selections,
		AddOns:         addOns,
		DurationMonths: req.DurationMonths,
		PackageTier:    req.PackageTier,
		CommissionRate: rate,
		Comments:       strings.TrimSpace(req.Comments),
		CreatedAt:      now,
		Status:         entity.PendingBookingStatusPending,
	}, nil
}

func (s *vendorService) Register(ctx context.Context, req *request.RegisterVendorRequest) (*response.VendorResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Register vendor validation failed", zap.Any("errors", errs))
		return nil, invalidFields(errs)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	existing, err := s.repo.Vendor.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check vendor email: %w", err)
	}
	if existing != nil {
		return nil, &ConflictError{Message: fmt.Sprintf("email %s is already registered", email)}
	}

	now := s.clock()
	booking, err := s.pendingBooking(&req.Booking, now)
	if err != nil {
		return nil, err
	}

	vendor := &entity.Vendor{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:    strings.TrimSpace(req.Name),
		Email:   email,
		Company: strings.TrimSpace(req.Company),
		Status:  entity.RegistrationStatusPreregistered,
		Pending: entity.WithPendingBooking(booking),
		Version: 1,
	}

	var event *notify.Event
	var audit *entity.AuditEntry
	if s.market.IsOpen(now) {
		vendor.StartTrial(now, s.trial.LengthDays)
		audit = newAuditEntry(vendor.ID, SystemActor, entity.AuditActionTrialActivated, "registered after opening", 0, now)
		event = vendorEvent(notify.EventTrialActivated, vendor, now, map[string]string{
			"trial_start_date": formatDate(vendor.TrialStartDate),
			"trial_end_date":   formatDate(vendor.TrialEndDate),
		})
	}

	err = s.repo.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
		if err := tx.Vendor.Create(ctx, vendor); err != nil {
			return fmt.Errorf("create vendor: %w", err)
		}
		if audit != nil {
			if err := tx.Audit.Append(ctx, audit); err != nil {
				return fmt.Errorf("append audit entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("Failed to register vendor", zap.Error(err), zap.String("email", email))
		return nil, err
	}

	s.log.Info("Vendor registered",
		zap.String("vendor_id", vendor.ID.String()),
		zap.String("status", string(vendor.Status)),
		zap.Int("duration_months", booking.DurationMonths),
	)

	if event != nil {
		s.notifier.Notify(ctx, *event)
	}

	resp := response.VendorToResponse(vendor)
	return &resp, nil
}

func (s *vendorService) RequestBooking(ctx context.Context, vendorID uuid.UUID, req *request.BookingRequest) (*response.VendorResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Booking request validation failed", zap.Any("errors", errs))
		return nil, invalidFields(errs)
	}

	vendor, _, err := mutateVendor(ctx, s.repo, s.clock, s.log, vendorID, func(_ context.Context, _ *repository.Repository, v *entity.Vendor, now time.Time) (*vendorChange, error) {
		if v.Status.IsTerminal() {
			return nil, invalidState("vendor is %s and cannot request bookings", v.Status)
		}

		booking, err := s.pendingBooking(req, now)
		if err != nil {
			return nil, err
		}
		v.Pending.Supersede(booking)
		return &vendorChange{changed: true}, nil
	})
	if err != nil {
		logFailure(s.log, "Booking request failed", err, zap.String("vendor_id", vendorID.String()))
		return nil, err
	}

	s.log.Info("Booking requested",
		zap.String("vendor_id", vendorID.String()),
		zap.Int("selections", len(req.Selections)),
		zap.Int("duration_months", req.DurationMonths),
	)

	resp := response.VendorToResponse(vendor)
	return &resp, nil
}

func (s *vendorService) GetVendor(ctx context.Context, vendorID uuid.UUID) (*response.VendorResponse, error) {
	vendor, err := s.repo.Vendor.FindByID(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("find vendor %s: %w", vendorID, err)
	}
	if vendor == nil {
		return nil, notFound("vendor", vendorID)
	}

	resp := response.VendorToResponse(vendor)
	return &resp, nil
}

func (s *vendorService) ListVendors(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.VendorResponse], error) {
	vendors, err := s.repo.Vendor.List(ctx, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to list vendors", zap.Error(err))
		return nil, fmt.Errorf("list vendors: %w", err)
	}

	total, err := s.repo.Vendor.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count vendors: %w", err)
	}

	out := make([]response.VendorResponse, len(vendors))
	for i, v := range vendors {
		out[i] = response.VendorToResponse(v)
	}
	return response.NewPaginatedResponse(out, req.Page, req.Limit(), total), nil
}
