package usecase

import (
	"context"
	"fmt"
	"strings"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/internal/data/repository"
	"rental-marketplace/internal/dto/request"
	"rental-marketplace/internal/dto/response"
	"rental-marketplace/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UnitRegistry owns rental unit records. Claim and release go through
// AssignToVendor and Release only. Operator edits drop the display cache;
// claims and releases leave that to the caller that owns the transaction.
type UnitRegistry interface {
	CreateUnit(ctx context.Context, req *request.CreateUnitRequest) (*response.UnitResponse, error)
	GetUnit(ctx context.Context, id uuid.UUID) (*response.UnitResponse, error)
	ListUnits(ctx context.Context, req *request.ListUnitsRequest) (*response.PaginatedResponse[response.UnitResponse], error)
	UpdateUnit(ctx context.Context, id uuid.UUID, req *request.UpdateUnitRequest) (*response.UnitResponse, error)
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) (*response.UnitResponse, error)

	// LoadUnits returns the units in the order of ids, failing on the first unknown id.
	LoadUnits(ctx context.Context, ids []uuid.UUID) ([]*entity.RentalUnit, error)
	AssignToVendor(ctx context.Context, id, vendorID, contractID uuid.UUID) error
	Release(ctx context.Context, id uuid.UUID) error

	// WithRepository returns a registry bound to repo, typically a transaction.
	WithRepository(repo *repository.Repository) UnitRegistry
}

type unitRegistry struct {
	repo    *repository.Repository
	display AvailabilityDisplay
	clock   Clock
	log     *zap.Logger
}

func NewUnitRegistry(repo *repository.Repository, display AvailabilityDisplay, clock Clock, log *zap.Logger) UnitRegistry {
	return &unitRegistry{
		repo:    repo,
		display: display,
		clock:   clock,
		log:     log.With(zap.String("service", "unit")),
	}
}

func (s *unitRegistry) WithRepository(repo *repository.Repository) UnitRegistry {
	return &unitRegistry{repo: repo, display: s.display, clock: s.clock, log: s.log}
}

func (s *unitRegistry) CreateUnit(ctx context.Context, req *request.CreateUnitRequest) (*response.UnitResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create unit validation failed", zap.Any("errors", errs))
		return nil, invalidFields(errs)
	}
	if !req.BasePrice.IsPositive() {
		return nil, invalid("base price must be positive")
	}

	label := strings.TrimSpace(req.Label)
	existing, err := s.repo.Unit.FindByLabel(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("check unit label: %w", err)
	}
	if existing != nil {
		return nil, &ConflictError{Message: fmt.Sprintf("unit label %s already exists", label)}
	}

	now := s.clock()
	unit := &entity.RentalUnit{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Label:       label,
		Type:        entity.UnitType(req.Type),
		BasePrice:   req.BasePrice,
		IsAvailable: true,
	}

	if err := s.repo.Unit.Create(ctx, unit); err != nil {
		s.log.Error("Failed to create unit", zap.Error(err), zap.String("label", label))
		return nil, fmt.Errorf("create unit: %w", err)
	}

	s.log.Info("Unit created",
		zap.String("unit_id", unit.ID.String()),
		zap.String("label", unit.Label),
		zap.String("type", string(unit.Type)),
		zap.String("base_price", unit.BasePrice.String()),
	)
	s.display.Invalidate(ctx)

	resp := response.UnitToResponse(unit)
	return &resp, nil
}

func (s *unitRegistry) find(ctx context.Context, id uuid.UUID) (*entity.RentalUnit, error) {
	unit, err := s.repo.Unit.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find unit %s: %w", id, err)
	}
	if unit == nil {
		return nil, notFound("unit", id)
	}
	return unit, nil
}

func (s *unitRegistry) GetUnit(ctx context.Context, id uuid.UUID) (*response.UnitResponse, error) {
	unit, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := response.UnitToResponse(unit)
	return &resp, nil
}

func (s *unitRegistry) ListUnits(ctx context.Context, req *request.ListUnitsRequest) (*response.PaginatedResponse[response.UnitResponse], error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, invalidFields(errs)
	}

	filter := repository.UnitFilter{Available: req.Available}
	if req.Type != "" {
		t := entity.UnitType(req.Type)
		filter.Type = &t
	}

	units, err := s.repo.Unit.List(ctx, filter, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to list units", zap.Error(err))
		return nil, fmt.Errorf("list units: %w", err)
	}

	total, err := s.repo.Unit.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("count units: %w", err)
	}

	return response.NewPaginatedResponse(response.UnitsToResponse(units), req.Page, req.Limit(), total), nil
}

func (s *unitRegistry) UpdateUnit(ctx context.Context, id uuid.UUID, req *request.UpdateUnitRequest) (*response.UnitResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Update unit validation failed", zap.Any("errors", errs))
		return nil, invalidFields(errs)
	}

	unit, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Label != nil {
		label := strings.TrimSpace(*req.Label)
		if label != unit.Label {
			other, err := s.repo.Unit.FindByLabel(ctx, label)
			if err != nil {
				return nil, fmt.Errorf("check unit label: %w", err)
			}
			if other != nil && other.ID != unit.ID {
				return nil, &ConflictError{Message: fmt.Sprintf("unit label %s already exists", label)}
			}
			unit.Label = label
		}
	}
	if req.Type != nil {
		unit.Type = entity.UnitType(*req.Type)
	}
	if req.BasePrice != nil {
		if !req.BasePrice.IsPositive() {
			return nil, invalid("base price must be positive")
		}
		unit.BasePrice = *req.BasePrice
	}
	unit.UpdatedAt = s.clock()

	if err := s.repo.Unit.Update(ctx, unit); err != nil {
		s.log.Error("Failed to update unit", zap.Error(err), zap.String("unit_id", id.String()))
		return nil, fmt.Errorf("update unit: %w", err)
	}

	s.log.Info("Unit updated", zap.String("unit_id", id.String()), zap.String("label", unit.Label))
	s.display.Invalidate(ctx)

	resp := response.UnitToResponse(unit)
	return &resp, nil
}

// SetAvailability is the operator switch. Blocking a free unit takes it out of
// allocation; an assigned unit can only be freed through Release.
func (s *unitRegistry) SetAvailability(ctx context.Context, id uuid.UUID, available bool) (*response.UnitResponse, error) {
	unit, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if available && unit.IsAssigned() {
		return nil, invalidState("unit %s is assigned to a contract and cannot be marked available", unit.Label)
	}

	if unit.IsAvailable != available {
		if err := s.repo.Unit.SetAvailability(ctx, id, available); err != nil {
			return nil, fmt.Errorf("set unit availability: %w", err)
		}
		unit.IsAvailable = available
		unit.UpdatedAt = s.clock()

		s.log.Info("Unit availability changed",
			zap.String("unit_id", id.String()),
			zap.String("label", unit.Label),
			zap.Bool("available", available),
		)
		s.display.Invalidate(ctx)
	}

	resp := response.UnitToResponse(unit)
	return &resp, nil
}

func (s *unitRegistry) LoadUnits(ctx context.Context, ids []uuid.UUID) ([]*entity.RentalUnit, error) {
	found, err := s.repo.Unit.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load units: %w", err)
	}

	byID := make(map[uuid.UUID]*entity.RentalUnit, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}

	units := make([]*entity.RentalUnit, len(ids))
	for i, id := range ids {
		u, ok := byID[id]
		if !ok {
			return nil, notFound("unit", id)
		}
		units[i] = u
	}
	return units, nil
}

// AssignToVendor claims the unit with a compare-and-swap. Losing the race
// yields a ConflictError naming why the unit is taken.
func (s *unitRegistry) AssignToVendor(ctx context.Context, id, vendorID, contractID uuid.UUID) error {
	ok, err := s.repo.Unit.Claim(ctx, id, vendorID, contractID)
	if err != nil {
		return fmt.Errorf("claim unit %s: %w", id, err)
	}
	if ok {
		s.log.Debug("Unit claimed",
			zap.String("unit_id", id.String()),
			zap.String("vendor_id", vendorID.String()),
			zap.String("contract_id", contractID.String()),
		)
		return nil
	}

	unit, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	reason := ConflictNotAvailable
	if unit.IsAssigned() {
		reason = ConflictAlreadyAssigned
	}
	return &ConflictError{
		Message: "unit could not be claimed",
		Units:   []UnitConflict{{UnitID: id, Label: unit.Label, Reason: reason}},
	}
}

func (s *unitRegistry) Release(ctx context.Context, id uuid.UUID) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Unit.Release(ctx, id); err != nil {
		return fmt.Errorf("release unit %s: %w", id, err)
	}
	s.log.Debug("Unit released", zap.String("unit_id", id.String()))
	return nil
}
