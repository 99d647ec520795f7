package usecase

import (
	"context"
	"fmt"
	"time"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/internal/data/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AvailabilityIndex answers availability from the store of record. It is the
// authoritative path and never reads a cache.
type AvailabilityIndex interface {
	// IsAvailable reports whether the unit could be claimed for the window: it
	// is not blocked by the operator, not assigned, and no blocking contract on
	// it overlaps [from, to), or contains from when to is nil.
	IsAvailable(ctx context.Context, unitID uuid.UUID, from time.Time, to *time.Time) (bool, error)
	// FindAvailableUnits returns claimable units of the type (any type when
	// nil) that no blocking contract occupies during the window.
	FindAvailableUnits(ctx context.Context, unitType *entity.UnitType, from time.Time, to *time.Time) ([]*entity.RentalUnit, error)
	// CheckUnits returns one conflict per unit that cannot be claimed for [from, to).
	CheckUnits(ctx context.Context, units []*entity.RentalUnit, from, to time.Time) ([]UnitConflict, error)

	WithRepository(repo *repository.Repository) AvailabilityIndex
}

type availabilityIndex struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewAvailabilityIndex(repo *repository.Repository, log *zap.Logger) AvailabilityIndex {
	return &availabilityIndex{
		repo: repo,
		log:  log.With(zap.String("service", "availability")),
	}
}

func (s *availabilityIndex) WithRepository(repo *repository.Repository) AvailabilityIndex {
	return &availabilityIndex{repo: repo, log: s.log}
}

func checkWindow(from time.Time, to *time.Time) error {
	if from.IsZero() {
		return invalid("window start is required")
	}
	if to != nil && !to.After(from) {
		return invalid("window end %s must be after start %s", to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	return nil
}

func (s *availabilityIndex) IsAvailable(ctx context.Context, unitID uuid.UUID, from time.Time, to *time.Time) (bool, error) {
	if err := checkWindow(from, to); err != nil {
		return false, err
	}

	unit, err := s.repo.Unit.FindByID(ctx, unitID)
	if err != nil {
		return false, fmt.Errorf("find unit %s: %w", unitID, err)
	}
	if unit == nil {
		return false, notFound("unit", unitID)
	}
	if !unit.IsAvailable || unit.IsAssigned() {
		return false, nil
	}

	blocking, err := s.repo.Contract.FindBlockingByUnits(ctx, []uuid.UUID{unitID})
	if err != nil {
		return false, fmt.Errorf("find contracts on unit %s: %w", unitID, err)
	}

	for _, c := range blocking {
		if c.Occupies(from, to) {
			return false, nil
		}
	}
	return true, nil
}

func (s *availabilityIndex) FindAvailableUnits(ctx context.Context, unitType *entity.UnitType, from time.Time, to *time.Time) ([]*entity.RentalUnit, error) {
	if err := checkWindow(from, to); err != nil {
		return nil, err
	}
	if unitType != nil && !unitType.Valid() {
		return nil, invalid("unknown unit type %q", *unitType)
	}

	available := true
	candidates, err := s.repo.Unit.List(ctx, repository.UnitFilter{Type: unitType, Available: &available}, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list candidate units: %w", err)
	}

	free := make([]*entity.RentalUnit, 0, len(candidates))
	ids := make([]uuid.UUID, 0, len(candidates))
	for _, u := range candidates {
		if u.IsAssigned() {
			continue
		}
		free = append(free, u)
		ids = append(ids, u.ID)
	}
	if len(free) == 0 {
		return free, nil
	}

	occupied, err := s.occupied(ctx, ids, from, to)
	if err != nil {
		return nil, err
	}

	out := make([]*entity.RentalUnit, 0, len(free))
	for _, u := range free {
		if !occupied[u.ID] {
			out = append(out, u)
		}
	}

	s.log.Debug("Available units computed",
		zap.Int("candidates", len(candidates)),
		zap.Int("available", len(out)),
		zap.Time("from", from),
	)
	return out, nil
}

func (s *availabilityIndex) CheckUnits(ctx context.Context, units []*entity.RentalUnit, from, to time.Time) ([]UnitConflict, error) {
	if err := checkWindow(from, &to); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(units))
	for i, u := range units {
		ids[i] = u.ID
	}

	occupied, err := s.occupied(ctx, ids, from, &to)
	if err != nil {
		return nil, err
	}

	var conflicts []UnitConflict
	for _, u := range units {
		switch {
		case u.IsAssigned():
			conflicts = append(conflicts, UnitConflict{UnitID: u.ID, Label: u.Label, Reason: ConflictAlreadyAssigned})
		case !u.IsAvailable || occupied[u.ID]:
			conflicts = append(conflicts, UnitConflict{UnitID: u.ID, Label: u.Label, Reason: ConflictNotAvailable})
		}
	}
	return conflicts, nil
}

// occupied marks the units that a blocking contract holds during the window.
func (s *availabilityIndex) occupied(ctx context.Context, ids []uuid.UUID, from time.Time, to *time.Time) (map[uuid.UUID]bool, error) {
	blocking, err := s.repo.Contract.FindBlockingByUnits(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find blocking contracts: %w", err)
	}

	occupied := make(map[uuid.UUID]bool)
	for _, c := range blocking {
		if !c.Occupies(from, to) {
			continue
		}
		for _, id := range c.UnitIDs() {
			occupied[id] = true
		}
	}
	return occupied, nil
}
