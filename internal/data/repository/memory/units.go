package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/internal/data/repository"

	"github.com/google/uuid"
)

type unitRepo struct {
	*view
}

func (r *unitRepo) Create(_ context.Context, unit *entity.RentalUnit) error {
	defer r.lock()()

	for _, u := range r.store.units {
		if u.DeletedAt == nil && u.Label == unit.Label {
			return fmt.Errorf("create unit %s: label already exists", unit.Label)
		}
	}
	r.store.units[unit.ID] = cloneUnit(unit)
	return nil
}

func (r *unitRepo) get(id uuid.UUID) *entity.RentalUnit {
	u, ok := r.store.units[id]
	if !ok || u.DeletedAt != nil {
		return nil
	}
	return u
}

func (r *unitRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.RentalUnit, error) {
	defer r.lock()()

	if u := r.get(id); u != nil {
		return cloneUnit(u), nil
	}
	return nil, nil
}

func (r *unitRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*entity.RentalUnit, error) {
	defer r.lock()()

	units := []*entity.RentalUnit{}
	for _, id := range ids {
		if u := r.get(id); u != nil {
			units = append(units, cloneUnit(u))
		}
	}
	sortUnits(units)
	return units, nil
}

func (r *unitRepo) FindByLabel(_ context.Context, label string) (*entity.RentalUnit, error) {
	defer r.lock()()

	for _, u := range r.store.units {
		if u.DeletedAt == nil && u.Label == label {
			return cloneUnit(u), nil
		}
	}
	return nil, nil
}

func (r *unitRepo) filtered(filter repository.UnitFilter) []*entity.RentalUnit {
	units := []*entity.RentalUnit{}
	for _, u := range r.store.units {
		if u.DeletedAt != nil {
			continue
		}
		if filter.Type != nil && u.Type != *filter.Type {
			continue
		}
		if filter.Available != nil && u.IsAvailable != *filter.Available {
			continue
		}
		units = append(units, cloneUnit(u))
	}
	sortUnits(units)
	return units
}

func (r *unitRepo) List(_ context.Context, filter repository.UnitFilter, limit, offset int) ([]*entity.RentalUnit, error) {
	defer r.lock()()

	units := r.filtered(filter)
	if offset >= len(units) {
		return []*entity.RentalUnit{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(units) {
		end = len(units)
	}
	return units[offset:end], nil
}

func (r *unitRepo) Count(_ context.Context, filter repository.UnitFilter) (int64, error) {
	defer r.lock()()
	return int64(len(r.filtered(filter))), nil
}

func (r *unitRepo) Update(_ context.Context, unit *entity.RentalUnit) error {
	defer r.lock()()

	u := r.get(unit.ID)
	if u == nil {
		return fmt.Errorf("unit %s not found", unit.ID)
	}
	u.Label = unit.Label
	u.Type = unit.Type
	u.BasePrice = unit.BasePrice
	u.UpdatedAt = unit.UpdatedAt
	return nil
}

func (r *unitRepo) SetAvailability(_ context.Context, id uuid.UUID, available bool) error {
	defer r.lock()()

	u := r.get(id)
	if u == nil {
		return fmt.Errorf("unit %s not found", id)
	}
	u.IsAvailable = available
	u.UpdatedAt = time.Now()
	return nil
}

func (r *unitRepo) Claim(_ context.Context, id, vendorID, contractID uuid.UUID) (bool, error) {
	defer r.lock()()

	u := r.get(id)
	if u == nil || !u.IsAvailable || u.IsAssigned() {
		return false, nil
	}
	u.IsAvailable = false
	u.ContractID = &contractID
	u.VendorID = &vendorID
	u.UpdatedAt = time.Now()
	return true, nil
}

func (r *unitRepo) Release(_ context.Context, id uuid.UUID) error {
	defer r.lock()()

	u := r.get(id)
	if u == nil || !u.IsAssigned() {
		return nil
	}
	u.IsAvailable = true
	u.ContractID = nil
	u.VendorID = nil
	u.UpdatedAt = time.Now()
	return nil
}

func sortUnits(units []*entity.RentalUnit) {
	sort.Slice(units, func(i, j int) bool { return units[i].Label < units[j].Label })
}
