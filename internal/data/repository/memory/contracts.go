package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rental-marketplace/internal/data/entity"

	"github.com/google/uuid"
)

type contractRepo struct {
	*view
}

func (r *contractRepo) Create(_ context.Context, contract *entity.Contract) error {
	defer r.lock()()

	if _, exists := r.store.contracts[contract.ID]; exists {
		return fmt.Errorf("create contract %s: duplicate id", contract.ID)
	}
	r.store.contracts[contract.ID] = cloneContract(contract)
	return nil
}

func (r *contractRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Contract, error) {
	defer r.lock()()

	if c, ok := r.store.contracts[id]; ok {
		return cloneContract(c), nil
	}
	return nil, nil
}

func (r *contractRepo) FindByVendorID(_ context.Context, vendorID uuid.UUID) ([]*entity.Contract, error) {
	defer r.lock()()

	out := r.where(func(c *entity.Contract) bool { return c.VendorID == vendorID })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *contractRepo) FindBlockingByUnits(_ context.Context, unitIDs []uuid.UUID) ([]*entity.Contract, error) {
	defer r.lock()()

	out := r.where(func(c *entity.Contract) bool {
		if !c.Status.Blocks() {
			return false
		}
		for _, id := range unitIDs {
			if c.References(id) {
				return true
			}
		}
		return false
	})
	sort.Slice(out, func(i, j int) bool { return out[i].WindowFrom.Before(out[j].WindowFrom) })
	return out, nil
}

func (r *contractRepo) FindDueForActivation(_ context.Context, now time.Time) ([]*entity.Contract, error) {
	defer r.lock()()

	out := r.where(func(c *entity.Contract) bool {
		return c.Status == entity.ContractStatusScheduled && !c.StartDate.After(now)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (r *contractRepo) FindDueForEnding(_ context.Context, now time.Time) ([]*entity.Contract, error) {
	defer r.lock()()

	out := r.where(func(c *entity.Contract) bool {
		return c.Status.Blocks() && !c.WindowTo.After(now)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].WindowTo.Before(out[j].WindowTo) })
	return out, nil
}

func (r *contractRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to entity.ContractStatus) (bool, error) {
	defer r.lock()()

	c, ok := r.store.contracts[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	c.UpdatedAt = time.Now()
	return true, nil
}

func (r *contractRepo) where(match func(*entity.Contract) bool) []*entity.Contract {
	out := []*entity.Contract{}
	for _, c := range r.store.contracts {
		if match(c) {
			out = append(out, cloneContract(c))
		}
	}
	return out
}
