package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/internal/data/repository"

	"github.com/google/uuid"
)

type vendorRepo struct {
	*view
}

func (r *vendorRepo) Create(_ context.Context, vendor *entity.Vendor) error {
	defer r.lock()()

	for _, v := range r.store.vendors {
		if strings.EqualFold(v.Email, vendor.Email) {
			return fmt.Errorf("create vendor %s: email already exists", vendor.Email)
		}
	}
	r.store.vendors[vendor.ID] = cloneVendor(vendor)
	return nil
}

func (r *vendorRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Vendor, error) {
	defer r.lock()()

	if v, ok := r.store.vendors[id]; ok && v.DeletedAt == nil {
		return cloneVendor(v), nil
	}
	return nil, nil
}

func (r *vendorRepo) FindByEmail(_ context.Context, email string) (*entity.Vendor, error) {
	defer r.lock()()

	for _, v := range r.store.vendors {
		if v.DeletedAt == nil && strings.EqualFold(v.Email, email) {
			return cloneVendor(v), nil
		}
	}
	return nil, nil
}

func (r *vendorRepo) List(_ context.Context, limit, offset int) ([]*entity.Vendor, error) {
	defer r.lock()()

	all := r.where(func(*entity.Vendor) bool { return true })
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return []*entity.Vendor{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *vendorRepo) Count(_ context.Context) (int64, error) {
	defer r.lock()()
	return int64(len(r.where(func(*entity.Vendor) bool { return true }))), nil
}

func (r *vendorRepo) FindByStatus(_ context.Context, status entity.RegistrationStatus) ([]*entity.Vendor, error) {
	defer r.lock()()

	out := r.where(func(v *entity.Vendor) bool { return v.Status == status })
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *vendorRepo) FindTrialsEndingBefore(_ context.Context, t time.Time) ([]*entity.Vendor, error) {
	defer r.lock()()

	out := r.where(func(v *entity.Vendor) bool {
		return v.Status == entity.RegistrationStatusTrialActive && v.TrialEndDate != nil && !v.TrialEndDate.After(t)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].TrialEndDate.Before(*out[j].TrialEndDate) })
	return out, nil
}

func (r *vendorRepo) Update(_ context.Context, vendor *entity.Vendor) error {
	defer r.lock()()

	stored, ok := r.store.vendors[vendor.ID]
	if !ok || stored.DeletedAt != nil || stored.Version != vendor.Version {
		return fmt.Errorf("update vendor %s at version %d: %w", vendor.ID, vendor.Version, repository.ErrVersionConflict)
	}

	next := cloneVendor(vendor)
	next.Version = vendor.Version + 1
	next.CreatedAt = stored.CreatedAt
	r.store.vendors[vendor.ID] = next
	vendor.Version = next.Version
	return nil
}

func (r *vendorRepo) where(match func(*entity.Vendor) bool) []*entity.Vendor {
	out := []*entity.Vendor{}
	for _, v := range r.store.vendors {
		if v.DeletedAt == nil && match(v) {
			out = append(out, cloneVendor(v))
		}
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
