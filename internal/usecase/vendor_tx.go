package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/internal/data/repository"
	"rental-marketplace/internal/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SystemActor signs audit entries written by scheduled sweeps.
const SystemActor = "system"

const maxVersionRetries = 3

// Clock returns the current instant. Services never call time.Now directly.
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

// vendorChange is what a mutation did to a vendor. A nil event sends nothing.
type vendorChange struct {
	changed bool
	audit   []*entity.AuditEntry
	event   *notify.Event
}

type vendorMutation func(ctx context.Context, tx *repository.Repository, v *entity.Vendor, now time.Time) (*vendorChange, error)

// mutateVendor runs fn on a freshly read vendor inside one transaction and
// writes the vendor back with a version check. A lost update is retried from
// a new read; any other error aborts.
func mutateVendor(ctx context.Context, repo *repository.Repository, clock Clock, log *zap.Logger, vendorID uuid.UUID, fn vendorMutation) (*entity.Vendor, *vendorChange, error) {
	var lastErr error
	for attempt := 1; attempt <= maxVersionRetries; attempt++ {
		var (
			vendor *entity.Vendor
			change *vendorChange
		)

		err := repo.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
			v, err := tx.Vendor.FindByID(ctx, vendorID)
			if err != nil {
				return fmt.Errorf("find vendor %s: %w", vendorID, err)
			}
			if v == nil {
				return notFound("vendor", vendorID)
			}

			now := clock()
			c, err := fn(ctx, tx, v, now)
			if err != nil {
				return err
			}

			if c.changed {
				v.UpdatedAt = now
				if err := tx.Vendor.Update(ctx, v); err != nil {
					return err
				}
			}
			for _, entry := range c.audit {
				if err := tx.Audit.Append(ctx, entry); err != nil {
					return fmt.Errorf("append audit entry: %w", err)
				}
			}

			vendor, change = v, c
			return nil
		})
		if err == nil {
			return vendor, change, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, nil, err
		}

		lastErr = err
		log.Warn("Concurrent vendor update, retrying",
			zap.String("vendor_id", vendorID.String()),
			zap.Int("attempt", attempt),
		)
	}
	return nil, nil, fmt.Errorf("update vendor %s after %d attempts: %w", vendorID, maxVersionRetries, lastErr)
}

func newAuditEntry(vendorID uuid.UUID, actor string, action entity.AuditAction, reason string, days int, now time.Time) *entity.AuditEntry {
	if actor == "" {
		actor = SystemActor
	}
	return &entity.AuditEntry{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: now,
		},
		VendorID: vendorID,
		Actor:    actor,
		Action:   action,
		Reason:   reason,
		Days:     days,
	}
}

func recipientOf(v *entity.Vendor) notify.Recipient {
	return notify.Recipient{Name: v.Name, Email: v.Email, Company: v.Company}
}

func vendorEvent(name notify.EventName, v *entity.Vendor, now time.Time, payload map[string]string) *notify.Event {
	e := notify.NewEvent(name, v.ID, recipientOf(v), payload, now)
	return &e
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
