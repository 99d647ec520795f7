package memory

import (
	"context"

	"rental-marketplace/internal/data/entity"

	"github.com/google/uuid"
)

type auditRepo struct {
	*view
}

func (r *auditRepo) Append(_ context.Context, entry *entity.AuditEntry) error {
	defer r.lock()()

	r.store.audit = append(r.store.audit, cloneAudit(entry))
	return nil
}

func (r *auditRepo) FindByVendorID(_ context.Context, vendorID uuid.UUID) ([]*entity.AuditEntry, error) {
	defer r.lock()()

	entries := []*entity.AuditEntry{}
	for _, e := range r.store.audit {
		if e.VendorID == vendorID {
			entries = append(entries, cloneAudit(e))
		}
	}
	return entries, nil
}
