package repository

import (
	"context"
	"fmt"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditRepository is append-only: entries are never updated or removed.
type AuditRepository interface {
	Append(ctx context.Context, entry *entity.AuditEntry) error
	FindByVendorID(ctx context.Context, vendorID uuid.UUID) ([]*entity.AuditEntry, error)
}

type auditRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewAuditRepository(db database.Querier, log *zap.Logger) AuditRepository {
	return &auditRepository{
		db:  db,
		log: log.With(zap.String("repository", "audit")),
	}
}

func (r *auditRepository) Append(ctx context.Context, entry *entity.AuditEntry) error {
	query := `
		INSERT INTO audit_log (id, vendor_id, actor, action, reason, days, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		entry.ID,
		entry.VendorID,
		entry.Actor,
		entry.Action,
		entry.Reason,
		entry.Days,
		entry.Details,
		entry.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to append audit entry",
			zap.Error(err),
			zap.String("vendor_id", entry.VendorID.String()),
			zap.String("action", string(entry.Action)),
		)
		return fmt.Errorf("append audit %s for vendor %s: %w", entry.Action, entry.VendorID, err)
	}

	return nil
}

func (r *auditRepository) FindByVendorID(ctx context.Context, vendorID uuid.UUID) ([]*entity.AuditEntry, error) {
	query := `
		SELECT id, vendor_id, actor, action, reason, days, details, created_at
		FROM audit_log
		WHERE vendor_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.Query(ctx, query, vendorID)
	if err != nil {
		r.log.Error("Failed to find audit entries",
			zap.Error(err),
			zap.String("vendor_id", vendorID.String()),
		)
		return nil, fmt.Errorf("find audit entries of vendor %s: %w", vendorID, err)
	}
	defer rows.Close()

	entries := []*entity.AuditEntry{}
	for rows.Next() {
		var e entity.AuditEntry
		if err := rows.Scan(&e.ID, &e.VendorID, &e.Actor, &e.Action, &e.Reason, &e.Days, &e.Details, &e.CreatedAt); err != nil {
			r.log.Error("Failed to scan audit row", zap.Error(err))
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
