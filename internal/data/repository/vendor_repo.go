package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type VendorRepository interface {
	Create(ctx context.Context, vendor *entity.Vendor) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Vendor, error)
	FindByEmail(ctx context.Context, email string) (*entity.Vendor, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Vendor, error)
	Count(ctx context.Context) (int64, error)
	FindByStatus(ctx context.Context, status entity.RegistrationStatus) ([]*entity.Vendor, error)
	// FindTrialsEndingBefore returns trial_active vendors whose trial ends at or before t.
	FindTrialsEndingBefore(ctx context.Context, t time.Time) ([]*entity.Vendor, error)

	// Update writes the vendor if its stored version still equals vendor.Version
	// and bumps the version. It returns ErrVersionConflict otherwise.
	Update(ctx context.Context, vendor *entity.Vendor) error
}

type vendorRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewVendorRepository(db database.Querier, log *zap.Logger) VendorRepository {
	return &vendorRepository{
		db:  db,
		log: log.With(zap.String("repository", "vendor")),
	}
}

const vendorColumns = `id, name, email, company, registration_status, trial_start_date, trial_end_date,
	is_public, cancellation_reason, trial_warning_sent_at, pending_booking, version, created_at, updated_at, deleted_at`

func scanVendor(row pgx.Row) (*entity.Vendor, error) {
	var v entity.Vendor
	var pending []byte
	err := row.Scan(
		&v.ID,
		&v.Name,
		&v.Email,
		&v.Company,
		&v.Status,
		&v.TrialStartDate,
		&v.TrialEndDate,
		&v.IsPublic,
		&v.CancellationReason,
		&v.TrialWarningSentAt,
		&pending,
		&v.Version,
		&v.CreatedAt,
		&v.UpdatedAt,
		&v.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := v.Pending.UnmarshalJSON(pending); err != nil {
		return nil, err
	}
	return &v, nil
}

func pendingJSON(slot entity.PendingSlot) ([]byte, error) {
	if slot.IsEmpty() {
		return nil, nil
	}
	return json.Marshal(slot)
}

func (r *vendorRepository) Create(ctx context.Context, vendor *entity.Vendor) error {
	pending, err := pendingJSON(vendor.Pending)
	if err != nil {
		return fmt.Errorf("encode pending booking: %w", err)
	}

	query := `
		INSERT INTO vendors (id, name, email, company, registration_status, trial_start_date, trial_end_date,
			is_public, cancellation_reason, trial_warning_sent_at, pending_booking, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.db.Exec(ctx, query,
		vendor.ID,
		vendor.Name,
		vendor.Email,
		vendor.Company,
		vendor.Status,
		vendor.TrialStartDate,
		vendor.TrialEndDate,
		vendor.IsPublic,
		vendor.CancellationReason,
		vendor.TrialWarningSentAt,
		pending,
		vendor.Version,
		vendor.CreatedAt,
		vendor.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create vendor",
			zap.Error(err),
			zap.String("email", vendor.Email),
		)
		return fmt.Errorf("create vendor %s: %w", vendor.Email, err)
	}

	return nil
}

func (r *vendorRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE id = $1 AND deleted_at IS NULL`

	vendor, err := scanVendor(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find vendor by ID",
			zap.Error(err),
			zap.String("vendor_id", id.String()),
		)
		return nil, fmt.Errorf("find vendor %s: %w", id, err)
	}

	return vendor, nil
}

func (r *vendorRepository) FindByEmail(ctx context.Context, email string) (*entity.Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE LOWER(email) = LOWER($1) AND deleted_at IS NULL`

	vendor, err := scanVendor(r.db.QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find vendor by email", zap.Error(err))
		return nil, fmt.Errorf("find vendor by email: %w", err)
	}

	return vendor, nil
}

func (r *vendorRepository) List(ctx context.Context, limit, offset int) ([]*entity.Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE deleted_at IS NULL ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	return r.queryVendors(ctx, "list vendors", query, limit, offset)
}

func (r *vendorRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM vendors WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		r.log.Error("Failed to count vendors", zap.Error(err))
		return 0, fmt.Errorf("count vendors: %w", err)
	}
	return total, nil
}

func (r *vendorRepository) FindByStatus(ctx context.Context, status entity.RegistrationStatus) ([]*entity.Vendor, error) {
	query := `SELECT ` + vendorColumns + ` FROM vendors WHERE registration_status = $1 AND deleted_at IS NULL ORDER BY created_at`
	return r.queryVendors(ctx, "find vendors by status", query, status)
}

func (r *vendorRepository) FindTrialsEndingBefore(ctx context.Context, t time.Time) ([]*entity.Vendor, error) {
	query := `
		SELECT ` + vendorColumns + `
		FROM vendors
		WHERE registration_status = 'trial_active' AND trial_end_date <= $1 AND deleted_at IS NULL
		ORDER BY trial_end_date
	`
	return r.queryVendors(ctx, "find trials ending", query, t)
}

func (r *vendorRepository) Update(ctx context.Context, vendor *entity.Vendor) error {
	pending, err := pendingJSON(vendor.Pending)
	if err != nil {
		return fmt.Errorf("encode pending booking: %w", err)
	}

	query := `
		UPDATE vendors
		SET name = $3, email = $4, company = $5, registration_status = $6, trial_start_date = $7,
			trial_end_date = $8, is_public = $9, cancellation_reason = $10, trial_warning_sent_at = $11,
			pending_booking = $12, updated_at = $13, version = version + 1
		WHERE id = $1 AND version = $2 AND deleted_at IS NULL
	`

	result, err := r.db.Exec(ctx, query,
		vendor.ID,
		vendor.Version,
		vendor.Name,
		vendor.Email,
		vendor.Company,
		vendor.Status,
		vendor.TrialStartDate,
		vendor.TrialEndDate,
		vendor.IsPublic,
		vendor.CancellationReason,
		vendor.TrialWarningSentAt,
		pending,
		vendor.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update vendor",
			zap.Error(err),
			zap.String("vendor_id", vendor.ID.String()),
		)
		return fmt.Errorf("update vendor %s: %w", vendor.ID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update vendor %s at version %d: %w", vendor.ID, vendor.Version, ErrVersionConflict)
	}

	vendor.Version++
	return nil
}

func (r *vendorRepository) queryVendors(ctx context.Context, op, query string, args ...any) ([]*entity.Vendor, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to "+op, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	vendors := []*entity.Vendor{}
	for rows.Next() {
		vendor, err := scanVendor(rows)
		if err != nil {
			r.log.Error("Failed to scan vendor row", zap.Error(err))
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		vendors = append(vendors, vendor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return vendors, nil
}
