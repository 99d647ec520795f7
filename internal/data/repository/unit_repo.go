package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// UnitFilter narrows unit listings. Nil fields do not filter.
type UnitFilter struct {
	Type      *entity.UnitType
	Available *bool
}

type UnitRepository interface {
	Create(ctx context.Context, unit *entity.RentalUnit) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.RentalUnit, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.RentalUnit, error)
	FindByLabel(ctx context.Context, label string) (*entity.RentalUnit, error)
	// List pages through matching units by label. A non-positive limit returns all of them.
	List(ctx context.Context, filter UnitFilter, limit, offset int) ([]*entity.RentalUnit, error)
	Count(ctx context.Context, filter UnitFilter) (int64, error)
	Update(ctx context.Context, unit *entity.RentalUnit) error
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error

	// Claim assigns the unit to a vendor and contract only if it is still
	// free. It reports false when another claim got there first.
	Claim(ctx context.Context, id, vendorID, contractID uuid.UUID) (bool, error)
	// Release clears the assignment. Releasing a free unit is a no-op.
	Release(ctx context.Context, id uuid.UUID) error
}

type unitRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewUnitRepository(db database.Querier, log *zap.Logger) UnitRepository {
	return &unitRepository{
		db:  db,
		log: log.With(zap.String("repository", "unit")),
	}
}

const unitColumns = `id, label, unit_type, base_price, is_available, contract_id, vendor_id, created_at, updated_at, deleted_at`

func scanUnit(row pgx.Row) (*entity.RentalUnit, error) {
	var unit entity.RentalUnit
	err := row.Scan(
		&unit.ID,
		&unit.Label,
		&unit.Type,
		&unit.BasePrice,
		&unit.IsAvailable,
		&unit.ContractID,
		&unit.VendorID,
		&unit.CreatedAt,
		&unit.UpdatedAt,
		&unit.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *unitRepository) Create(ctx context.Context, unit *entity.RentalUnit) error {
	query := `
		INSERT INTO rental_units (id, label, unit_type, base_price, is_available, contract_id, vendor_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		unit.ID,
		unit.Label,
		unit.Type,
		unit.BasePrice,
		unit.IsAvailable,
		unit.ContractID,
		unit.VendorID,
		unit.CreatedAt,
		unit.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create unit",
			zap.Error(err),
			zap.String("label", unit.Label),
		)
		return fmt.Errorf("create unit %s: %w", unit.Label, err)
	}

	return nil
}

func (r *unitRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.RentalUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM rental_units WHERE id = $1 AND deleted_at IS NULL`

	unit, err := scanUnit(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find unit by ID",
			zap.Error(err),
			zap.String("unit_id", id.String()),
		)
		return nil, fmt.Errorf("find unit %s: %w", id, err)
	}

	return unit, nil
}

func (r *unitRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.RentalUnit, error) {
	if len(ids) == 0 {
		return []*entity.RentalUnit{}, nil
	}

	query := `SELECT ` + unitColumns + ` FROM rental_units WHERE id = ANY($1) AND deleted_at IS NULL ORDER BY label`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		r.log.Error("Failed to find units by IDs",
			zap.Error(err),
			zap.Int("unit_count", len(ids)),
		)
		return nil, fmt.Errorf("find units: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *unitRepository) FindByLabel(ctx context.Context, label string) (*entity.RentalUnit, error) {
	query := `SELECT ` + unitColumns + ` FROM rental_units WHERE label = $1 AND deleted_at IS NULL`

	unit, err := scanUnit(r.db.QueryRow(ctx, query, label))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find unit by label",
			zap.Error(err),
			zap.String("label", label),
		)
		return nil, fmt.Errorf("find unit by label %s: %w", label, err)
	}

	return unit, nil
}

func buildUnitFilter(filter UnitFilter) (string, []any) {
	conditions := []string{"deleted_at IS NULL"}
	var args []any

	if filter.Type != nil {
		args = append(args, *filter.Type)
		conditions = append(conditions, fmt.Sprintf("unit_type = $%d", len(args)))
	}
	if filter.Available != nil {
		args = append(args, *filter.Available)
		conditions = append(conditions, fmt.Sprintf("is_available = $%d", len(args)))
	}

	return strings.Join(conditions, " AND "), args
}

func (r *unitRepository) List(ctx context.Context, filter UnitFilter, limit, offset int) ([]*entity.RentalUnit, error) {
	where, args := buildUnitFilter(filter)

	// A NULL limit is LIMIT ALL.
	var lim any = limit
	if limit <= 0 {
		lim = nil
	}
	args = append(args, lim, offset)

	query := fmt.Sprintf(`SELECT %s FROM rental_units WHERE %s ORDER BY label LIMIT $%d OFFSET $%d`,
		unitColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list units", zap.Error(err))
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *unitRepository) Count(ctx context.Context, filter UnitFilter) (int64, error) {
	where, args := buildUnitFilter(filter)
	query := `SELECT COUNT(*) FROM rental_units WHERE ` + where

	var total int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		r.log.Error("Failed to count units", zap.Error(err))
		return 0, fmt.Errorf("count units: %w", err)
	}
	return total, nil
}

func (r *unitRepository) Update(ctx context.Context, unit *entity.RentalUnit) error {
	query := `
		UPDATE rental_units
		SET label = $2, unit_type = $3, base_price = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.Exec(ctx, query,
		unit.ID,
		unit.Label,
		unit.Type,
		unit.BasePrice,
		unit.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update unit",
			zap.Error(err),
			zap.String("unit_id", unit.ID.String()),
		)
		return fmt.Errorf("update unit %s: %w", unit.ID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("unit %s not found", unit.ID)
	}

	return nil
}

func (r *unitRepository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	query := `UPDATE rental_units SET is_available = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.Exec(ctx, query, id, available)
	if err != nil {
		r.log.Error("Failed to set unit availability",
			zap.Error(err),
			zap.String("unit_id", id.String()),
			zap.Bool("is_available", available),
		)
		return fmt.Errorf("set availability of unit %s: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("unit %s not found", id)
	}

	return nil
}

func (r *unitRepository) Claim(ctx context.Context, id, vendorID, contractID uuid.UUID) (bool, error) {
	// The WHERE clause is the compare half of the swap: a concurrent claim
	// that committed first leaves zero rows to update here.
	query := `
		UPDATE rental_units
		SET is_available = FALSE, contract_id = $2, vendor_id = $3, updated_at = NOW()
		WHERE id = $1
		  AND deleted_at IS NULL
		  AND is_available = TRUE
		  AND contract_id IS NULL
		  AND vendor_id IS NULL
	`

	result, err := r.db.Exec(ctx, query, id, contractID, vendorID)
	if err != nil {
		r.log.Error("Failed to claim unit",
			zap.Error(err),
			zap.String("unit_id", id.String()),
			zap.String("contract_id", contractID.String()),
		)
		return false, fmt.Errorf("claim unit %s: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *unitRepository) Release(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE rental_units
		SET is_available = TRUE, contract_id = NULL, vendor_id = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL AND (contract_id IS NOT NULL OR vendor_id IS NOT NULL)
	`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		r.log.Error("Failed to release unit",
			zap.Error(err),
			zap.String("unit_id", id.String()),
		)
		return fmt.Errorf("release unit %s: %w", id, err)
	}

	return nil
}

func (r *unitRepository) collect(rows pgx.Rows) ([]*entity.RentalUnit, error) {
	units := []*entity.RentalUnit{}
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			r.log.Error("Failed to scan unit row", zap.Error(err))
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units: %w", err)
	}
	return units, nil
}
