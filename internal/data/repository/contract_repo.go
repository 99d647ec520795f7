package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ContractRepository interface {
	Create(ctx context.Context, contract *entity.Contract) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Contract, error)
	FindByVendorID(ctx context.Context, vendorID uuid.UUID) ([]*entity.Contract, error)

	// FindBlockingByUnits returns scheduled or active contracts with a line on any of the units.
	FindBlockingByUnits(ctx context.Context, unitIDs []uuid.UUID) ([]*entity.Contract, error)
	// FindDueForActivation returns scheduled contracts whose start is at or before now.
	FindDueForActivation(ctx context.Context, now time.Time) ([]*entity.Contract, error)
	// FindDueForEnding returns blocking contracts whose window closed at or before now.
	FindDueForEnding(ctx context.Context, now time.Time) ([]*entity.Contract, error)

	// UpdateStatus moves a contract from one status to another and reports
	// false if it was no longer in the expected status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.ContractStatus) (bool, error)
}

type contractRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewContractRepository(db database.Querier, log *zap.Logger) ContractRepository {
	return &contractRepository{
		db:  db,
		log: log.With(zap.String("repository", "contract")),
	}
}

const contractColumns = `c.id, c.vendor_id, c.status, c.start_date, c.duration_months, c.discount_rate,
	c.commission_rate, c.total_monthly_price, c.add_ons, c.is_trial_booking, c.trial_vendor_id,
	c.payment_start_date, c.window_from, c.window_to, c.created_at, c.updated_at`

func (r *contractRepository) Create(ctx context.Context, contract *entity.Contract) error {
	query := `
		INSERT INTO contracts (id, vendor_id, status, start_date, duration_months, discount_rate,
			commission_rate, total_monthly_price, add_ons, is_trial_booking, trial_vendor_id,
			payment_start_date, window_from, window_to, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	addOns := make([]string, len(contract.AddOns))
	for i, a := range contract.AddOns {
		addOns[i] = string(a)
	}

	_, err := r.db.Exec(ctx, query,
		contract.ID,
		contract.VendorID,
		contract.Status,
		contract.StartDate,
		contract.DurationMonths,
		contract.DiscountRate,
		contract.CommissionRate,
		contract.TotalMonthlyPrice,
		addOns,
		contract.IsTrialBooking,
		contract.TrialVendorID,
		contract.PaymentStartDate,
		contract.WindowFrom,
		contract.WindowTo,
		contract.CreatedAt,
		contract.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create contract",
			zap.Error(err),
			zap.String("contract_id", contract.ID.String()),
			zap.String("vendor_id", contract.VendorID.String()),
		)
		return fmt.Errorf("create contract %s: %w", contract.ID, err)
	}

	if len(contract.Lines) == 0 {
		return nil
	}

	// Batch insert lines
	lineQuery := `INSERT INTO contract_lines (id, contract_id, position, unit_id, monthly_price, start_date, end_date) VALUES `
	args := []any{}
	for i, line := range contract.Lines {
		if i > 0 {
			lineQuery += ", "
		}
		lineQuery += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			i*7+1, i*7+2, i*7+3, i*7+4, i*7+5, i*7+6, i*7+7)
		args = append(args,
			uuid.New(),
			contract.ID,
			i,
			line.UnitID,
			line.MonthlyPrice,
			line.StartDate,
			line.EndDate,
		)
	}

	if _, err := r.db.Exec(ctx, lineQuery, args...); err != nil {
		r.log.Error("Failed to create contract lines",
			zap.Error(err),
			zap.String("contract_id", contract.ID.String()),
			zap.Int("line_count", len(contract.Lines)),
		)
		return fmt.Errorf("create lines of contract %s: %w", contract.ID, err)
	}

	return nil
}

func (r *contractRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts c WHERE c.id = $1`

	contract, err := scanContract(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find contract by ID",
			zap.Error(err),
			zap.String("contract_id", id.String()),
		)
		return nil, fmt.Errorf("find contract %s: %w", id, err)
	}

	if err := r.loadLines(ctx, []*entity.Contract{contract}); err != nil {
		return nil, err
	}
	return contract, nil
}

func (r *contractRepository) FindByVendorID(ctx context.Context, vendorID uuid.UUID) ([]*entity.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts c WHERE c.vendor_id = $1 ORDER BY c.created_at DESC`
	return r.queryContracts(ctx, "find contracts by vendor", query, vendorID)
}

func (r *contractRepository) FindBlockingByUnits(ctx context.Context, unitIDs []uuid.UUID) ([]*entity.Contract, error) {
	if len(unitIDs) == 0 {
		return []*entity.Contract{}, nil
	}

	query := `
		SELECT ` + contractColumns + `
		FROM contracts c
		WHERE c.status IN ('scheduled', 'active')
		  AND EXISTS (SELECT 1 FROM contract_lines l WHERE l.contract_id = c.id AND l.unit_id = ANY($1))
		ORDER BY c.window_from
	`
	return r.queryContracts(ctx, "find blocking contracts", query, unitIDs)
}

func (r *contractRepository) FindDueForActivation(ctx context.Context, now time.Time) ([]*entity.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts c WHERE c.status = 'scheduled' AND c.start_date <= $1 ORDER BY c.start_date`
	return r.queryContracts(ctx, "find contracts due for activation", query, now)
}

func (r *contractRepository) FindDueForEnding(ctx context.Context, now time.Time) ([]*entity.Contract, error) {
	query := `SELECT ` + contractColumns + ` FROM contracts c WHERE c.status IN ('scheduled', 'active') AND c.window_to <= $1 ORDER BY c.window_to`
	return r.queryContracts(ctx, "find contracts due for ending", query, now)
}

func (r *contractRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.ContractStatus) (bool, error) {
	query := `UPDATE contracts SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`

	result, err := r.db.Exec(ctx, query, id, from, to)
	if err != nil {
		r.log.Error("Failed to update contract status",
			zap.Error(err),
			zap.String("contract_id", id.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("update status of contract %s: %w", id, err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *contractRepository) queryContracts(ctx context.Context, op, query string, args ...any) ([]*entity.Contract, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to "+op, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	contracts := []*entity.Contract{}
	for rows.Next() {
		contract, err := scanContract(rows)
		if err != nil {
			rows.Close()
			r.log.Error("Failed to scan contract row", zap.Error(err))
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		contracts = append(contracts, contract)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := r.loadLines(ctx, contracts); err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *contractRepository) loadLines(ctx context.Context, contracts []*entity.Contract) error {
	if len(contracts) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*entity.Contract, len(contracts))
	ids := make([]uuid.UUID, len(contracts))
	for i, c := range contracts {
		byID[c.ID] = c
		ids[i] = c.ID
	}

	query := `
		SELECT contract_id, unit_id, monthly_price, start_date, end_date
		FROM contract_lines
		WHERE contract_id = ANY($1)
		ORDER BY contract_id, position
	`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		r.log.Error("Failed to load contract lines", zap.Error(err), zap.Int("contract_count", len(ids)))
		return fmt.Errorf("load contract lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var contractID uuid.UUID
		var line entity.ContractLine
		if err := rows.Scan(&contractID, &line.UnitID, &line.MonthlyPrice, &line.StartDate, &line.EndDate); err != nil {
			r.log.Error("Failed to scan contract line", zap.Error(err))
			return fmt.Errorf("scan contract line: %w", err)
		}
		if c, ok := byID[contractID]; ok {
			c.Lines = append(c.Lines, line)
		}
	}

	return rows.Err()
}

func scanContract(row pgx.Row) (*entity.Contract, error) {
	var c entity.Contract
	var addOns []string
	err := row.Scan(
		&c.ID,
		&c.VendorID,
		&c.Status,
		&c.StartDate,
		&c.DurationMonths,
		&c.DiscountRate,
		&c.CommissionRate,
		&c.TotalMonthlyPrice,
		&addOns,
		&c.IsTrialBooking,
		&c.TrialVendorID,
		&c.PaymentStartDate,
		&c.WindowFrom,
		&c.WindowTo,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.AddOns = make([]entity.AddOn, len(addOns))
	for i, a := range addOns {
		c.AddOns[i] = entity.AddOn(a)
	}
	return &c, nil
}
