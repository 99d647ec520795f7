package repository

import (
	"context"
	"errors"
	"fmt"

	"rental-marketplace/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ErrVersionConflict is returned by optimistic updates when the stored
// version no longer matches the one that was read.
var ErrVersionConflict = errors.New("version conflict")

// Transactor runs fn against repositories bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *Repository) error) error
}

type Repository struct {
	Unit     UnitRepository
	Contract ContractRepository
	Vendor   VendorRepository
	Audit    AuditRepository
	Tx       Transactor
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	repo := newRepository(db, log)
	repo.Tx = &pgxTransactor{db: db, log: log.With(zap.String("repository", "tx"))}
	return repo
}

func newRepository(q database.Querier, log *zap.Logger) *Repository {
	return &Repository{
		Unit:     NewUnitRepository(q, log),
		Contract: NewContractRepository(q, log),
		Vendor:   NewVendorRepository(q, log),
		Audit:    NewAuditRepository(q, log),
	}
}

type pgxTransactor struct {
	db  database.PgxIface
	log *zap.Logger
}

func (t *pgxTransactor) WithinTx(ctx context.Context, fn func(tx *Repository) error) error {
	tx, err := t.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			t.log.Error("Failed to roll back transaction", zap.Error(rbErr))
		}
	}()

	txRepo := newRepository(tx, t.log)
	txRepo.Tx = joinedTx{repo: txRepo}

	if err := fn(txRepo); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// joinedTx lets code that already runs inside a transaction call WithinTx
// again without opening a nested one.
type joinedTx struct {
	repo *Repository
}

func (j joinedTx) WithinTx(_ context.Context, fn func(tx *Repository) error) error {
	return fn(j.repo)
}
