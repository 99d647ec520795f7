// Package memory is an in-process implementation of the repositories. It
// backs the memory database driver and the service tests.
package memory

import (
	"context"
	"sync"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/internal/data/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store keeps every table in maps guarded by one mutex. A transaction holds
// the mutex for its whole duration, so transactions are serializable, and a
// failed transaction restores the snapshot taken when it began.
type Store struct {
	mu        sync.Mutex
	units     map[uuid.UUID]*entity.RentalUnit
	contracts map[uuid.UUID]*entity.Contract
	vendors   map[uuid.UUID]*entity.Vendor
	audit     []*entity.AuditEntry
	log       *zap.Logger
}

func NewStore(log *zap.Logger) *Store {
	return &Store{
		units:     make(map[uuid.UUID]*entity.RentalUnit),
		contracts: make(map[uuid.UUID]*entity.Contract),
		vendors:   make(map[uuid.UUID]*entity.Vendor),
		log:       log.With(zap.String("repository", "memory")),
	}
}

// NewRepository returns repositories over a fresh store.
func NewRepository(log *zap.Logger) *repository.Repository {
	return NewStore(log).Repository()
}

// Repository returns repositories that lock the store per call.
func (s *Store) Repository() *repository.Repository {
	return s.view(false)
}

func (s *Store) view(inTx bool) *repository.Repository {
	v := &view{store: s, inTx: inTx}
	repo := &repository.Repository{
		Unit:     &unitRepo{v},
		Contract: &contractRepo{v},
		Vendor:   &vendorRepo{v},
		Audit:    &auditRepo{v},
	}
	if inTx {
		repo.Tx = joined{repo: repo}
	} else {
		repo.Tx = &transactor{store: s}
	}
	return repo
}

// view locks the store for each call unless it runs inside a transaction
// that already holds the lock.
type view struct {
	store *Store
	inTx  bool
}

func (v *view) lock() func() {
	if v.inTx {
		return func() {}
	}
	v.store.mu.Lock()
	return v.store.mu.Unlock
}

type transactor struct {
	store *Store
}

func (t *transactor) WithinTx(ctx context.Context, fn func(tx *repository.Repository) error) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := s.snapshot()
	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
	}()

	if err := fn(s.view(true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type joined struct {
	repo *repository.Repository
}

func (j joined) WithinTx(_ context.Context, fn func(tx *repository.Repository) error) error {
	return fn(j.repo)
}

type snapshot struct {
	units     map[uuid.UUID]*entity.RentalUnit
	contracts map[uuid.UUID]*entity.Contract
	vendors   map[uuid.UUID]*entity.Vendor
	auditLen  int
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		units:     make(map[uuid.UUID]*entity.RentalUnit, len(s.units)),
		contracts: make(map[uuid.UUID]*entity.Contract, len(s.contracts)),
		vendors:   make(map[uuid.UUID]*entity.Vendor, len(s.vendors)),
		auditLen:  len(s.audit),
	}
	for id, u := range s.units {
		snap.units[id] = cloneUnit(u)
	}
	for id, c := range s.contracts {
		snap.contracts[id] = cloneContract(c)
	}
	for id, v := range s.vendors {
		snap.vendors[id] = cloneVendor(v)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.units = snap.units
	s.contracts = snap.contracts
	s.vendors = snap.vendors
	s.audit = s.audit[:snap.auditLen]
	s.log.Debug("Transaction rolled back")
}

func cloneUnit(u *entity.RentalUnit) *entity.RentalUnit {
	c := *u
	if u.ContractID != nil {
		id := *u.ContractID
		c.ContractID = &id
	}
	if u.VendorID != nil {
		id := *u.VendorID
		c.VendorID = &id
	}
	if u.DeletedAt != nil {
		t := *u.DeletedAt
		c.DeletedAt = &t
	}
	return &c
}

func cloneContract(c *entity.Contract) *entity.Contract {
	out := *c
	out.Lines = append([]entity.ContractLine(nil), c.Lines...)
	out.AddOns = append([]entity.AddOn(nil), c.AddOns...)
	if c.TrialVendorID != nil {
		id := *c.TrialVendorID
		out.TrialVendorID = &id
	}
	return &out
}

func cloneVendor(v *entity.Vendor) *entity.Vendor {
	out := *v
	out.TrialStartDate = cloneTime(v.TrialStartDate)
	out.TrialEndDate = cloneTime(v.TrialEndDate)
	out.TrialWarningSentAt = cloneTime(v.TrialWarningSentAt)
	out.DeletedAt = cloneTime(v.DeletedAt)
	out.Pending = v.Pending.Clone()
	return &out
}

func cloneAudit(e *entity.AuditEntry) *entity.AuditEntry {
	out := *e
	if e.Details != nil {
		out.Details = make(map[string]string, len(e.Details))
		for k, val := range e.Details {
			out.Details[k] = val
		}
	}
	return &out
}
