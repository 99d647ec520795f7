package usecase

import (
	"context"
	"errors"
	"fmt"

	"rental-marketplace/internal/data/entity"
	"rental-marketplace/internal/data/repository"
	"rental-marketplace/internal/dto/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContractService reads contracts and advances them along
// scheduled -> active -> ended as their windows open and close.
type ContractService interface {
	GetContract(ctx context.Context, id uuid.UUID) (*response.ContractResponse, error)
	ListVendorContracts(ctx context.Context, vendorID uuid.UUID) ([]response.ContractResponse, error)

	ActivateDueContracts(ctx context.Context) (int, error)
	// EndExpiredContracts ends contracts whose window has closed and frees their units.
	EndExpiredContracts(ctx context.Context) (int, error)
}

type contractService struct {
	repo    *repository.Repository
	units   UnitRegistry
	display AvailabilityDisplay
	clock   Clock
	log     *zap.Logger
}

func NewContractService(repo *repository.Repository, units UnitRegistry, display AvailabilityDisplay, clock Clock, log *zap.Logger) ContractService {
	return &contractService{
		repo:    repo,
		units:   units,
		display: display,
		clock:   clock,
		log:     log.With(zap.String("service", "contract")),
	}
}

func (s *contractService) GetContract(ctx context.Context, id uuid.UUID) (*response.ContractResponse, error) {
	contract, err := s.repo.Contract.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find contract %s: %w", id, err)
	}
	if contract == nil {
		return nil, notFound("contract", id)
	}

	resp := response.ContractToResponse(contract)
	return &resp, nil
}

func (s *contractService) ListVendorContracts(ctx context.Context, vendorID uuid.UUID) ([]response.ContractResponse, error) {
	vendor, err := s.repo.Vendor.FindByID(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("find vendor %s: %w", vendorID, err)
	}
	if vendor == nil {
		return nil, notFound("vendor", vendorID)
	}

	contracts, err := s.repo.Contract.FindByVendorID(ctx, vendorID)
	if err != nil {
		s.log.Error("Failed to list vendor contracts", zap.Error(err), zap.String("vendor_id", vendorID.String()))
		return nil, fmt.Errorf("list vendor contracts: %w", err)
	}
	return response.ContractsToResponse(contracts), nil
}

func (s *contractService) ActivateDueContracts(ctx context.Context) (int, error) {
	due, err := s.repo.Contract.FindDueForActivation(ctx, s.clock())
	if err != nil {
		return 0, fmt.Errorf("find contracts due for activation: %w", err)
	}

	var (
		activated int
		errs      []error
	)
	for _, c := range due {
		ok, err := s.repo.Contract.UpdateStatus(ctx, c.ID, entity.ContractStatusScheduled, entity.ContractStatusActive)
		if err != nil {
			errs = append(errs, fmt.Errorf("activate contract %s: %w", c.ID, err))
			continue
		}
		if ok {
			activated++
			s.log.Info("Contract activated", zap.String("contract_id", c.ID.String()), zap.String("vendor_id", c.VendorID.String()))
		}
	}
	return activated, errors.Join(errs...)
}

func (s *contractService) EndExpiredContracts(ctx context.Context) (int, error) {
	due, err := s.repo.Contract.FindDueForEnding(ctx, s.clock())
	if err != nil {
		return 0, fmt.Errorf("find contracts due for ending: %w", err)
	}

	var (
		ended    int
		released int
		errs     []error
	)
	for _, c := range due {
		var (
			done bool
			n    int
		)
		err := s.repo.Tx.WithinTx(ctx, func(tx *repository.Repository) error {
			ok, err := tx.Contract.UpdateStatus(ctx, c.ID, c.Status, entity.ContractStatusEnded)
			if err != nil {
				return fmt.Errorf("end contract %s: %w", c.ID, err)
			}
			if !ok {
				return nil
			}
			n, err = releaseContractUnits(ctx, tx, s.units.WithRepository(tx), c)
			if err != nil {
				return err
			}
			done = true
			return nil
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if done {
			ended++
			released += n
		}
	}

	if released > 0 {
		s.display.Invalidate(ctx)
	}
	if ended > 0 {
		s.log.Info("Contracts ended", zap.Int("ended", ended), zap.Int("released_units", released))
	}
	return ended, errors.Join(errs...)
}
