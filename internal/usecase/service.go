package usecase

import (
	"rental-marketplace/internal/data/repository"
	"rental-marketplace/internal/notify"
	"rental-marketplace/internal/pricing"
	"rental-marketplace/pkg/utils"

	"go.uber.org/zap"
)

// Dependencies are the collaborators built outside the service layer. Nil
// fields fall back to in-process defaults.
type Dependencies struct {
	Calculator pricing.Calculator
	Notifier   notify.Notifier
	Cache      DisplayCache
	Clock      Clock
}

type Service struct {
	Unit         UnitRegistry
	Availability AvailabilityIndex
	Display      AvailabilityDisplay
	Pricing      PricingService
	Trial        TrialManager
	Booking      BookingOrchestrator
	Vendor       VendorService
	Contract     ContractService
}

func NewService(repo *repository.Repository, config *utils.Config, deps Dependencies, log *zap.Logger) *Service {
	if deps.Calculator == nil {
		deps.Calculator = pricing.NewCalculator(pricing.DefaultTable())
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Discard{}
	}
	if deps.Clock == nil {
		deps.Clock = utcNow
	}

	availability := NewAvailabilityIndex(repo, log)
	display := NewAvailabilityDisplay(availability, deps.Cache, config.Redis.CacheTTL, log)
	units := NewUnitRegistry(repo, display, deps.Clock, log)
	trials := NewTrialManager(repo, units, display, deps.Notifier, config, deps.Clock, log)

	return &Service{
		Unit:         units,
		Availability: availability,
		Display:      display,
		Pricing:      NewPricingService(deps.Calculator, log),
		Trial:        trials,
		Booking:      NewBookingOrchestrator(repo, units, availability, display, deps.Calculator, trials, deps.Notifier, config.Marketplace, deps.Clock, log),
		Vendor:       NewVendorService(repo, deps.Calculator, deps.Notifier, config, deps.Clock, log),
		Contract:     NewContractService(repo, units, display, deps.Clock, log),
	}
}
