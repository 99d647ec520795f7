package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TrialSweeps are the periodic trial transitions.
type TrialSweeps interface {
	ActivateDueTrials(ctx context.Context) (int, error)
	ExpireDueTrials(ctx context.Context) (int, error)
	SendExpiryWarnings(ctx context.Context) (int, error)
}

// ContractSweeps are the periodic contract transitions.
type ContractSweeps interface {
	ActivateDueContracts(ctx context.Context) (int, error)
	EndExpiredContracts(ctx context.Context) (int, error)
}

const defaultJobTimeout = 5 * time.Minute

// JobRunner runs each sweep with a timeout and panic recovery. Sweeps are
// idempotent, so a run that fails halfway is finished by the next one.
type JobRunner struct {
	trials    TrialSweeps
	contracts ContractSweeps
	timeout   time.Duration
	log       *zap.Logger
}

func NewJobRunner(trials TrialSweeps, contracts ContractSweeps, log *zap.Logger) *JobRunner {
	return &JobRunner{
		trials:    trials,
		contracts: contracts,
		timeout:   defaultJobTimeout,
		log:       log.With(zap.String("component", "jobs")),
	}
}

func (jr *JobRunner) ActivateTrials() {
	jr.runWithRecovery("ActivateTrials", jr.trials.ActivateDueTrials)
}

func (jr *JobRunner) ExpireTrials() {
	jr.runWithRecovery("ExpireTrials", jr.trials.ExpireDueTrials)
}

func (jr *JobRunner) SendTrialWarnings() {
	jr.runWithRecovery("SendTrialWarnings", jr.trials.SendExpiryWarnings)
}

func (jr *JobRunner) ActivateContracts() {
	jr.runWithRecovery("ActivateContracts", jr.contracts.ActivateDueContracts)
}

func (jr *JobRunner) EndContracts() {
	jr.runWithRecovery("EndContracts", jr.contracts.EndExpiredContracts)
}

// RunAll runs every sweep once, in lifecycle order. Used at startup so a
// restart after the opening time does not wait for the next tick.
func (jr *JobRunner) RunAll() {
	jr.ActivateTrials()
	jr.ActivateContracts()
	jr.EndContracts()
	jr.SendTrialWarnings()
	jr.ExpireTrials()
}

// runWithRecovery wraps job execution with a timeout and panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, job func(ctx context.Context) (int, error)) {
	defer func() {
		if r := recover(); r != nil {
			jr.log.Error("Job panicked", zap.String("job", jobName), zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	started := time.Now()
	changed, err := job(ctx)
	if err != nil {
		jr.log.Error("Job finished with errors",
			zap.String("job", jobName),
			zap.Int("changed", changed),
			zap.Duration("took", time.Since(started)),
			zap.Error(err),
		)
		return
	}

	jr.log.Debug("Job completed",
		zap.String("job", jobName),
		zap.Int("changed", changed),
		zap.Duration("took", time.Since(started)),
	)
}
