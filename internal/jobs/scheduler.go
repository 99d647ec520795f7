package jobs

import (
	"time"

	"rental-marketplace/pkg/utils"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *JobRunner
	log  *zap.Logger
}

// NewScheduler registers every sweep of cfg. A job whose previous run is
// still going skips its tick.
func NewScheduler(jobRunner *JobRunner, cfg utils.SchedulerConfig, log *zap.Logger) (*Scheduler, error) {
	log = log.With(zap.String("component", "scheduler"))
	cronLog := cronLogger{log.Sugar()}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.SkipIfStillRunning(cronLog)),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
		log:  log,
	}

	if err := s.registerJobs(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs(cfg utils.SchedulerConfig) error {
	jobs := []struct {
		name string
		expr string
		run  func()
	}{
		{"ActivateTrials", cfg.ActivateTrials, s.jobs.ActivateTrials},
		{"ExpireTrials", cfg.ExpireTrials, s.jobs.ExpireTrials},
		{"SendTrialWarnings", cfg.SendTrialWarnings, s.jobs.SendTrialWarnings},
		{"ActivateContracts", cfg.ActivateContracts, s.jobs.ActivateContracts},
		{"EndContracts", cfg.EndContracts, s.jobs.EndContracts},
	}

	for _, job := range jobs {
		if job.expr == "" {
			s.log.Warn("Cron job disabled", zap.String("job", job.name))
			continue
		}
		if _, err := s.cron.AddFunc(job.expr, job.run); err != nil {
			s.log.Error("Failed to register cron job", zap.String("job", job.name), zap.String("expr", job.expr), zap.Error(err))
			return err
		}
	}

	s.log.Info("Cron jobs registered", zap.Int("count", len(s.cron.Entries())))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("Cron scheduler started")
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("Cron scheduler stopped")
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
