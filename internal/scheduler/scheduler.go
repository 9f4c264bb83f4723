package scheduler

import (
	"time"

	"business-visa-backend/internal/jobs"
	"business-visa-backend/internal/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	s.registerJobs()
	return s
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config()

	if cfg.Features.AutoApprove {
		s.register(jobs.JobAutoApprove, cfg.Scheduler.AutoApprove, s.jobs.AutoApprove)
	} else {
		logger.Info("Auto-approve disabled, job not registered")
	}
	s.register(jobs.JobVerifyClaim, cfg.Scheduler.VerifyClaim, s.jobs.VerifyClaims)
	s.register(jobs.JobVerifyExpire, cfg.Scheduler.VerifyExpire, s.jobs.VerifyExpirations)
	s.register(jobs.JobMintPending, cfg.Scheduler.MintPending, s.jobs.ReconcileMints)

	logger.Info("Cron jobs registered", "count", s.EntryCount())
}

func (s *Scheduler) register(name, spec string, run func()) {
	if _, err := s.cron.AddFunc(spec, run); err != nil {
		logger.Error("Failed to register job", "job", name, "spec", spec, "error", err)
		return
	}
	logger.Debug("Registered job", "job", name, "spec", spec)
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// EntryCount returns the number of registered jobs.
func (s *Scheduler) EntryCount() int {
	return len(s.cron.Entries())
}
