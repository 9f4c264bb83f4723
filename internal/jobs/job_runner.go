package jobs

import (
	"context"
	"fmt"
	"time"

	"business-visa-backend/internal/config"
	"business-visa-backend/internal/logger"
	"business-visa-backend/internal/metrics"
	"business-visa-backend/internal/repository"
	"business-visa-backend/internal/service"
)

const (
	JobAutoApprove  = "auto_approve"
	JobVerifyClaim  = "verify_claim"
	JobVerifyExpire = "verify_expire"
	JobMintPending  = "mint_pending"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	locker   repository.JobLocker
	config   *config.Config
	timeout  time.Duration
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Applicant service.ApplicantService
	Visa      service.VisaService
}

// NewJobRunner creates a new job runner. locker may be nil when the
// distributed lock is disabled.
func NewJobRunner(services *Services, locker repository.JobLocker, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		locker:   locker,
		config:   cfg,
		timeout:  30 * time.Minute,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery, the optional
// cross-instance lock and run metrics.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) error) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
			outcome = "panic"
		}
		metrics.RecordJobRun(jobName, outcome, time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	if jr.locker != nil && jr.config.Scheduler.DistributedLock {
		release, acquired, err := jr.locker.TryLock(ctx, jobName)
		if err != nil {
			logger.Error("Failed to take job lock", "job", jobName, "error", err)
			outcome = "error"
			return
		}
		if !acquired {
			logger.Info("Job already running on another instance", "job", jobName)
			outcome = "skipped"
			return
		}
		defer release()
	}

	logger.Info("Starting job", "job", jobName)
	if err := jobFunc(ctx); err != nil {
		logger.Error("Job failed", "job", jobName, "error", err)
		outcome = "error"
		return
	}
	logger.Info("Job completed", "job", jobName, "duration", time.Since(start))
}

// RunAllJobs runs every reconciliation job once (for manual execution)
func (jr *JobRunner) RunAllJobs() {
	if jr.config.Features.AutoApprove {
		jr.AutoApprove()
	}
	jr.ReconcileMints()
	jr.VerifyClaims()
	jr.VerifyExpirations()
}

// Run executes a single job by name.
func (jr *JobRunner) Run(name string) error {
	switch name {
	case JobAutoApprove:
		jr.AutoApprove()
	case JobVerifyClaim:
		jr.VerifyClaims()
	case JobVerifyExpire:
		jr.VerifyExpirations()
	case JobMintPending:
		jr.ReconcileMints()
	default:
		return fmt.Errorf("unknown job %q", name)
	}
	return nil
}
