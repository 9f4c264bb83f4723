package jobs

import (
	"context"

	"business-visa-backend/internal/logger"
	"business-visa-backend/internal/metrics"
	"business-visa-backend/internal/service"
)

// AutoApprove accepts every pending application.
func (jr *JobRunner) AutoApprove() {
	jr.runWithRecovery(JobAutoApprove, func(ctx context.Context) error {
		approved, err := jr.services.Applicant.AutoApprove(ctx)
		if err != nil {
			return err
		}
		logger.Info("Auto-approved applicants", "count", approved)
		return nil
	})
}

// VerifyClaims promotes applicants whose NFT has been claimed.
func (jr *JobRunner) VerifyClaims() {
	jr.runWithRecovery(JobVerifyClaim, func(ctx context.Context) error {
		res, err := jr.services.Visa.VerifyClaims(ctx)
		if err != nil {
			return err
		}
		logBatch(JobVerifyClaim, res)
		return nil
	})
}

// VerifyExpirations expires visas past their expiry date.
func (jr *JobRunner) VerifyExpirations() {
	jr.runWithRecovery(JobVerifyExpire, func(ctx context.Context) error {
		res, err := jr.services.Visa.VerifyExpirations(ctx)
		if err != nil {
			return err
		}
		logBatch(JobVerifyExpire, res)
		return nil
	})
}

// ReconcileMints resumes mints that never finished.
func (jr *JobRunner) ReconcileMints() {
	jr.runWithRecovery(JobMintPending, func(ctx context.Context) error {
		res, err := jr.services.Visa.ReconcileMints(ctx)
		if res != nil {
			logBatch(JobMintPending, res)
		}
		return err
	})
}

func logBatch(job string, res *service.BatchResult) {
	for range res.Failed {
		metrics.RecordJobItemFailure(job)
	}
	logger.Info("Batch finished",
		"job", job,
		"processed", res.Processed,
		"succeeded", res.Succeeded,
		"failed", len(res.Failed))
	if len(res.Failed) > 0 {
		logger.Warn("Batch items failed", "job", job, "items", res.Failed)
	}
}
