package service

import (
	"context"
	"fmt"
	"strings"

	"business-visa-backend/internal/domain"
	"business-visa-backend/internal/logger"
	"business-visa-backend/internal/metrics"
	"business-visa-backend/internal/repository"
)

type applicantService struct {
	repos repository.Repositories
	tx    repository.Transactor
	queue MintQueue
}

func NewApplicantService(repos repository.Repositories, tx repository.Transactor, queue MintQueue) ApplicantService {
	return &applicantService{
		repos: repos,
		tx:    tx,
		queue: queue,
	}
}

// Submit stores a new pending application. An existing application with the
// same email or wallet is reported with a status specific message.
func (s *applicantService) Submit(ctx context.Context, a *domain.Applicant) error {
	a.Email = strings.TrimSpace(a.Email)
	a.WalletAddress = strings.TrimSpace(a.WalletAddress)
	if !domain.ValidSolanaAddress(a.WalletAddress) {
		return domain.Errorf(domain.ErrInvalidInput, "invalid wallet address")
	}

	existing, err := s.repos.Applicants.FindByEmailOrWallet(ctx, a.Email, a.WalletAddress)
	if err != nil {
		return fmt.Errorf("failed to check existing application: %w", err)
	}
	if existing != nil {
		switch existing.Status {
		case domain.ApplicantStatusPending:
			return domain.Errorf(domain.ErrConflict, "Your application is already pending!")
		case domain.ApplicantStatusAccepted:
			return domain.Errorf(domain.ErrConflict, "Your application have already been accepted!")
		default:
			return domain.Errorf(domain.ErrConflict, "Your application have already been rejected!")
		}
	}

	a.Status = domain.ApplicantStatusPending
	if err := s.repos.Applicants.Create(ctx, a); err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	metrics.RecordTransition("submitted")
	logger.Info("Application submitted", "applicant_id", a.ID, "email", a.Email)
	return nil
}

func (s *applicantService) List(ctx context.Context) ([]domain.Applicant, error) {
	return s.repos.Applicants.List(ctx)
}

// Decide moves a pending applicant to accepted or rejected. Acceptance copies
// the applicant into accepted_applicants and flips its status in one
// transaction, then queues the mint.
func (s *applicantService) Decide(ctx context.Context, applicantID int64, status domain.ApplicantStatus) (*Decision, error) {
	if status != domain.ApplicantStatusAccepted && status != domain.ApplicantStatusRejected {
		return nil, domain.Errorf(domain.ErrInvalidInput, "status must be accepted or rejected")
	}

	applicant, err := s.repos.Applicants.GetByID(ctx, applicantID)
	if err != nil {
		return nil, fmt.Errorf("no applicant found: %w", err)
	}
	if err := checkPending(applicant); err != nil {
		return nil, err
	}

	decision := &Decision{ApplicantID: applicant.ID, Status: status}
	if status == domain.ApplicantStatusRejected {
		updated, err := s.repos.Applicants.UpdateStatus(ctx, applicant.ID, domain.ApplicantStatusRejected)
		if err != nil {
			return nil, fmt.Errorf("failed to reject applicant: %w", err)
		}
		if !updated {
			return nil, domain.Errorf(domain.ErrConflict, "Applicant already decided!")
		}
		metrics.RecordTransition("rejected")
		return decision, nil
	}

	decision.MintQueued, err = s.accept(ctx, applicant)
	if err != nil {
		return nil, err
	}
	return decision, nil
}

// AutoApprove accepts every pending applicant. One failure does not stop the run.
func (s *applicantService) AutoApprove(ctx context.Context) (int, error) {
	pending, err := s.repos.Applicants.ListByStatus(ctx, domain.ApplicantStatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending applicants: %w", err)
	}

	approved := 0
	for i := range pending {
		if _, err := s.accept(ctx, &pending[i]); err != nil {
			logger.Error("Failed to accept the applicant", "applicant_id", pending[i].ID, "error", err)
			metrics.RecordJobItemFailure("auto_approve")
			continue
		}
		approved++
	}
	return approved, nil
}

// accept reports whether the mint was queued. A failed enqueue is not an error:
// the mint reconciliation job picks the applicant up later.
func (s *applicantService) accept(ctx context.Context, applicant *domain.Applicant) (bool, error) {
	err := s.tx.WithTx(ctx, func(repos repository.Repositories) error {
		updated, err := repos.Applicants.UpdateStatus(ctx, applicant.ID, domain.ApplicantStatusAccepted)
		if err != nil {
			return err
		}
		if !updated {
			return domain.Errorf(domain.ErrConflict, "Applicant already decided!")
		}
		return repos.AcceptedApplicants.Create(ctx, domain.NewAcceptedApplicant(applicant))
	})
	if err != nil {
		return false, fmt.Errorf("failed to accept applicant: %w", err)
	}
	applicant.Status = domain.ApplicantStatusAccepted
	metrics.RecordTransition("accepted")
	logger.Info("Applicant accepted", "applicant_id", applicant.ID, "email", applicant.Email)

	if err := s.queue.Enqueue(ctx, applicant.Email); err != nil {
		logger.Error("Failed to queue mint", "applicant_id", applicant.ID, "error", err)
		return false, nil
	}
	return true, nil
}

func checkPending(a *domain.Applicant) error {
	switch a.Status {
	case domain.ApplicantStatusAccepted:
		return domain.Errorf(domain.ErrConflict, "Applicant already accepted!")
	case domain.ApplicantStatusRejected:
		return domain.Errorf(domain.ErrConflict, "Applicant already rejected!")
	}
	return nil
}
