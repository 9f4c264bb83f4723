package service

import (
	"context"
	"errors"
	"testing"

	"business-visa-backend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestApplicantService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a pending application", func(t *testing.T) {
		m := newVisaMocks()
		svc := m.applicantService()

		m.applicants.On("FindByEmailOrWallet", ctx, "a@example.com", testWallet).Return(nil, nil)
		m.applicants.On("Create", ctx, mock.MatchedBy(func(a *domain.Applicant) bool {
			return a.Status == domain.ApplicantStatusPending
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Applicant).ID = 11
		}).Return(nil)

		a := &domain.Applicant{Email: " a@example.com ", WalletAddress: testWallet, Name: "Alice"}
		require.NoError(t, svc.Submit(ctx, a))
		assert.Equal(t, int64(11), a.ID)
		assert.Equal(t, "a@example.com", a.Email)
	})

	t.Run("rejects malformed wallet", func(t *testing.T) {
		m := newVisaMocks()
		svc := m.applicantService()

		err := svc.Submit(ctx, &domain.Applicant{Email: "a@example.com", WalletAddress: "not-a-wallet"})
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		m.applicants.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	statusMessages := map[domain.ApplicantStatus]string{
		domain.ApplicantStatusPending:  "Your application is already pending!",
		domain.ApplicantStatusAccepted: "Your application have already been accepted!",
		domain.ApplicantStatusRejected: "Your application have already been rejected!",
	}
	for status, want := range statusMessages {
		t.Run("duplicate "+string(status), func(t *testing.T) {
			m := newVisaMocks()
			svc := m.applicantService()
			m.applicants.On("FindByEmailOrWallet", ctx, "a@example.com", testWallet).
				Return(&domain.Applicant{ID: 1, Status: status}, nil)

			err := svc.Submit(ctx, &domain.Applicant{Email: "a@example.com", WalletAddress: testWallet})
			assert.True(t, errors.Is(err, domain.ErrConflict))
			msg, _ := domain.Message(err)
			assert.Equal(t, want, msg)
		})
	}
}

func TestApplicantService_Decide(t *testing.T) {
	ctx := context.Background()
	pending := func() *domain.Applicant {
		return &domain.Applicant{ID: 3, Email: "a@example.com", WalletAddress: testWallet, Name: "Alice", Status: domain.ApplicantStatusPending}
	}

	t.Run("accept copies the applicant and queues the mint", func(t *testing.T) {
		m := newVisaMocks()
		svc := m.applicantService()

		m.applicants.On("GetByID", ctx, int64(3)).Return(pending(), nil)
		m.applicants.On("UpdateStatus", ctx, int64(3), domain.ApplicantStatusAccepted).Return(true, nil)
		m.accepted.On("Create", ctx, mock.MatchedBy(func(a *domain.AcceptedApplicant) bool {
			return a.Email == "a@example.com" && a.WalletAddress == testWallet && a.NFTID == nil && !a.HasClaimed
		})).Return(nil)
		m.queue.On("Enqueue", ctx, "a@example.com").Return(nil)

		decision, err := svc.Decide(ctx, 3, domain.ApplicantStatusAccepted)
		require.NoError(t, err)
		assert.Equal(t, &Decision{ApplicantID: 3, Status: domain.ApplicantStatusAccepted, MintQueued: true}, decision)
		assert.Equal(t, 1, m.tx.calls)
		m.accepted.AssertExpectations(t)
		m.queue.AssertExpectations(t)
	})

	t.Run("queue failure is reported but does not fail the accept", func(t *testing.T) {
		m := newVisaMocks()
		svc := m.applicantService()

		m.applicants.On("GetByID", ctx, int64(3)).Return(pending(), nil)
		m.applicants.On("UpdateStatus", ctx, int64(3), domain.ApplicantStatusAccepted).Return(true, nil)
		m.accepted.On("Create", ctx, mock.Anything).Return(nil)
		m.queue.On("Enqueue", ctx, "a@example.com").Return(errors.New("queue full"))

		decision, err := svc.Decide(ctx, 3, domain.ApplicantStatusAccepted)
		require.NoError(t, err)
		assert.False(t, decision.MintQueued)
		assert.Equal(t, domain.ApplicantStatusAccepted, decision.Status)
	})

	t.Run("insert failure skips the queue", func(t *testing.T) {
		m := newVisaMocks()
		svc := m.applicantService()

		m.applicants.On("GetByID", ctx, int64(3)).Return(pending(), nil)
		m.applicants.On("UpdateStatus", ctx, int64(3), domain.ApplicantStatusAccepted).Return(true, nil)
		m.accepted.On("Create", ctx, mock.Anything).Return(domain.ErrConflict)

		_, err := svc.Decide(ctx, 3, domain.ApplicantStatusAccepted)
		require.Error(t, err)
		m.queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	})

	t.Run("already accepted", func(t *testing.T) {
		m := newVisaMocks()
		svc := m.applicantService()

		a := pending()
		a.Status = domain.ApplicantStatusAccepted
		m.applicants.On("GetByID", ctx, int64(3)).Return(a, nil)

		_, err := svc.Decide(ctx, 3, domain.ApplicantStatusAccepted)
		assert.True(t, errors.Is(err, domain.ErrConflict))
		msg, _ := domain.Message(err)
		assert.Equal(t, "Applicant already accepted!", msg)
		assert.Equal(t, 0, m.tx.calls)
	})

	t.Run("lost race on status", func(t *testing.T) {
		m := newVisaMocks()
		svc := m.applicantService()

		m.applicants.On("GetByID", ctx, int64(3)).Return(pending(), nil)
		m.applicants.On("UpdateStatus", ctx, int64(3), domain.ApplicantStatusAccepted).Return(false, nil)

		_, err := svc.Decide(ctx, 3, domain.ApplicantStatusAccepted)
		assert.True(t, errors.Is(err, domain.ErrConflict))
		m.accepted.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("reject", func(t *testing.T) {
		m := newVisaMocks()
		svc := m.applicantService()

		m.applicants.On("GetByID", ctx, int64(3)).Return(pending(), nil)
		m.applicants.On("UpdateStatus", ctx, int64(3), domain.ApplicantStatusRejected).Return(true, nil)

		decision, err := svc.Decide(ctx, 3, domain.ApplicantStatusRejected)
		require.NoError(t, err)
		assert.False(t, decision.MintQueued)
		assert.Equal(t, 0, m.tx.calls)
		m.accepted.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("invalid status", func(t *testing.T) {
		m := newVisaMocks()
		svc := m.applicantService()

		_, err := svc.Decide(ctx, 3, domain.ApplicantStatusPending)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("unknown applicant", func(t *testing.T) {
		m := newVisaMocks()
		svc := m.applicantService()
		m.applicants.On("GetByID", ctx, int64(99)).Return(nil, domain.ErrNotFound)

		_, err := svc.Decide(ctx, 99, domain.ApplicantStatusRejected)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestApplicantService_AutoApprove(t *testing.T) {
	ctx := context.Background()
	m := newVisaMocks()
	svc := m.applicantService()

	m.applicants.On("ListByStatus", ctx, domain.ApplicantStatusPending).Return([]domain.Applicant{
		{ID: 1, Email: "one@example.com", Status: domain.ApplicantStatusPending},
		{ID: 2, Email: "two@example.com", Status: domain.ApplicantStatusPending},
	}, nil)
	m.applicants.On("UpdateStatus", ctx, int64(1), domain.ApplicantStatusAccepted).Return(true, nil)
	m.applicants.On("UpdateStatus", ctx, int64(2), domain.ApplicantStatusAccepted).Return(false, nil)
	m.accepted.On("Create", ctx, mock.Anything).Return(nil)
	m.queue.On("Enqueue", ctx, "one@example.com").Return(nil)

	n, err := svc.AutoApprove(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	m.queue.AssertNotCalled(t, "Enqueue", ctx, "two@example.com")
}
