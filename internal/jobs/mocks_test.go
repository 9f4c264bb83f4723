package jobs

import (
	"context"

	"business-visa-backend/internal/domain"
	"business-visa-backend/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockApplicantService struct {
	mock.Mock
}

func (m *MockApplicantService) Submit(ctx context.Context, a *domain.Applicant) error {
	return m.Called(ctx, a).Error(0)
}
func (m *MockApplicantService) List(ctx context.Context) ([]domain.Applicant, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Applicant), args.Error(1)
}
func (m *MockApplicantService) Decide(ctx context.Context, id int64, status domain.ApplicantStatus) (*service.Decision, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Decision), args.Error(1)
}
func (m *MockApplicantService) AutoApprove(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockVisaService struct {
	mock.Mock
}

func batch(args mock.Arguments) (*service.BatchResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchResult), args.Error(1)
}

func (m *MockVisaService) Mint(ctx context.Context, email string) (*domain.AcceptedApplicant, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AcceptedApplicant), args.Error(1)
}
func (m *MockVisaService) ReconcileMints(ctx context.Context) (*service.BatchResult, error) {
	return batch(m.Called(ctx))
}
func (m *MockVisaService) VerifyClaims(ctx context.Context) (*service.BatchResult, error) {
	return batch(m.Called(ctx))
}
func (m *MockVisaService) VerifyExpirations(ctx context.Context) (*service.BatchResult, error) {
	return batch(m.Called(ctx))
}
func (m *MockVisaService) RenewManually(ctx context.Context, userID int64) (*service.RenewResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RenewResult), args.Error(1)
}
func (m *MockVisaService) RenewFromPayment(ctx context.Context, event service.PaymentEvent) (*service.RenewResult, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RenewResult), args.Error(1)
}
func (m *MockVisaService) RenewByEmails(ctx context.Context, emails []string) (*service.BatchResult, error) {
	return batch(m.Called(ctx, emails))
}
func (m *MockVisaService) ExpireManually(ctx context.Context, userID int64) (*service.ExpireResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExpireResult), args.Error(1)
}
func (m *MockVisaService) ExtendActiveExpiry(ctx context.Context, days int) (*service.BatchResult, error) {
	return batch(m.Called(ctx, days))
}
func (m *MockVisaService) UpdateEarnings(ctx context.Context, updates []service.EarningsUpdate) (*service.EarningsResult, error) {
	args := m.Called(ctx, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.EarningsResult), args.Error(1)
}

type MockLocker struct {
	mock.Mock
	released int
}

func (m *MockLocker) TryLock(ctx context.Context, name string) (func(), bool, error) {
	args := m.Called(ctx, name)
	return func() { m.released++ }, args.Bool(0), args.Error(1)
}
