package http

import (
	"context"

	"business-visa-backend/internal/domain"
	"business-visa-backend/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockApplicantService struct {
	mock.Mock
}

func (m *MockApplicantService) Submit(ctx context.Context, applicant *domain.Applicant) error {
	args := m.Called(ctx, applicant)
	return args.Error(0)
}

func (m *MockApplicantService) List(ctx context.Context) ([]domain.Applicant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Applicant), args.Error(1)
}

func (m *MockApplicantService) Decide(ctx context.Context, applicantID int64, status domain.ApplicantStatus) (*service.Decision, error) {
	args := m.Called(ctx, applicantID, status)
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

func (m *MockVisaService) Mint(ctx context.Context, applicantEmail string) (*domain.AcceptedApplicant, error) {
	args := m.Called(ctx, applicantEmail)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AcceptedApplicant), args.Error(1)
}

func (m *MockVisaService) ReconcileMints(ctx context.Context) (*service.BatchResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchResult), args.Error(1)
}

func (m *MockVisaService) VerifyClaims(ctx context.Context) (*service.BatchResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchResult), args.Error(1)
}

func (m *MockVisaService) VerifyExpirations(ctx context.Context) (*service.BatchResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchResult), args.Error(1)
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
	args := m.Called(ctx, emails)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchResult), args.Error(1)
}

func (m *MockVisaService) ExpireManually(ctx context.Context, userID int64) (*service.ExpireResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExpireResult), args.Error(1)
}

func (m *MockVisaService) ExtendActiveExpiry(ctx context.Context, days int) (*service.BatchResult, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchResult), args.Error(1)
}

func (m *MockVisaService) UpdateEarnings(ctx context.Context, updates []service.EarningsUpdate) (*service.EarningsResult, error) {
	args := m.Called(ctx, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.EarningsResult), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetByWallet(ctx context.Context, walletAddress string, role *domain.Role) (*domain.User, error) {
	args := m.Called(ctx, walletAddress, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserService) List(ctx context.Context, role *domain.Role) ([]domain.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}
