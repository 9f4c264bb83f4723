package service

import (
	"context"
	"time"

	"business-visa-backend/internal/domain"
	"business-visa-backend/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockApplicantRepo
type MockApplicantRepo struct {
	mock.Mock
}

func (m *MockApplicantRepo) Create(ctx context.Context, a *domain.Applicant) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}
func (m *MockApplicantRepo) GetByID(ctx context.Context, id int64) (*domain.Applicant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Applicant), args.Error(1)
}
func (m *MockApplicantRepo) FindByEmailOrWallet(ctx context.Context, email, wallet string) (*domain.Applicant, error) {
	args := m.Called(ctx, email, wallet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Applicant), args.Error(1)
}
func (m *MockApplicantRepo) List(ctx context.Context) ([]domain.Applicant, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Applicant), args.Error(1)
}
func (m *MockApplicantRepo) ListByStatus(ctx context.Context, status domain.ApplicantStatus) ([]domain.Applicant, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]domain.Applicant), args.Error(1)
}
func (m *MockApplicantRepo) UpdateStatus(ctx context.Context, id int64, status domain.ApplicantStatus) (bool, error) {
	args := m.Called(ctx, id, status)
	return args.Bool(0), args.Error(1)
}

// MockAcceptedApplicantRepo
type MockAcceptedApplicantRepo struct {
	mock.Mock
}

func (m *MockAcceptedApplicantRepo) Create(ctx context.Context, a *domain.AcceptedApplicant) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}
func (m *MockAcceptedApplicantRepo) GetByID(ctx context.Context, id int64) (*domain.AcceptedApplicant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AcceptedApplicant), args.Error(1)
}
func (m *MockAcceptedApplicantRepo) GetByEmail(ctx context.Context, email string) (*domain.AcceptedApplicant, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AcceptedApplicant), args.Error(1)
}
func (m *MockAcceptedApplicantRepo) ClaimMint(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error) {
	args := m.Called(ctx, id, now, staleBefore)
	return args.Bool(0), args.Error(1)
}
func (m *MockAcceptedApplicantRepo) ReleaseMint(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockAcceptedApplicantRepo) MarkMintSubmitted(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
func (m *MockAcceptedApplicantRepo) SaveMint(ctx context.Context, a *domain.AcceptedApplicant) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}
func (m *MockAcceptedApplicantRepo) MarkMintNotified(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockAcceptedApplicantRepo) ListPendingMints(ctx context.Context, staleBefore time.Time) ([]domain.AcceptedApplicant, error) {
	args := m.Called(ctx, staleBefore)
	return args.Get(0).([]domain.AcceptedApplicant), args.Error(1)
}
func (m *MockAcceptedApplicantRepo) ListUnnotifiedMints(ctx context.Context) ([]domain.AcceptedApplicant, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.AcceptedApplicant), args.Error(1)
}
func (m *MockAcceptedApplicantRepo) ListSubmittedMints(ctx context.Context, staleBefore time.Time) ([]domain.AcceptedApplicant, error) {
	args := m.Called(ctx, staleBefore)
	return args.Get(0).([]domain.AcceptedApplicant), args.Error(1)
}
func (m *MockAcceptedApplicantRepo) ListUnclaimed(ctx context.Context) ([]domain.AcceptedApplicant, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.AcceptedApplicant), args.Error(1)
}
func (m *MockAcceptedApplicantRepo) MarkClaimed(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockUserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}
func (m *MockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) GetByWallet(ctx context.Context, wallet string, role *domain.Role) (*domain.User, error) {
	args := m.Called(ctx, wallet, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) List(ctx context.Context, role *domain.Role) ([]domain.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}
func (m *MockUserRepo) ListActive(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.User), args.Error(1)
}
func (m *MockUserRepo) ListExpired(ctx context.Context, now time.Time) ([]domain.User, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.User), args.Error(1)
}
func (m *MockUserRepo) SetVisaStatus(ctx context.Context, id int64, status domain.VisaStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}
func (m *MockUserRepo) Renew(ctx context.Context, id int64, renewedAt, expiresAt time.Time) error {
	args := m.Called(ctx, id, renewedAt, expiresAt)
	return args.Error(0)
}
func (m *MockUserRepo) SetExpiry(ctx context.Context, id int64, expiresAt time.Time) error {
	args := m.Called(ctx, id, expiresAt)
	return args.Error(0)
}
func (m *MockUserRepo) SetEarnings(ctx context.Context, wallet string, earnings float64) (bool, error) {
	args := m.Called(ctx, wallet, earnings)
	return args.Bool(0), args.Error(1)
}

// MockPaymentEventRepo
type MockPaymentEventRepo struct {
	mock.Mock
}

func (m *MockPaymentEventRepo) Record(ctx context.Context, eventID, email string) (bool, error) {
	args := m.Called(ctx, eventID, email)
	return args.Bool(0), args.Error(1)
}
func (m *MockPaymentEventRepo) Forget(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

// fakeTransactor runs fn against the mocked repositories.
type fakeTransactor struct {
	repos repository.Repositories
	calls int
}

func (f *fakeTransactor) WithTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	f.calls++
	return fn(f.repos)
}

// MockNFTGateway
type MockNFTGateway struct {
	mock.Mock
}

func (m *MockNFTGateway) CountMinted(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
func (m *MockNFTGateway) Mint(ctx context.Context, req domain.MintRequest) (*domain.NFT, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NFT), args.Error(1)
}
func (m *MockNFTGateway) Get(ctx context.Context, nftID int64) (*domain.NFT, error) {
	args := m.Called(ctx, nftID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NFT), args.Error(1)
}
func (m *MockNFTGateway) Update(ctx context.Context, nftID int64, update domain.NFTUpdate) (*domain.NFT, error) {
	args := m.Called(ctx, nftID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NFT), args.Error(1)
}

// MockImageGenerator
type MockImageGenerator struct {
	mock.Mock
}

func (m *MockImageGenerator) Generate(ctx context.Context, img domain.VisaImage) (string, error) {
	args := m.Called(ctx, img)
	return args.String(0), args.Error(1)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendVisaAccepted(ctx context.Context, to, imageURL, claimLink string) (string, error) {
	args := m.Called(ctx, to, imageURL, claimLink)
	return args.String(0), args.Error(1)
}
func (m *MockEmailService) SendVisaClaimed(ctx context.Context, to string) (string, error) {
	args := m.Called(ctx, to)
	return args.String(0), args.Error(1)
}
func (m *MockEmailService) SendVisaExpired(ctx context.Context, to string) (string, error) {
	args := m.Called(ctx, to)
	return args.String(0), args.Error(1)
}
func (m *MockEmailService) SendVisaRenewed(ctx context.Context, to string) (string, error) {
	args := m.Called(ctx, to)
	return args.String(0), args.Error(1)
}

// MockMintQueue
type MockMintQueue struct {
	mock.Mock
}

func (m *MockMintQueue) Enqueue(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

type visaMocks struct {
	applicants *MockApplicantRepo
	accepted   *MockAcceptedApplicantRepo
	users      *MockUserRepo
	payments   *MockPaymentEventRepo
	tx         *fakeTransactor
	gateway    *MockNFTGateway
	images     *MockImageGenerator
	emails     *MockEmailService
	queue      *MockMintQueue
}

func newVisaMocks() *visaMocks {
	m := &visaMocks{
		applicants: new(MockApplicantRepo),
		accepted:   new(MockAcceptedApplicantRepo),
		users:      new(MockUserRepo),
		payments:   new(MockPaymentEventRepo),
		gateway:    new(MockNFTGateway),
		images:     new(MockImageGenerator),
		emails:     new(MockEmailService),
		queue:      new(MockMintQueue),
	}
	m.tx = &fakeTransactor{repos: m.repos()}
	return m
}

func (m *visaMocks) repos() repository.Repositories {
	return repository.Repositories{
		Applicants:         m.applicants,
		AcceptedApplicants: m.accepted,
		Users:              m.users,
		PaymentEvents:      m.payments,
	}
}

var testNow = time.Date(2024, 3, 5, 13, 30, 0, 0, time.UTC)

func (m *visaMocks) visaService() VisaService {
	return m.visaServiceAt(testNow)
}

func (m *visaMocks) visaServiceAt(now time.Time) VisaService {
	return NewVisaService(m.repos(), m.tx, m.gateway, m.images, m.emails, VisaConfig{
		PaymentLinkID:    "paylink_1",
		MintClaimTimeout: 15 * time.Minute,
		Now:              func() time.Time { return now },
	})
}

func (m *visaMocks) applicantService() ApplicantService {
	return NewApplicantService(m.repos(), m.tx, m.queue)
}
