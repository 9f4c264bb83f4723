package repository

import (
	"context"
	"time"

	"business-visa-backend/internal/domain"
)

type ApplicantRepository interface {
	Create(ctx context.Context, applicant *domain.Applicant) error
	GetByID(ctx context.Context, id int64) (*domain.Applicant, error)
	// FindByEmailOrWallet returns the first applicant matching either identity, or nil.
	FindByEmailOrWallet(ctx context.Context, email, walletAddress string) (*domain.Applicant, error)
	List(ctx context.Context) ([]domain.Applicant, error)
	ListByStatus(ctx context.Context, status domain.ApplicantStatus) ([]domain.Applicant, error)
	// UpdateStatus moves a pending applicant to status. It reports false when the
	// row was no longer pending.
	UpdateStatus(ctx context.Context, id int64, status domain.ApplicantStatus) (bool, error)
}

type AcceptedApplicantRepository interface {
	Create(ctx context.Context, applicant *domain.AcceptedApplicant) error
	GetByID(ctx context.Context, id int64) (*domain.AcceptedApplicant, error)
	GetByEmail(ctx context.Context, email string) (*domain.AcceptedApplicant, error)

	// Mint saga
	// ClaimMint marks the row as mint-requested when it has no NFT and no live
	// claim. Claims older than staleBefore are taken over. It reports whether the
	// caller now owns the mint.
	ClaimMint(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error)
	ReleaseMint(ctx context.Context, id int64) error
	// MarkMintSubmitted records that the gateway mint call is about to be made.
	// It reports false when the caller no longer holds the claim.
	MarkMintSubmitted(ctx context.Context, id int64) (bool, error)
	SaveMint(ctx context.Context, applicant *domain.AcceptedApplicant) error
	MarkMintNotified(ctx context.Context, id int64) error
	ListPendingMints(ctx context.Context, staleBefore time.Time) ([]domain.AcceptedApplicant, error)
	ListUnnotifiedMints(ctx context.Context) ([]domain.AcceptedApplicant, error)
	// ListSubmittedMints returns mints sent to the gateway before staleBefore
	// whose outcome was never recorded.
	ListSubmittedMints(ctx context.Context, staleBefore time.Time) ([]domain.AcceptedApplicant, error)

	// Claim verification
	ListUnclaimed(ctx context.Context) ([]domain.AcceptedApplicant, error)
	// MarkClaimed flips has_claimed to true. It reports false when it already was.
	MarkClaimed(ctx context.Context, id int64) (bool, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByWallet(ctx context.Context, walletAddress string, role *domain.Role) (*domain.User, error)
	List(ctx context.Context, role *domain.Role) ([]domain.User, error)
	ListActive(ctx context.Context) ([]domain.User, error)
	// ListExpired returns active business visas whose expiry is at or before now.
	ListExpired(ctx context.Context, now time.Time) ([]domain.User, error)
	SetVisaStatus(ctx context.Context, id int64, status domain.VisaStatus) error
	Renew(ctx context.Context, id int64, renewedAt, expiresAt time.Time) error
	SetExpiry(ctx context.Context, id int64, expiresAt time.Time) error
	// SetEarnings reports false when no user holds the wallet.
	SetEarnings(ctx context.Context, walletAddress string, earnings float64) (bool, error)
}

type PaymentEventRepository interface {
	// Record stores a processed webhook event. It reports false when the event
	// id was already recorded.
	Record(ctx context.Context, eventID, email string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories struct {
	Applicants         ApplicantRepository
	AcceptedApplicants AcceptedApplicantRepository
	Users              UserRepository
	PaymentEvents      PaymentEventRepository
}

// Transactor runs fn against repositories bound to a single transaction,
// committing when fn returns nil and rolling back otherwise.
type Transactor interface {
	WithTx(ctx context.Context, fn func(repos Repositories) error) error
}

// JobLocker guards a scheduled job tick across process instances.
type JobLocker interface {
	// TryLock reports whether the named lock was acquired. release must be
	// called when acquired is true.
	TryLock(ctx context.Context, name string) (release func(), acquired bool, err error)
}
