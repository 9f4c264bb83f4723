package service

import (
	"context"

	"business-visa-backend/internal/domain"
)

// NFTGateway is the minting API that owns the visa NFTs.
type NFTGateway interface {
	CountMinted(ctx context.Context) (int, error)
	Mint(ctx context.Context, req domain.MintRequest) (*domain.NFT, error)
	Get(ctx context.Context, nftID int64) (*domain.NFT, error)
	Update(ctx context.Context, nftID int64, update domain.NFTUpdate) (*domain.NFT, error)
}

// ImageGenerator renders a visa card and returns its public URL.
type ImageGenerator interface {
	Generate(ctx context.Context, img domain.VisaImage) (string, error)
}

// EmailService sends the lifecycle notifications. Each call returns the
// provider's message id.
type EmailService interface {
	SendVisaAccepted(ctx context.Context, to, imageURL, claimLink string) (string, error)
	SendVisaClaimed(ctx context.Context, to string) (string, error)
	SendVisaExpired(ctx context.Context, to string) (string, error)
	SendVisaRenewed(ctx context.Context, to string) (string, error)
}

// MintQueue schedules a mint outside the request that accepted the applicant.
type MintQueue interface {
	Enqueue(ctx context.Context, applicantEmail string) error
}

type ApplicantService interface {
	Submit(ctx context.Context, applicant *domain.Applicant) error
	List(ctx context.Context) ([]domain.Applicant, error)
	// Decide accepts or rejects a pending applicant. Accepting queues a mint.
	Decide(ctx context.Context, applicantID int64, status domain.ApplicantStatus) (*Decision, error)
	// AutoApprove accepts every pending applicant and returns how many succeeded.
	AutoApprove(ctx context.Context) (int, error)
}

type VisaService interface {
	// Mint
	Mint(ctx context.Context, applicantEmail string) (*domain.AcceptedApplicant, error)
	ReconcileMints(ctx context.Context) (*BatchResult, error)

	// Periodic reconciliation
	VerifyClaims(ctx context.Context) (*BatchResult, error)
	VerifyExpirations(ctx context.Context) (*BatchResult, error)

	// Renewal and expiry
	RenewManually(ctx context.Context, userID int64) (*RenewResult, error)
	RenewFromPayment(ctx context.Context, event PaymentEvent) (*RenewResult, error)
	RenewByEmails(ctx context.Context, emails []string) (*BatchResult, error)
	ExpireManually(ctx context.Context, userID int64) (*ExpireResult, error)
	ExtendActiveExpiry(ctx context.Context, days int) (*BatchResult, error)

	UpdateEarnings(ctx context.Context, updates []EarningsUpdate) (*EarningsResult, error)
}

type UserService interface {
	GetByWallet(ctx context.Context, walletAddress string, role *domain.Role) (*domain.User, error)
	List(ctx context.Context, role *domain.Role) ([]domain.User, error)
}

// Decision is the outcome of an admin decision. MintQueued is false for a
// rejection and for an acceptance whose mint could not be queued.
type Decision struct {
	ApplicantID int64                  `json:"applicantId"`
	Status      domain.ApplicantStatus `json:"-"`
	MintQueued  bool                   `json:"mintQueued"`
}

// BatchResult summarises a batch run. Failed holds the identity of every item
// that failed (email, wallet or id, depending on the batch).
type BatchResult struct {
	Processed int      `json:"processed"`
	Succeeded int      `json:"succeeded"`
	Failed    []string `json:"failed"`
}

func (r *BatchResult) fail(id string) {
	r.Processed++
	r.Failed = append(r.Failed, id)
}

func (r *BatchResult) ok() {
	r.Processed++
	r.Succeeded++
}

// PaymentEvent is the parsed payment-success webhook.
type PaymentEvent struct {
	EventID       string
	PaymentLinkID string
	Email         string
}

type RenewResult struct {
	UserID    int64  `json:"userId"`
	UserEmail string `json:"userEmail"`
	EmailID   string `json:"emailId,omitempty"`
	// Duplicate is set when the payment event was already processed.
	Duplicate bool `json:"duplicate,omitempty"`
}

type ExpireResult struct {
	UserID  int64  `json:"userId"`
	EmailID string `json:"emailId,omitempty"`
}

type EarningsUpdate struct {
	Wallet   string  `json:"wallet" validate:"required,max=44"`
	Earnings float64 `json:"earnings" validate:"gte=0"`
}

type EarningsResult struct {
	Wallets       []EarningsUpdate `json:"wallets"`
	FailedUpdates []EarningsUpdate `json:"failedUpdates"`
}
