package domain

import "time"

type ApplicantStatus string

const (
	ApplicantStatusPending  ApplicantStatus = "pending"
	ApplicantStatusAccepted ApplicantStatus = "accepted"
	ApplicantStatusRejected ApplicantStatus = "rejected"
)

// Valid reports whether s is one of the known applicant statuses.
func (s ApplicantStatus) Valid() bool {
	switch s {
	case ApplicantStatusPending, ApplicantStatusAccepted, ApplicantStatusRejected:
		return true
	}
	return false
}

type Applicant struct {
	ID            int64           `json:"id"`
	WalletAddress string          `json:"walletAddress"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	DiscordID     string          `json:"discordId"`
	Country       string          `json:"country"`
	Status        ApplicantStatus `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// MintState is the saga marker persisted on an accepted applicant so that
// reconciliation can resume a mint that stopped between external calls.
type MintState string

const (
	MintStateNone      MintState = ""
	MintStateRequested MintState = "requested"
	// MintStateSubmitted means the gateway was asked to mint and its answer was
	// never recorded. The NFT may exist, so the row is never minted again
	// automatically.
	MintStateSubmitted MintState = "submitted"
	MintStateMinted    MintState = "minted"
	MintStateNotified  MintState = "notified"
)

type AcceptedApplicant struct {
	ID              int64      `json:"id"`
	WalletAddress   string     `json:"walletAddress"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	DiscordID       string     `json:"discordId"`
	Country         string     `json:"country"`
	NFTID           *int64     `json:"nftId"`
	NFTIssuedAt     *time.Time `json:"nftIssuedAt"`
	NFTExpiresAt    *time.Time `json:"nftExpiresAt"`
	NFTMintAddress  string     `json:"nftMintAddress,omitempty"`
	NFTClaimLink    string     `json:"nftClaimLink,omitempty"`
	HasClaimed      bool       `json:"hasClaimed"`
	MintState       MintState  `json:"mintState"`
	MintRequestedAt *time.Time `json:"mintRequestedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// NewAcceptedApplicant copies the identity of an applicant into a fresh
// accepted record. The two rows share no state after this call.
func NewAcceptedApplicant(a *Applicant) *AcceptedApplicant {
	return &AcceptedApplicant{
		WalletAddress: a.WalletAddress,
		Name:          a.Name,
		Email:         a.Email,
		DiscordID:     a.DiscordID,
		Country:       a.Country,
	}
}

// HasMinted reports whether the gateway already returned an NFT for this applicant.
func (a *AcceptedApplicant) HasMinted() bool {
	return a.NFTID != nil
}
