package domain

import "time"

type Role string

const (
	RoleMasterAdmin Role = "master-admin"
	RoleAdmin       Role = "admin"
	RoleClient      Role = "client"
	RoleUser        Role = "user"
)

func (r Role) Valid() bool {
	switch r {
	case RoleMasterAdmin, RoleAdmin, RoleClient, RoleUser:
		return true
	}
	return false
}

type NFTType string

const (
	NFTTypeBusiness NFTType = "business"
	NFTTypeMember   NFTType = "member"
)

type VisaStatus string

const (
	VisaStatusActive  VisaStatus = "active"
	VisaStatusExpired VisaStatus = "expired"
)

// User is a member holding a claimed visa NFT.
type User struct {
	ID            int64      `json:"id"`
	WalletAddress string     `json:"walletAddress"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	ProfileImage  string     `json:"profileImage,omitempty"`
	DiscordID     string     `json:"discordId"`
	Country       string     `json:"country"`
	Role          Role       `json:"role"`
	NFTType       NFTType    `json:"nftType"`
	NFTID         *int64     `json:"nftId"`
	NFTStatus     VisaStatus `json:"nftStatus"`
	NFTIssuedAt   *time.Time `json:"nftIssuedAt"`
	NFTExpiresAt  *time.Time `json:"nftExpiresAt"`
	NFTRenewedAt  *time.Time `json:"nftRenewedAt"`
	Earnings      float64    `json:"earnings"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// NewUserFromClaim builds the member row created when an accepted applicant's
// NFT is confirmed by the gateway.
func NewUserFromClaim(a *AcceptedApplicant, nftID int64) *User {
	return &User{
		WalletAddress: a.WalletAddress,
		Name:          a.Name,
		Email:         a.Email,
		DiscordID:     a.DiscordID,
		Country:       a.Country,
		Role:          RoleUser,
		NFTType:       NFTTypeBusiness,
		NFTID:         &nftID,
		NFTStatus:     VisaStatusActive,
		NFTIssuedAt:   a.NFTIssuedAt,
		NFTExpiresAt:  a.NFTExpiresAt,
	}
}

// IsExpiredAt reports whether an active business visa is due for expiry at now.
func (u *User) IsExpiredAt(now time.Time) bool {
	return u.NFTType == NFTTypeBusiness &&
		u.NFTStatus == VisaStatusActive &&
		u.NFTExpiresAt != nil &&
		!u.NFTExpiresAt.After(now)
}
