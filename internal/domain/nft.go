package domain

// NFTStatus is the gateway's view of a minted NFT.
type NFTStatus string

const (
	NFTStatusPending   NFTStatus = "pending"
	NFTStatusConfirmed NFTStatus = "confirmed"
)

type NFTAttributes struct {
	Status    VisaStatus `json:"status"`
	IssuedAt  string     `json:"issuedAt"`
	ExpiresAt string     `json:"expiresAt"`
}

// MintRequest is the metadata sent to the gateway for a new visa NFT.
type MintRequest struct {
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	Symbol          string        `json:"symbol"`
	Image           string        `json:"image"`
	Attributes      NFTAttributes `json:"attributes"`
	ReceiverAddress string        `json:"receiverAddress"`
}

// NFTUpdate patches an existing NFT. An empty Image leaves the image untouched.
type NFTUpdate struct {
	Image      string        `json:"image,omitempty"`
	Attributes NFTAttributes `json:"attributes"`
}

type NFT struct {
	ID           int64     `json:"id"`
	ProjectID    int64     `json:"projectId"`
	Status       NFTStatus `json:"status"`
	OwnerAddress string    `json:"ownerAddress"`
	MintAddress  string    `json:"mintAddress"`
	Name         string    `json:"name"`
	Image        string    `json:"image"`
}

// VisaImage describes what the renderer paints on a visa card.
type VisaImage struct {
	WalletAddress string
	Name          string
	Status        ImageStatus
	Earnings      string
}
