package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mr-tron/base58"
)

const (
	// VisaValidity is how long a freshly minted or renewed visa stays active.
	VisaValidity = 30 * 24 * time.Hour

	VisaNamePrefix    = "Dean's List Business Visa #"
	VisaDescription   = "Keep this active to gain access to USDC earning opportunities."
	VisaSymbol        = "DLBV"
	DefaultHolderName = "Dean's List DAO Member"

	// AttributeTimeLayout renders timestamps in NFT attributes, e.g. "05 March 2024 01:30 PM".
	AttributeTimeLayout = "02 January 2006 03:04 PM"

	claimBaseURL = "https://claim.underdogprotocol.com/nfts/"
)

// ImageStatus is the status label painted on the rendered visa image.
type ImageStatus string

const (
	ImageStatusActive  ImageStatus = "Active"
	ImageStatusExpired ImageStatus = "Expired"
)

func ImageStatusFor(s VisaStatus) ImageStatus {
	if s == VisaStatusActive {
		return ImageStatusActive
	}
	return ImageStatusExpired
}

// VisaName is the NFT display name for the given serial.
func VisaName(serial int) string {
	return VisaNamePrefix + strconv.Itoa(serial)
}

// ClaimLink builds the deterministic claim URL for a minted NFT.
func ClaimLink(mintAddress string, mainnet bool) string {
	network := "DEVNET"
	if mainnet {
		network = "MAINNET"
	}
	return fmt.Sprintf("%s%s?network=%s", claimBaseURL, mintAddress, network)
}

// FormatAttributeTime formats t for NFT attributes, falling back to fallback when t is nil.
func FormatAttributeTime(t *time.Time, fallback time.Time) string {
	if t == nil {
		return fallback.Format(AttributeTimeLayout)
	}
	return t.Format(AttributeTimeLayout)
}

// FormatEarnings renders stored earnings for a minted or renewed visa image.
// Holders with nothing earned yet show a bare "0".
func FormatEarnings(earnings float64) string {
	if earnings == 0 {
		return "0"
	}
	return FormatUSDC(earnings)
}

// FormatUSDC renders an earnings figure with its unit, zero included.
func FormatUSDC(earnings float64) string {
	return strconv.FormatFloat(earnings, 'f', 2, 64) + " USDC"
}

// ValidSolanaAddress reports whether addr decodes to a 32 byte ed25519 public key.
func ValidSolanaAddress(addr string) bool {
	if len(addr) < 32 || len(addr) > 44 {
		return false
	}
	raw, err := base58.Decode(addr)
	if err != nil {
		return false
	}
	return len(raw) == 32
}
