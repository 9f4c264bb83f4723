package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"business-visa-backend/internal/domain"
	"business-visa-backend/internal/logger"
	"business-visa-backend/internal/metrics"
	"business-visa-backend/internal/repository"
)

// VisaConfig carries the settings the orchestrator needs from the process config.
type VisaConfig struct {
	Mainnet       bool
	PaymentLinkID string
	DefaultName   string
	// MintClaimTimeout is how long a mint claim blocks other minters.
	MintClaimTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

type visaService struct {
	repos   repository.Repositories
	tx      repository.Transactor
	gateway NFTGateway
	images  ImageGenerator
	emails  EmailService
	cfg     VisaConfig
	now     func() time.Time
}

func NewVisaService(
	repos repository.Repositories,
	tx repository.Transactor,
	gateway NFTGateway,
	images ImageGenerator,
	emails EmailService,
	cfg VisaConfig,
) VisaService {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if cfg.DefaultName == "" {
		cfg.DefaultName = domain.DefaultHolderName
	}
	if cfg.MintClaimTimeout <= 0 {
		cfg.MintClaimTimeout = 15 * time.Minute
	}
	return &visaService{
		repos:   repos,
		tx:      tx,
		gateway: gateway,
		images:  images,
		emails:  emails,
		cfg:     cfg,
		now:     now,
	}
}

var errAlreadyClaimed = errors.New("applicant already claimed")

// Mint issues the visa NFT for an accepted applicant.
//
// The mint claim is taken before any external call. It is released when the
// attempt fails before the gateway was asked to mint. Right before the gateway
// call the row is marked submitted, and a submitted row is never claimed again:
// if the outcome is lost the NFT may exist, so reconciliation parks it instead.
func (s *visaService) Mint(ctx context.Context, applicantEmail string) (_ *domain.AcceptedApplicant, err error) {
	const method = "VisaService.Mint"
	logger.EnterMethod(method, "email", applicantEmail)
	defer func() {
		if err != nil {
			logger.ExitMethodWithError(method, err, "email", applicantEmail)
		} else {
			logger.ExitMethod(method, "email", applicantEmail)
		}
	}()

	applicant, err := s.repos.AcceptedApplicants.GetByEmail(ctx, applicantEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to get accepted applicant: %w", err)
	}
	if applicant.HasMinted() {
		return nil, domain.Errorf(domain.ErrConflict, "User already has a nft!")
	}

	now := s.now()
	claimed, err := s.repos.AcceptedApplicants.ClaimMint(ctx, applicant.ID, now, now.Add(-s.cfg.MintClaimTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to claim mint: %w", err)
	}
	if !claimed {
		return nil, domain.Errorf(domain.ErrConflict, "a mint is already in progress for this applicant")
	}

	keepClaim := false
	defer func() {
		if err == nil || keepClaim {
			return
		}
		if relErr := s.repos.AcceptedApplicants.ReleaseMint(ctx, applicant.ID); relErr != nil {
			logger.Warn("Failed to release mint claim", "applicant_id", applicant.ID, "error", relErr)
		}
	}()

	count, err := s.gateway.CountMinted(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch minted count: %w", err)
	}
	serial := count + 1

	imageURL, err := s.images.Generate(ctx, domain.VisaImage{
		WalletAddress: applicant.WalletAddress,
		Name:          s.holderName(applicant.Name),
		Status:        domain.ImageStatusActive,
		Earnings:      domain.FormatEarnings(0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate visa image: %w", err)
	}

	issuedAt := now
	expiresAt := now.Add(domain.VisaValidity)

	submitted, err := s.repos.AcceptedApplicants.MarkMintSubmitted(ctx, applicant.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark mint submitted: %w", err)
	}
	keepClaim = true
	if !submitted {
		return nil, domain.Errorf(domain.ErrConflict, "mint claim for applicant %d was taken over", applicant.ID)
	}

	nft, err := s.gateway.Mint(ctx, domain.MintRequest{
		Name:        domain.VisaName(serial),
		Description: domain.VisaDescription,
		Symbol:      domain.VisaSymbol,
		Image:       imageURL,
		Attributes: domain.NFTAttributes{
			Status:    domain.VisaStatusActive,
			IssuedAt:  issuedAt.Format(domain.AttributeTimeLayout),
			ExpiresAt: expiresAt.Format(domain.AttributeTimeLayout),
		},
		ReceiverAddress: applicant.WalletAddress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mint nft: %w", err)
	}

	nftID := nft.ID
	applicant.NFTID = &nftID
	applicant.NFTMintAddress = nft.MintAddress
	applicant.NFTClaimLink = domain.ClaimLink(nft.MintAddress, s.cfg.Mainnet)
	applicant.NFTIssuedAt = &issuedAt
	applicant.NFTExpiresAt = &expiresAt

	if err := s.repos.AcceptedApplicants.SaveMint(ctx, applicant); err != nil {
		logger.Error("Minted nft could not be recorded", "applicant_id", applicant.ID, "nft_id", nft.ID, "mint_address", nft.MintAddress, "error", err)
		return nil, fmt.Errorf("failed to save minted nft %d: %w", nft.ID, err)
	}
	metrics.RecordTransition("minted")

	if err := s.notifyAccepted(ctx, applicant, imageURL); err != nil {
		return applicant, err
	}
	return applicant, nil
}

func (s *visaService) notifyAccepted(ctx context.Context, applicant *domain.AcceptedApplicant, imageURL string) error {
	emailID, err := s.emails.SendVisaAccepted(ctx, applicant.Email, imageURL, applicant.NFTClaimLink)
	if err != nil {
		return fmt.Errorf("failed to send claim email: %w", err)
	}
	if err := s.repos.AcceptedApplicants.MarkMintNotified(ctx, applicant.ID); err != nil {
		return fmt.Errorf("failed to mark mint notified: %w", err)
	}
	applicant.MintState = domain.MintStateNotified
	logger.Info("Claim email sent", "applicant_id", applicant.ID, "email_id", emailID, "claim_link", applicant.NFTClaimLink)
	return nil
}

// ReconcileMints resumes interrupted mints: applicants with no NFT and no live
// claim are minted, and minted applicants that never got their claim email are
// notified again. Stale submitted mints are reported as failures and left for
// an operator to check against the gateway.
func (s *visaService) ReconcileMints(ctx context.Context) (*BatchResult, error) {
	now := s.now()
	staleBefore := now.Add(-s.cfg.MintClaimTimeout)
	result := &BatchResult{}

	pending, err := s.repos.AcceptedApplicants.ListPendingMints(ctx, staleBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending mints: %w", err)
	}
	for _, a := range pending {
		if _, err := s.Mint(ctx, a.Email); err != nil {
			logger.Error("Failed to mint pending visa", "applicant_email", a.Email, "error", err)
			result.fail(a.Email)
			continue
		}
		result.ok()
	}

	submitted, err := s.repos.AcceptedApplicants.ListSubmittedMints(ctx, staleBefore)
	if err != nil {
		return result, fmt.Errorf("failed to list submitted mints: %w", err)
	}
	for _, a := range submitted {
		logger.Error("Mint outcome unknown, check the gateway before releasing",
			"applicant_id", a.ID, "applicant_email", a.Email, "wallet", a.WalletAddress, "mint_requested_at", a.MintRequestedAt)
		result.fail(a.Email)
	}

	unnotified, err := s.repos.AcceptedApplicants.ListUnnotifiedMints(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list unnotified mints: %w", err)
	}
	for i := range unnotified {
		a := &unnotified[i]
		// Leave fresh mints to the request that is still sending their email.
		if a.NFTIssuedAt != nil && a.NFTIssuedAt.After(staleBefore) {
			continue
		}
		if err := s.resendAccepted(ctx, a); err != nil {
			logger.Error("Failed to resend claim email", "applicant_email", a.Email, "error", err)
			result.fail(a.Email)
			continue
		}
		result.ok()
	}

	return result, nil
}

func (s *visaService) resendAccepted(ctx context.Context, a *domain.AcceptedApplicant) error {
	nft, err := s.gateway.Get(ctx, *a.NFTID)
	if err != nil {
		return fmt.Errorf("failed to fetch nft: %w", err)
	}
	imageURL := nft.Image
	if imageURL == "" {
		imageURL, err = s.images.Generate(ctx, domain.VisaImage{
			WalletAddress: a.WalletAddress,
			Name:          s.holderName(a.Name),
			Status:        domain.ImageStatusActive,
			Earnings:      domain.FormatEarnings(0),
		})
		if err != nil {
			return fmt.Errorf("failed to generate visa image: %w", err)
		}
	}
	return s.notifyAccepted(ctx, a, imageURL)
}

// VerifyClaims promotes accepted applicants whose NFT the gateway reports as
// confirmed into users.
func (s *visaService) VerifyClaims(ctx context.Context) (*BatchResult, error) {
	applicants, err := s.repos.AcceptedApplicants.ListUnclaimed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list unclaimed applicants: %w", err)
	}
	if len(applicants) == 0 {
		logger.Info("No accepted applicants who have not claimed yet")
	}

	result := &BatchResult{}
	for i := range applicants {
		a := &applicants[i]
		promoted, err := s.verifyClaim(ctx, a)
		if err != nil {
			logger.Error("Failed to verify claim", "applicant_id", a.ID, "error", err)
			result.fail(strconv.FormatInt(a.ID, 10))
			continue
		}
		result.ok()
		if promoted {
			logger.Info("Nft claimed", "applicant_id", a.ID, "nft_id", *a.NFTID)
		}
	}
	return result, nil
}

func (s *visaService) verifyClaim(ctx context.Context, a *domain.AcceptedApplicant) (bool, error) {
	if !a.HasMinted() {
		return false, fmt.Errorf("no nft id found for applicant %d", a.ID)
	}

	nft, err := s.gateway.Get(ctx, *a.NFTID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch nft details: %w", err)
	}
	if nft.Status != domain.NFTStatusConfirmed {
		return false, nil
	}

	err = s.tx.WithTx(ctx, func(repos repository.Repositories) error {
		marked, err := repos.AcceptedApplicants.MarkClaimed(ctx, a.ID)
		if err != nil {
			return err
		}
		if !marked {
			return errAlreadyClaimed
		}
		return repos.Users.Create(ctx, domain.NewUserFromClaim(a, nft.ID))
	})
	if errors.Is(err, errAlreadyClaimed) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to promote applicant: %w", err)
	}
	a.HasClaimed = true
	metrics.RecordTransition("claimed")

	if _, err := s.emails.SendVisaClaimed(ctx, a.Email); err != nil {
		logger.Warn("Failed to send claimed email", "applicant_id", a.ID, "error", err)
	}
	return true, nil
}

// VerifyExpirations expires every active business visa whose expiry has passed.
func (s *visaService) VerifyExpirations(ctx context.Context) (*BatchResult, error) {
	now := s.now()
	users, err := s.repos.Users.ListExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired visas: %w", err)
	}
	if len(users) == 0 {
		logger.Info("No expired business visa users")
	}

	result := &BatchResult{}
	for i := range users {
		u := &users[i]
		if !u.IsExpiredAt(now) {
			continue
		}
		expiresAt := now
		if u.NFTExpiresAt != nil {
			expiresAt = *u.NFTExpiresAt
		}
		if _, err := s.expire(ctx, u, expiresAt); err != nil {
			logger.Error("Failed to expire visa", "user_id", u.ID, "error", err)
			result.fail(strconv.FormatInt(u.ID, 10))
			continue
		}
		result.ok()
	}
	return result, nil
}

// ExpireManually expires a visa ahead of its expiry date.
func (s *visaService) ExpireManually(ctx context.Context, userID int64) (*ExpireResult, error) {
	u, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("no user found: %w", err)
	}
	if u.NFTStatus == domain.VisaStatusExpired {
		return nil, domain.Errorf(domain.ErrConflict, "User already has an expired business visa!")
	}
	emailID, err := s.expire(ctx, u, s.now())
	if err != nil {
		return nil, err
	}
	return &ExpireResult{UserID: u.ID, EmailID: emailID}, nil
}

// expire pushes the expired image and attributes to the gateway, then mirrors
// the status locally and notifies the holder.
func (s *visaService) expire(ctx context.Context, u *domain.User, expiresAt time.Time) (string, error) {
	if u.NFTID == nil {
		return "", domain.Errorf(domain.ErrConflict, "no nft id found for user %d", u.ID)
	}

	imageURL, err := s.images.Generate(ctx, domain.VisaImage{
		WalletAddress: u.WalletAddress,
		Name:          s.holderName(u.Name),
		Status:        domain.ImageStatusExpired,
		Earnings:      domain.FormatEarnings(u.Earnings),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate visa image: %w", err)
	}

	if _, err := s.gateway.Update(ctx, *u.NFTID, domain.NFTUpdate{
		Image: imageURL,
		Attributes: domain.NFTAttributes{
			Status:    domain.VisaStatusExpired,
			IssuedAt:  domain.FormatAttributeTime(u.NFTIssuedAt, s.now()),
			ExpiresAt: expiresAt.Format(domain.AttributeTimeLayout),
		},
	}); err != nil {
		return "", fmt.Errorf("failed to update nft: %w", err)
	}

	if err := s.repos.Users.SetVisaStatus(ctx, u.ID, domain.VisaStatusExpired); err != nil {
		return "", fmt.Errorf("failed to mark visa expired: %w", err)
	}
	u.NFTStatus = domain.VisaStatusExpired
	metrics.RecordTransition("expired")

	emailID, err := s.emails.SendVisaExpired(ctx, u.Email)
	if err != nil {
		logger.Warn("Failed to send expired email", "user_id", u.ID, "error", err)
		return "", nil
	}
	return emailID, nil
}

// RenewManually renews an expired visa on an admin's request.
func (s *visaService) RenewManually(ctx context.Context, userID int64) (*RenewResult, error) {
	u, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("no user found: %w", err)
	}
	if u.NFTStatus == domain.VisaStatusActive {
		return nil, domain.Errorf(domain.ErrConflict, "User already has an active business visa!")
	}
	return s.renew(ctx, u)
}

// RenewFromPayment renews the visa of the user who paid. Each webhook event id
// is processed once.
func (s *visaService) RenewFromPayment(ctx context.Context, event PaymentEvent) (*RenewResult, error) {
	if event.Email == "" {
		return nil, domain.Errorf(domain.ErrInvalidInput, "payment has no customer email")
	}
	if event.PaymentLinkID != s.cfg.PaymentLinkID {
		return nil, domain.Errorf(domain.ErrInvalidInput, "wrong payment link id %q", event.PaymentLinkID)
	}

	u, err := s.repos.Users.GetByEmail(ctx, event.Email)
	if err != nil {
		return nil, fmt.Errorf("no user found for payment: %w", err)
	}

	if event.EventID != "" {
		recorded, err := s.repos.PaymentEvents.Record(ctx, event.EventID, event.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to record payment event: %w", err)
		}
		if !recorded {
			logger.Info("Duplicate payment event ignored", "event_id", event.EventID, "email", event.Email)
			return &RenewResult{UserID: u.ID, UserEmail: u.Email, Duplicate: true}, nil
		}
	}

	res, err := s.renew(ctx, u)
	if err != nil && event.EventID != "" {
		if fErr := s.repos.PaymentEvents.Forget(ctx, event.EventID); fErr != nil {
			logger.Error("Failed to forget payment event", "event_id", event.EventID, "error", fErr)
		}
	}
	return res, err
}

// RenewByEmails renews each listed holder. Failures are collected by email.
func (s *visaService) RenewByEmails(ctx context.Context, emails []string) (*BatchResult, error) {
	result := &BatchResult{}
	for _, email := range emails {
		u, err := s.repos.Users.GetByEmail(ctx, email)
		if err != nil {
			logger.Error("Renewal holder lookup failed", "email", email, "error", err)
			result.fail(email)
			continue
		}
		if _, err := s.renew(ctx, u); err != nil {
			logger.Error("Renewal failed", "email", email, "error", err)
			result.fail(email)
			continue
		}
		result.ok()
	}
	return result, nil
}

func (s *visaService) renew(ctx context.Context, u *domain.User) (*RenewResult, error) {
	if u.NFTID == nil {
		return nil, domain.Errorf(domain.ErrConflict, "no nft id found for user %d", u.ID)
	}

	renewDate := s.now()
	newExpiresAt := renewDate.Add(domain.VisaValidity)

	imageURL, err := s.images.Generate(ctx, domain.VisaImage{
		WalletAddress: u.WalletAddress,
		Name:          s.holderName(u.Name),
		Status:        domain.ImageStatusActive,
		Earnings:      domain.FormatEarnings(u.Earnings),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate visa image: %w", err)
	}

	if _, err := s.gateway.Update(ctx, *u.NFTID, domain.NFTUpdate{
		Image: imageURL,
		Attributes: domain.NFTAttributes{
			Status:    domain.VisaStatusActive,
			IssuedAt:  domain.FormatAttributeTime(u.NFTIssuedAt, renewDate),
			ExpiresAt: newExpiresAt.Format(domain.AttributeTimeLayout),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to update nft: %w", err)
	}

	if err := s.repos.Users.Renew(ctx, u.ID, renewDate, newExpiresAt); err != nil {
		return nil, fmt.Errorf("failed to renew visa: %w", err)
	}
	u.NFTStatus = domain.VisaStatusActive
	u.NFTRenewedAt = &renewDate
	u.NFTExpiresAt = &newExpiresAt
	metrics.RecordTransition("renewed")

	res := &RenewResult{UserID: u.ID, UserEmail: u.Email}
	emailID, err := s.emails.SendVisaRenewed(ctx, u.Email)
	if err != nil {
		logger.Warn("Failed to send renewed email", "user_id", u.ID, "error", err)
	} else {
		res.EmailID = emailID
	}
	return res, nil
}

// ExtendActiveExpiry pushes every active visa's expiry back by days.
// Holders without an NFT or an expiry date are skipped.
func (s *visaService) ExtendActiveExpiry(ctx context.Context, days int) (*BatchResult, error) {
	if days <= 0 {
		return nil, domain.Errorf(domain.ErrInvalidInput, "days must be positive")
	}
	users, err := s.repos.Users.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active visas: %w", err)
	}

	result := &BatchResult{}
	for i := range users {
		u := &users[i]
		if u.NFTID == nil || u.NFTExpiresAt == nil {
			continue
		}
		newExpiresAt := u.NFTExpiresAt.AddDate(0, 0, days)

		_, err := s.gateway.Update(ctx, *u.NFTID, domain.NFTUpdate{
			Attributes: domain.NFTAttributes{
				Status:    u.NFTStatus,
				IssuedAt:  domain.FormatAttributeTime(u.NFTIssuedAt, s.now()),
				ExpiresAt: newExpiresAt.Format(domain.AttributeTimeLayout),
			},
		})
		if err == nil {
			err = s.repos.Users.SetExpiry(ctx, u.ID, newExpiresAt)
		}
		if err != nil {
			logger.Error("Failed to extend visa expiry", "wallet", u.WalletAddress, "error", err)
			result.fail(u.WalletAddress)
			continue
		}
		result.ok()
	}
	return result, nil
}

// UpdateEarnings applies each earnings figure and refreshes the holder's visa.
// It fails only when every update failed.
func (s *visaService) UpdateEarnings(ctx context.Context, updates []EarningsUpdate) (*EarningsResult, error) {
	result := &EarningsResult{Wallets: updates, FailedUpdates: []EarningsUpdate{}}
	for _, upd := range updates {
		if err := s.updateEarnings(ctx, upd); err != nil {
			logger.Error("Update earnings failed", "wallet", upd.Wallet, "error", err)
			result.FailedUpdates = append(result.FailedUpdates, upd)
		}
	}
	if len(updates) > 0 && len(result.FailedUpdates) == len(updates) {
		return result, fmt.Errorf("all earnings updates failed")
	}
	return result, nil
}

func (s *visaService) updateEarnings(ctx context.Context, upd EarningsUpdate) error {
	found, err := s.repos.Users.SetEarnings(ctx, upd.Wallet, upd.Earnings)
	if err != nil {
		return fmt.Errorf("failed to update earnings: %w", err)
	}
	if !found {
		return domain.Errorf(domain.ErrNotFound, "no user with wallet %s", upd.Wallet)
	}

	u, err := s.repos.Users.GetByWallet(ctx, upd.Wallet, nil)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if u.NFTID == nil {
		return fmt.Errorf("user nft id not found")
	}

	imageURL, err := s.images.Generate(ctx, domain.VisaImage{
		WalletAddress: u.WalletAddress,
		Name:          s.holderName(u.Name),
		Status:        domain.ImageStatusFor(u.NFTStatus),
		Earnings:      domain.FormatUSDC(upd.Earnings),
	})
	if err != nil {
		return fmt.Errorf("failed to generate visa image: %w", err)
	}

	now := s.now()
	if _, err := s.gateway.Update(ctx, *u.NFTID, domain.NFTUpdate{
		Image: imageURL,
		Attributes: domain.NFTAttributes{
			Status:    u.NFTStatus,
			IssuedAt:  domain.FormatAttributeTime(u.NFTIssuedAt, now),
			ExpiresAt: domain.FormatAttributeTime(u.NFTExpiresAt, now),
		},
	}); err != nil {
		return fmt.Errorf("failed to update nft: %w", err)
	}
	return nil
}

func (s *visaService) holderName(name string) string {
	if name == "" {
		return s.cfg.DefaultName
	}
	return name
}
