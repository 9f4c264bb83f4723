package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"business-visa-backend/internal/domain"
	"business-visa-backend/internal/logger"
	"business-visa-backend/internal/repository"
)

const acceptedApplicantColumns = `id, wallet_address, name, email, discord_id, country,
	nft_id, nft_issued_at, nft_expires_at, COALESCE(nft_mint_address, ''), COALESCE(nft_claim_link, ''),
	has_claimed, mint_state, mint_requested_at, created_at, updated_at`

type acceptedApplicantRepository struct {
	db DBTX
}

func NewAcceptedApplicantRepository(db DBTX) repository.AcceptedApplicantRepository {
	return &acceptedApplicantRepository{db: db}
}

func scanAcceptedApplicant(row rowScanner) (*domain.AcceptedApplicant, error) {
	a := &domain.AcceptedApplicant{}
	var nftID sql.NullInt64
	var issuedAt, expiresAt, requestedAt sql.NullTime
	err := row.Scan(
		&a.ID, &a.WalletAddress, &a.Name, &a.Email, &a.DiscordID, &a.Country,
		&nftID, &issuedAt, &expiresAt, &a.NFTMintAddress, &a.NFTClaimLink,
		&a.HasClaimed, &a.MintState, &requestedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.NFTID = int64Ptr(nftID)
	a.NFTIssuedAt = timePtr(issuedAt)
	a.NFTExpiresAt = timePtr(expiresAt)
	a.MintRequestedAt = timePtr(requestedAt)
	return a, nil
}

func (r *acceptedApplicantRepository) Create(ctx context.Context, a *domain.AcceptedApplicant) error {
	query := `INSERT INTO accepted_applicants (wallet_address, name, email, discord_id, country)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`
	logger.DatabaseCall("INSERT", "accepted_applicants", "email", a.Email)
	err := r.db.QueryRowContext(ctx, query, a.WalletAddress, a.Name, a.Email, a.DiscordID, a.Country).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return storeErr("insert accepted applicant", err)
	}
	return nil
}

func (r *acceptedApplicantRepository) GetByID(ctx context.Context, id int64) (*domain.AcceptedApplicant, error) {
	query := `SELECT ` + acceptedApplicantColumns + ` FROM accepted_applicants WHERE id = $1`
	a, err := scanAcceptedApplicant(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, storeErr("get accepted applicant", err)
	}
	return a, nil
}

func (r *acceptedApplicantRepository) GetByEmail(ctx context.Context, email string) (*domain.AcceptedApplicant, error) {
	query := `SELECT ` + acceptedApplicantColumns + ` FROM accepted_applicants WHERE LOWER(email) = LOWER($1)`
	a, err := scanAcceptedApplicant(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, storeErr("get accepted applicant by email", err)
	}
	return a, nil
}

func (r *acceptedApplicantRepository) ClaimMint(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error) {
	query := `UPDATE accepted_applicants
	          SET mint_state = 'requested', mint_requested_at = $2, updated_at = NOW()
	          WHERE id = $1 AND nft_id IS NULL
	            AND (mint_state = '' OR (mint_state = 'requested' AND mint_requested_at < $3))`
	return r.execOne(ctx, "claim mint", query, id, now, staleBefore)
}

func (r *acceptedApplicantRepository) ReleaseMint(ctx context.Context, id int64) error {
	query := `UPDATE accepted_applicants
	          SET mint_state = '', mint_requested_at = NULL, updated_at = NOW()
	          WHERE id = $1 AND nft_id IS NULL AND mint_state = 'requested'`
	_, err := r.execOne(ctx, "release mint", query, id)
	return err
}

func (r *acceptedApplicantRepository) MarkMintSubmitted(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE accepted_applicants SET mint_state = 'submitted', updated_at = NOW()
	          WHERE id = $1 AND nft_id IS NULL AND mint_state = 'requested'`
	return r.execOne(ctx, "mark mint submitted", query, id)
}

// SaveMint persists the gateway result. The nft_id guard keeps a second writer
// from replacing an NFT that is already recorded.
func (r *acceptedApplicantRepository) SaveMint(ctx context.Context, a *domain.AcceptedApplicant) error {
	query := `UPDATE accepted_applicants
	          SET nft_id = $2, nft_issued_at = $3, nft_expires_at = $4, nft_mint_address = $5,
	              nft_claim_link = $6, has_claimed = FALSE, mint_state = 'minted', updated_at = NOW()
	          WHERE id = $1 AND nft_id IS NULL`
	ok, err := r.execOne(ctx, "save mint", query,
		a.ID, nullInt64(a.NFTID), nullTime(a.NFTIssuedAt), nullTime(a.NFTExpiresAt),
		nullString(a.NFTMintAddress), nullString(a.NFTClaimLink))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("save mint: %w: nft already recorded", domain.ErrConflict)
	}
	a.HasClaimed = false
	a.MintState = domain.MintStateMinted
	return nil
}

func (r *acceptedApplicantRepository) MarkMintNotified(ctx context.Context, id int64) error {
	query := `UPDATE accepted_applicants SET mint_state = 'notified', updated_at = NOW()
	          WHERE id = $1 AND mint_state = 'minted'`
	_, err := r.execOne(ctx, "mark mint notified", query, id)
	return err
}

func (r *acceptedApplicantRepository) ListPendingMints(ctx context.Context, staleBefore time.Time) ([]domain.AcceptedApplicant, error) {
	query := `SELECT ` + acceptedApplicantColumns + ` FROM accepted_applicants
	          WHERE nft_id IS NULL
	            AND (mint_state = '' OR (mint_state = 'requested' AND mint_requested_at < $1))
	          ORDER BY id`
	return r.list(ctx, query, staleBefore)
}

func (r *acceptedApplicantRepository) ListUnnotifiedMints(ctx context.Context) ([]domain.AcceptedApplicant, error) {
	query := `SELECT ` + acceptedApplicantColumns + ` FROM accepted_applicants
	          WHERE nft_id IS NOT NULL AND mint_state = 'minted' ORDER BY id`
	return r.list(ctx, query)
}

func (r *acceptedApplicantRepository) ListSubmittedMints(ctx context.Context, staleBefore time.Time) ([]domain.AcceptedApplicant, error) {
	query := `SELECT ` + acceptedApplicantColumns + ` FROM accepted_applicants
	          WHERE nft_id IS NULL AND mint_state = 'submitted' AND mint_requested_at < $1
	          ORDER BY id`
	return r.list(ctx, query, staleBefore)
}

func (r *acceptedApplicantRepository) ListUnclaimed(ctx context.Context) ([]domain.AcceptedApplicant, error) {
	query := `SELECT ` + acceptedApplicantColumns + ` FROM accepted_applicants
	          WHERE nft_claim_link IS NOT NULL AND has_claimed = FALSE ORDER BY id`
	return r.list(ctx, query)
}

func (r *acceptedApplicantRepository) MarkClaimed(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE accepted_applicants SET has_claimed = TRUE, updated_at = NOW()
	          WHERE id = $1 AND has_claimed = FALSE`
	return r.execOne(ctx, "mark claimed", query, id)
}

func (r *acceptedApplicantRepository) list(ctx context.Context, query string, args ...any) ([]domain.AcceptedApplicant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list accepted applicants", err)
	}
	defer rows.Close()

	var out []domain.AcceptedApplicant
	for rows.Next() {
		a, err := scanAcceptedApplicant(rows)
		if err != nil {
			return nil, storeErr("scan accepted applicant", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list accepted applicants", err)
	}
	return out, nil
}

func (r *acceptedApplicantRepository) execOne(ctx context.Context, op, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, storeErr(op, err)
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult(op, n, err, "table", "accepted_applicants")
	if err != nil {
		return false, storeErr(op, err)
	}
	return n == 1, nil
}
