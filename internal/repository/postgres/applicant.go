package postgres

import (
	"context"
	"database/sql"
	"errors"

	"business-visa-backend/internal/domain"
	"business-visa-backend/internal/logger"
	"business-visa-backend/internal/repository"
)

const applicantColumns = `id, wallet_address, name, email, discord_id, country, status, created_at, updated_at`

type applicantRepository struct {
	db DBTX
}

func NewApplicantRepository(db DBTX) repository.ApplicantRepository {
	return &applicantRepository{db: db}
}

func scanApplicant(row rowScanner) (*domain.Applicant, error) {
	a := &domain.Applicant{}
	if err := row.Scan(&a.ID, &a.WalletAddress, &a.Name, &a.Email, &a.DiscordID, &a.Country, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *applicantRepository) Create(ctx context.Context, a *domain.Applicant) error {
	query := `INSERT INTO applicants (wallet_address, name, email, discord_id, country, status)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at, updated_at`
	if a.Status == "" {
		a.Status = domain.ApplicantStatusPending
	}
	logger.DatabaseCall("INSERT", "applicants", "email", a.Email)
	err := r.db.QueryRowContext(ctx, query, a.WalletAddress, a.Name, a.Email, a.DiscordID, a.Country, a.Status).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return storeErr("insert applicant", err)
	}
	return nil
}

func (r *applicantRepository) GetByID(ctx context.Context, id int64) (*domain.Applicant, error) {
	query := `SELECT ` + applicantColumns + ` FROM applicants WHERE id = $1`
	a, err := scanApplicant(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, storeErr("get applicant", err)
	}
	return a, nil
}

func (r *applicantRepository) FindByEmailOrWallet(ctx context.Context, email, walletAddress string) (*domain.Applicant, error) {
	query := `SELECT ` + applicantColumns + ` FROM applicants
	          WHERE LOWER(email) = LOWER($1) OR wallet_address = $2
	          ORDER BY id LIMIT 1`
	a, err := scanApplicant(r.db.QueryRowContext(ctx, query, email, walletAddress))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("find applicant", err)
	}
	return a, nil
}

func (r *applicantRepository) List(ctx context.Context) ([]domain.Applicant, error) {
	query := `SELECT ` + applicantColumns + ` FROM applicants ORDER BY created_at DESC`
	return r.list(ctx, query)
}

func (r *applicantRepository) ListByStatus(ctx context.Context, status domain.ApplicantStatus) ([]domain.Applicant, error) {
	query := `SELECT ` + applicantColumns + ` FROM applicants WHERE status = $1 ORDER BY id`
	return r.list(ctx, query, status)
}

func (r *applicantRepository) list(ctx context.Context, query string, args ...any) ([]domain.Applicant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list applicants", err)
	}
	defer rows.Close()

	var applicants []domain.Applicant
	for rows.Next() {
		a, err := scanApplicant(rows)
		if err != nil {
			return nil, storeErr("scan applicant", err)
		}
		applicants = append(applicants, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list applicants", err)
	}
	return applicants, nil
}

func (r *applicantRepository) UpdateStatus(ctx context.Context, id int64, status domain.ApplicantStatus) (bool, error) {
	query := `UPDATE applicants SET status = $2, updated_at = NOW() WHERE id = $1 AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return false, storeErr("update applicant status", err)
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("UPDATE applicants", n, err, "id", id, "status", status)
	if err != nil {
		return false, storeErr("update applicant status", err)
	}
	return n == 1, nil
}
