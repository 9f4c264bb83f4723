package postgres

import (
	"context"
	"database/sql"
	"time"

	"business-visa-backend/internal/domain"
	"business-visa-backend/internal/logger"
	"business-visa-backend/internal/repository"
)

const userColumns = `id, wallet_address, name, email, profile_image, discord_id, country, role, nft_type,
	nft_id, COALESCE(nft_status, ''), nft_issued_at, nft_expires_at, nft_renewed_at, earnings, created_at, updated_at`

type userRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) repository.UserRepository {
	return &userRepository{db: db}
}

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	var nftID sql.NullInt64
	var issuedAt, expiresAt, renewedAt sql.NullTime
	err := row.Scan(
		&u.ID, &u.WalletAddress, &u.Name, &u.Email, &u.ProfileImage, &u.DiscordID, &u.Country, &u.Role, &u.NFTType,
		&nftID, &u.NFTStatus, &issuedAt, &expiresAt, &renewedAt, &u.Earnings, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.NFTID = int64Ptr(nftID)
	u.NFTIssuedAt = timePtr(issuedAt)
	u.NFTExpiresAt = timePtr(expiresAt)
	u.NFTRenewedAt = timePtr(renewedAt)
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (wallet_address, name, email, profile_image, discord_id, country, role, nft_type,
	              nft_id, nft_status, nft_issued_at, nft_expires_at, earnings)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id, created_at, updated_at`
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	logger.DatabaseCall("INSERT", "users", "email", u.Email)
	err := r.db.QueryRowContext(ctx, query,
		u.WalletAddress, u.Name, u.Email, u.ProfileImage, u.DiscordID, u.Country, u.Role, u.NFTType,
		nullInt64(u.NFTID), nullString(string(u.NFTStatus)), nullTime(u.NFTIssuedAt), nullTime(u.NFTExpiresAt), u.Earnings,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return storeErr("insert user", err)
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, storeErr("get user", err)
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, storeErr("get user by email", err)
	}
	return u, nil
}

func (r *userRepository) GetByWallet(ctx context.Context, walletAddress string, role *domain.Role) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE wallet_address = $1`
	args := []any{walletAddress}
	if role != nil {
		query += ` AND role = $2`
		args = append(args, *role)
	}
	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, storeErr("get user by wallet", err)
	}
	return u, nil
}

func (r *userRepository) List(ctx context.Context, role *domain.Role) ([]domain.User, error) {
	if role != nil {
		query := `SELECT ` + userColumns + ` FROM users WHERE role = $1 ORDER BY created_at DESC`
		return r.list(ctx, query, *role)
	}
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	return r.list(ctx, query)
}

func (r *userRepository) ListActive(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
	          WHERE nft_type = 'business' AND nft_status = 'active' ORDER BY id`
	return r.list(ctx, query)
}

func (r *userRepository) ListExpired(ctx context.Context, now time.Time) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
	          WHERE nft_type = 'business' AND nft_status = 'active' AND nft_expires_at <= $1 ORDER BY id`
	return r.list(ctx, query, now)
}

func (r *userRepository) SetVisaStatus(ctx context.Context, id int64, status domain.VisaStatus) error {
	query := `UPDATE users SET nft_status = $2, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, "set visa status", query, id, status)
}

func (r *userRepository) Renew(ctx context.Context, id int64, renewedAt, expiresAt time.Time) error {
	query := `UPDATE users SET nft_status = 'active', nft_renewed_at = $2, nft_expires_at = $3, updated_at = NOW()
	          WHERE id = $1`
	return r.exec(ctx, "renew visa", query, id, renewedAt, expiresAt)
}

func (r *userRepository) SetExpiry(ctx context.Context, id int64, expiresAt time.Time) error {
	query := `UPDATE users SET nft_expires_at = $2, updated_at = NOW() WHERE id = $1`
	return r.exec(ctx, "set visa expiry", query, id, expiresAt)
}

func (r *userRepository) SetEarnings(ctx context.Context, walletAddress string, earnings float64) (bool, error) {
	query := `UPDATE users SET earnings = $2, updated_at = NOW() WHERE wallet_address = $1`
	res, err := r.db.ExecContext(ctx, query, walletAddress, earnings)
	if err != nil {
		return false, storeErr("set earnings", err)
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult("set earnings", n, err, "wallet", walletAddress)
	if err != nil {
		return false, storeErr("set earnings", err)
	}
	return n > 0, nil
}

func (r *userRepository) exec(ctx context.Context, op, query string, id int64, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return storeErr(op, err)
	}
	n, err := res.RowsAffected()
	logger.DatabaseResult(op, n, err, "user_id", id)
	if err != nil {
		return storeErr(op, err)
	}
	if n == 0 {
		return storeErr(op, sql.ErrNoRows)
	}
	return nil
}

func (r *userRepository) list(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, storeErr("scan user", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list users", err)
	}
	return users, nil
}
