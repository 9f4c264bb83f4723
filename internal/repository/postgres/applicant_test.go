package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"business-visa-backend/internal/domain"
	"business-visa-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 3, 5, 13, 30, 0, 0, time.UTC)

var applicantCols = []string{"id", "wallet_address", "name", "email", "discord_id", "country", "status", "created_at", "updated_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestApplicantRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewApplicantRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("Success", func(t *testing.T) {
		a := &domain.Applicant{WalletAddress: "w1", Name: "Alice", Email: "a@example.com", DiscordID: "alice#1", Country: "PT"}

		mock.ExpectQuery("INSERT INTO applicants").
			WithArgs("w1", "Alice", "a@example.com", "alice#1", "PT", "pending").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(5, now, now))

		require.NoError(t, repo.Create(ctx, a))
		assert.Equal(t, int64(5), a.ID)
		assert.Equal(t, domain.ApplicantStatusPending, a.Status)
	})

	t.Run("UniqueViolation", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO applicants").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "applicants_email_key"})

		err := repo.Create(ctx, &domain.Applicant{Email: "a@example.com"})
		assert.True(t, errors.Is(err, domain.ErrConflict))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepository_FindByEmailOrWallet(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewApplicantRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM applicants\s+WHERE LOWER\(email\) = LOWER\(\$1\) OR wallet_address = \$2`).
			WithArgs("a@example.com", "w1").
			WillReturnRows(sqlmock.NewRows(applicantCols).
				AddRow(1, "w1", "Alice", "a@example.com", "", "PT", "accepted", now, now))

		a, err := repo.FindByEmailOrWallet(ctx, "a@example.com", "w1")
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Equal(t, domain.ApplicantStatusAccepted, a.Status)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM applicants`).
			WithArgs("b@example.com", "w2").
			WillReturnRows(sqlmock.NewRows(applicantCols))

		a, err := repo.FindByEmailOrWallet(ctx, "b@example.com", "w2")
		assert.NoError(t, err)
		assert.Nil(t, a)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicantRepository_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewApplicantRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM applicants WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnError(sql.ErrNoRows)

	a, err := repo.GetByID(context.Background(), 9)
	assert.Nil(t, a)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestApplicantRepository_List(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewApplicantRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM applicants ORDER BY created_at DESC`).
		WillReturnRows(sqlmock.NewRows(applicantCols).
			AddRow(2, "w2", "Bob", "b@example.com", "", "", "pending", now, now).
			AddRow(1, "w1", "Alice", "a@example.com", "", "", "rejected", now, now))

	list, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].ID)
	assert.Equal(t, domain.ApplicantStatusRejected, list[1].Status)
}

func TestApplicantRepository_UpdateStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewApplicantRepository(db)
	ctx := context.Background()

	mock.ExpectExec(`UPDATE applicants SET status = \$2, updated_at = NOW\(\) WHERE id = \$1 AND status = 'pending'`).
		WithArgs(int64(3), "accepted").
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.UpdateStatus(ctx, 3, domain.ApplicantStatusAccepted)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(`UPDATE applicants SET status`).
		WithArgs(int64(3), "rejected").
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.UpdateStatus(ctx, 3, domain.ApplicantStatusRejected)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}
