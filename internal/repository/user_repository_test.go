package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/advisory-service/internal/domain"
)

var userRowColumns = []string{
	"id", "email", "full_name", "role", "password_hash", "is_verified",
	"otp_code", "otp_expires", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*PostgresUserStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresUserStore(mock), mock
}

func TestPostgresUserStore_Create(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(pgxmock.AnyArg(), "a@x.com", "A", "student", "hash", false, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	u := &domain.User{Email: "A@X.com", FullName: "A", Role: "student", PasswordHash: "hash"}
	require.NoError(t, store.Users().Create(context.Background(), u))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "a@x.com", u.Email)
	assert.Equal(t, now, u.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStore_CreateDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

	err := store.Users().Create(context.Background(), &domain.User{Email: "a@x.com"})
	require.ErrorIs(t, err, ErrDuplicateEmail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStore_GetByEmailNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=$1")).
		WithArgs("a@x.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Users().GetByEmail(context.Background(), " A@x.com ")
	require.ErrorIs(t, err, ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStore_GetByIDMalformedUUID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=$1")).
		WithArgs("not-a-uuid").
		WillReturnError(&pgconn.PgError{Code: pgInvalidTextInput})

	_, err := store.Users().GetByID(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestPostgresUserStore_GetByEmailForUpdateScansChallenge(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	expires := now.Add(10 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE email=$1 FOR UPDATE")).
		WithArgs("a@x.com").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow("7d1c7b1e-0000-4000-8000-000000000001", "a@x.com", "A", "student", "hash", false, "042042", expires, now, now))
	mock.ExpectCommit()

	var got *domain.User
	err := store.RunInTx(context.Background(), func(ctx context.Context, users UserRepository) error {
		var err error
		got, err = users.GetByEmailForUpdate(ctx, "a@x.com")
		return err
	})
	require.NoError(t, err)
	require.True(t, got.HasPendingChallenge())
	assert.Equal(t, "042042", *got.OTPCode)
	assert.True(t, expires.Equal(*got.OTPExpires))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStore_UpdateMissingRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.Users().Update(context.Background(), &domain.User{ID: "x"})
	require.ErrorIs(t, err, ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStore_RunInTxRollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)
	boom := errors.New("mail down")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET")).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectRollback()

	err := store.RunInTx(context.Background(), func(ctx context.Context, users UserRepository) error {
		if err := users.Update(ctx, &domain.User{ID: "x"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserStore_RunInTxBeginError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin().WillReturnError(errors.New("pool closed"))

	err := store.RunInTx(context.Background(), func(context.Context, UserRepository) error {
		t.Fatal("fn must not run")
		return nil
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
