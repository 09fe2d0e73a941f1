package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/spec-kit/advisory-service/internal/domain"
)

const (
	pgUniqueViolation  = "23505"
	pgInvalidTextInput = "22P02"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetByEmailForUpdate locks the row until the surrounding transaction ends.
	GetByEmailForUpdate(ctx context.Context, email string) (*domain.User, error)
}

// UserStore hands out repositories and scopes read-modify-write sequences.
type UserStore interface {
	Users() UserRepository
	RunInTx(ctx context.Context, fn func(ctx context.Context, users UserRepository) error) error
}

// DBTX is the subset of pgx used by the repository. Both *pgxpool.Pool and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner is a DBTX that can open transactions.
type TxBeginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresUserStore is the pgx-backed UserStore.
type PostgresUserStore struct {
	db TxBeginner
}

// NewPostgresUserStore returns a Postgres-backed implementation.
func NewPostgresUserStore(db TxBeginner) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

// Users returns a repository running outside any transaction.
func (s *PostgresUserStore) Users() UserRepository {
	return &userRepository{db: s.db}
}

// RunInTx runs fn in a transaction, committing on success and rolling back on error or panic.
func (s *PostgresUserStore) RunInTx(ctx context.Context, fn func(ctx context.Context, users UserRepository) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		err = tx.Commit(ctx)
	}()

	return fn(ctx, &userRepository{db: tx})
}

type userRepository struct {
	db DBTX
}

const selectUser = `
        SELECT id, email, full_name, role, password_hash, is_verified, otp_code, otp_expires, created_at, updated_at
        FROM users`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, email, full_name, role, password_hash, is_verified, otp_code, otp_expires)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at, updated_at`

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = domain.NormalizeEmail(user.Email)

	err := r.db.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.FullName,
		user.Role,
		user.PasswordHash,
		user.IsVerified,
		user.OTPCode,
		user.OTPExpires,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET full_name=$1, role=$2, password_hash=$3, is_verified=$4,
            otp_code=$5, otp_expires=$6, updated_at=NOW()
        WHERE id=$7`

	cmd, err := r.db.Exec(ctx, query,
		user.FullName,
		user.Role,
		user.PasswordHash,
		user.IsVerified,
		user.OTPCode,
		user.OTPExpires,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, selectUser+` WHERE id=$1`, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, selectUser+` WHERE email=$1`, domain.NormalizeEmail(email)))
}

func (r *userRepository) GetByEmailForUpdate(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRow(ctx, selectUser+` WHERE email=$1 FOR UPDATE`, domain.NormalizeEmail(email)))
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user       domain.User
		otpCode    pgtype.Text
		otpExpires pgtype.Timestamptz
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FullName,
		&user.Role,
		&user.PasswordHash,
		&user.IsVerified,
		&otpCode,
		&otpExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		// ids that are not uuids can never match a row
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextInput {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	if otpCode.Valid && otpExpires.Valid {
		user.SetChallenge(otpCode.String, otpExpires.Time)
	}
	return &user, nil
}
