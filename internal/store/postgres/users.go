package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"forkfast/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userSecretColumns = `
	id, name, email, password_hash, password_history,
	is_account_verified, is_admin,
	verify_otp_hash, verify_otp_expire_at, verify_otp_attempts,
	reset_otp_hash, reset_otp_expire_at, reset_otp_attempts,
	failed_login_attempts, lock_until,
	created_at, updated_at
`

type UsersStore struct {
	pool *pgxpool.Pool
}

func NewUsersStore(pool *pgxpool.Pool) *UsersStore {
	return &UsersStore{pool: pool}
}

func (s *UsersStore) CreateUser(ctx context.Context, name, email, passwordHash, verifyOTPHash string, verifyOTPExpireAt time.Time) (domain.User, error) {
	const q = `
		INSERT INTO users (name, email, password_hash, password_history, verify_otp_hash, verify_otp_expire_at)
		VALUES ($1, lower($2), $3, ARRAY[$3], $4, $5)
		RETURNING id, name, email, is_account_verified, is_admin, created_at, updated_at
	`

	var (
		u      domain.User
		idUUID pgtype.UUID
	)
	err := s.pool.QueryRow(ctx, q, name, email, passwordHash, verifyOTPHash, verifyOTPExpireAt).Scan(
		&idUUID,
		&u.Name,
		&u.Email,
		&u.IsAccountVerified,
		&u.IsAdmin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		var pgerr *pgconn.PgError
		if errors.As(err, &pgerr) && pgerr.Code == "23505" {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	u.ID = uuidOrEmpty(idUUID)
	return u, nil
}

func (s *UsersStore) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.User{}, domain.ErrNotFound
	}

	const q = `
		SELECT id, name, email, is_account_verified, is_admin, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var (
		u      domain.User
		idUUID pgtype.UUID
	)
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&idUUID,
		&u.Name,
		&u.Email,
		&u.IsAccountVerified,
		&u.IsAdmin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}

	u.ID = uuidOrEmpty(idUUID)
	return u, nil
}

func (s *UsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithSecrets, error) {
	const q = `SELECT ` + userSecretColumns + ` FROM users WHERE email = lower($1)`
	return s.getSecrets(ctx, q, email)
}

func (s *UsersStore) GetUserSecretsByID(ctx context.Context, id string) (domain.UserWithSecrets, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.UserWithSecrets{}, domain.ErrNotFound
	}
	const q = `SELECT ` + userSecretColumns + ` FROM users WHERE id = $1`
	return s.getSecrets(ctx, q, id)
}

func (s *UsersStore) getSecrets(ctx context.Context, q string, arg any) (domain.UserWithSecrets, error) {
	var (
		u         domain.UserWithSecrets
		idUUID    pgtype.UUID
		history   pgtype.FlatArray[string]
		verifyExp pgtype.Timestamptz
		resetExp  pgtype.Timestamptz
		lockUntil pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, q, arg).Scan(
		&idUUID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&history,
		&u.IsAccountVerified,
		&u.IsAdmin,
		&u.VerifyOTPHash,
		&verifyExp,
		&u.VerifyOTPAttempts,
		&u.ResetOTPHash,
		&resetExp,
		&u.ResetOTPAttempts,
		&u.FailedLoginAttempts,
		&lockUntil,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserWithSecrets{}, domain.ErrNotFound
		}
		return domain.UserWithSecrets{}, fmt.Errorf("get user secrets: %w", err)
	}

	u.ID = uuidOrEmpty(idUUID)
	u.PasswordHistory = textArrayOrEmpty(history)
	u.VerifyOTPExpireAt = timeOrZero(verifyExp)
	u.ResetOTPExpireAt = timeOrZero(resetExp)
	u.LockUntil = timeOrZero(lockUntil)
	return u, nil
}

// SetVerifyOTP stores a freshly issued verification code hash and resets the
// attempts counter.
func (s *UsersStore) SetVerifyOTP(ctx context.Context, userID, otpHash string, expiresAt time.Time) error {
	const q = `
		UPDATE users
		SET verify_otp_hash = $2, verify_otp_expire_at = $3, verify_otp_attempts = 0, updated_at = now()
		WHERE id = $1
	`
	return s.exec(ctx, "set verify otp", q, userID, otpHash, expiresAt)
}

// UpdateVerifyOTPState persists an attempts increment; when clear is set the
// stored hash and expiry are dropped so the user must request a new code.
func (s *UsersStore) UpdateVerifyOTPState(ctx context.Context, userID string, attempts int, clear bool) error {
	if clear {
		const q = `
			UPDATE users
			SET verify_otp_hash = '', verify_otp_expire_at = NULL, verify_otp_attempts = $2, updated_at = now()
			WHERE id = $1
		`
		return s.exec(ctx, "clear verify otp", q, userID, attempts)
	}
	const q = `
		UPDATE users SET verify_otp_attempts = $2, updated_at = now() WHERE id = $1
	`
	return s.exec(ctx, "update verify otp attempts", q, userID, attempts)
}

// MarkAccountVerified flips the verified flag and consumes the OTP in one
// statement.
func (s *UsersStore) MarkAccountVerified(ctx context.Context, userID string) error {
	const q = `
		UPDATE users
		SET is_account_verified = true,
		    verify_otp_hash = '', verify_otp_expire_at = NULL, verify_otp_attempts = 0,
		    updated_at = now()
		WHERE id = $1
	`
	return s.exec(ctx, "mark account verified", q, userID)
}

func (s *UsersStore) SetResetOTP(ctx context.Context, userID, otpHash string, expiresAt time.Time) error {
	const q = `
		UPDATE users
		SET reset_otp_hash = $2, reset_otp_expire_at = $3, reset_otp_attempts = 0, updated_at = now()
		WHERE id = $1
	`
	return s.exec(ctx, "set reset otp", q, userID, otpHash, expiresAt)
}

func (s *UsersStore) UpdateResetOTPState(ctx context.Context, userID string, attempts int, clear bool) error {
	if clear {
		const q = `
			UPDATE users
			SET reset_otp_hash = '', reset_otp_expire_at = NULL, reset_otp_attempts = $2, updated_at = now()
			WHERE id = $1
		`
		return s.exec(ctx, "clear reset otp", q, userID, attempts)
	}
	const q = `
		UPDATE users SET reset_otp_attempts = $2, updated_at = now() WHERE id = $1
	`
	return s.exec(ctx, "update reset otp attempts", q, userID, attempts)
}

// SetPassword replaces the password hash, pushes it to the front of the
// truncated history and consumes any outstanding reset OTP.
func (s *UsersStore) SetPassword(ctx context.Context, userID, passwordHash string, history []string) error {
	const q = `
		UPDATE users
		SET password_hash = $2, password_history = $3,
		    reset_otp_hash = '', reset_otp_expire_at = NULL, reset_otp_attempts = 0,
		    updated_at = now()
		WHERE id = $1
	`
	return s.exec(ctx, "set password", q, userID, passwordHash, history)
}

// RecordLoginFailure bumps the failed-attempt counter in a single conditional
// UPDATE so concurrent failures cannot read the same stale count. Once the
// counter reaches maxAttempts the row is locked until lockUntil and the
// counter resets to zero. Returns whether this failure triggered the lock.
func (s *UsersStore) RecordLoginFailure(ctx context.Context, userID string, maxAttempts int, lockUntil time.Time) (bool, error) {
	const q = `
		UPDATE users
		SET failed_login_attempts = CASE WHEN failed_login_attempts + 1 >= $2 THEN 0 ELSE failed_login_attempts + 1 END,
		    lock_until            = CASE WHEN failed_login_attempts + 1 >= $2 THEN $3 ELSE lock_until END,
		    updated_at = now()
		WHERE id = $1
		RETURNING failed_login_attempts = 0
	`

	var locked bool
	err := s.pool.QueryRow(ctx, q, userID, maxAttempts, lockUntil).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrNotFound
		}
		return false, fmt.Errorf("record login failure: %w", err)
	}
	return locked, nil
}

// ResetLoginState clears the failure counter and lock after a successful
// login.
func (s *UsersStore) ResetLoginState(ctx context.Context, userID string) error {
	const q = `
		UPDATE users
		SET failed_login_attempts = 0, lock_until = NULL, updated_at = now()
		WHERE id = $1
	`
	return s.exec(ctx, "reset login state", q, userID)
}

func (s *UsersStore) exec(ctx context.Context, op, q string, args ...any) error {
	tag, err := s.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
