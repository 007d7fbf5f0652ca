package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"forkfast/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SessionsStore struct {
	pool *pgxpool.Pool
}

func NewSessionsStore(pool *pgxpool.Pool) *SessionsStore {
	return &SessionsStore{pool: pool}
}

func (s *SessionsStore) CreateSession(ctx context.Context, userID string, expiresAt time.Time, ip, userAgent string) (string, error) {
	const q = `
		INSERT INTO sessions (user_id, expires_at, ip, user_agent)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var idUUID pgtype.UUID
	err := s.pool.QueryRow(ctx, q, userID, expiresAt, ip, userAgent).Scan(&idUUID)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	return uuidOrEmpty(idUUID), nil
}

// GetSession returns the raw session row, revoked or expired included; the
// caller decides what a dead session means for its flow.
func (s *SessionsStore) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return domain.Session{}, domain.ErrNotFound
	}

	const q = `
		SELECT id, user_id, user_agent, ip, created_at, expires_at, revoked, revoked_at, revoked_reason
		FROM sessions
		WHERE id = $1
	`

	var (
		sess      domain.Session
		idUUID    pgtype.UUID
		userIDUU  pgtype.UUID
		revokedTS pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, q, sessionID).Scan(
		&idUUID,
		&userIDUU,
		&sess.UserAgent,
		&sess.IP,
		&sess.CreatedAt,
		&sess.ExpiresAt,
		&sess.Revoked,
		&revokedTS,
		&sess.RevokedReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}

	sess.ID = uuidOrEmpty(idUUID)
	sess.UserID = uuidOrEmpty(userIDUU)
	sess.RevokedAt = timestamptzPtr(revokedTS)
	return sess, nil
}

func (s *SessionsStore) RevokeSession(ctx context.Context, sessionID, reason string, when time.Time) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return domain.ErrNotFound
	}

	const q = `
		UPDATE sessions
		SET revoked = true, revoked_at = $2, revoked_reason = $3
		WHERE id = $1 AND revoked = false
	`

	_, err := s.pool.Exec(ctx, q, sessionID, when, reason)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeUserSessions marks every live session of a user revoked and returns
// how many were affected.
func (s *SessionsStore) RevokeUserSessions(ctx context.Context, userID, reason string, when time.Time) (int64, error) {
	const q = `
		UPDATE sessions
		SET revoked = true, revoked_at = $2, revoked_reason = $3
		WHERE user_id = $1 AND revoked = false
	`

	tag, err := s.pool.Exec(ctx, q, userID, when, reason)
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
