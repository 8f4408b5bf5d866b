// ABOUTME: Store methods for refresh token persistence (JTI rotation chain).
// ABOUTME: Tokens are marked used rather than deleted so theft is detectable.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RefreshToken is a refresh token row keyed by JTI.
type RefreshToken struct {
	JTI           uuid.UUID
	UserID        uuid.UUID
	TokenVersion  int32
	ExpiresAt     time.Time
	UsedAt        *time.Time
	ReplacedByJTI *uuid.UUID
	CreatedAt     time.Time
}

// CreateRefreshToken inserts a refresh token row.
func (s *Store) CreateRefreshToken(ctx context.Context, jti, userID uuid.UUID, tokenVersion int, expiresAt time.Time) error {
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (jti, user_id, token_version, expires_at)
		VALUES ($1, $2, $3, $4)`,
		jti, userID, tokenVersion, expiresAt); err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}
	return nil
}

// GetRefreshToken returns the token row for jti, or (nil, nil) if unknown.
func (s *Store) GetRefreshToken(ctx context.Context, jti uuid.UUID) (*RefreshToken, error) {
	var t RefreshToken
	err := s.pool.QueryRow(ctx, `
		SELECT jti, user_id, token_version, expires_at, used_at, replaced_by_jti, created_at
		FROM refresh_tokens WHERE jti = $1`, jti).
		Scan(&t.JTI, &t.UserID, &t.TokenVersion, &t.ExpiresAt, &t.UsedAt, &t.ReplacedByJTI, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	return &t, nil
}

// MarkRefreshTokenUsed sets used_at = now() and records the replacement JTI.
func (s *Store) MarkRefreshTokenUsed(ctx context.Context, jti, replacedBy uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `
		UPDATE refresh_tokens SET used_at = now(), replaced_by_jti = $2
		WHERE jti = $1`, jti, replacedBy); err != nil {
		return fmt.Errorf("mark refresh token used: %w", err)
	}
	return nil
}

// DeleteExpiredRefreshTokens removes tokens past their expiry. Returns the
// number of rows removed; called periodically by the worker.
func (s *Store) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
