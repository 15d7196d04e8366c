package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/walletvault/walletvault/pkg/auth"
)

// RevokeToken records a revoked token. Revoking a token twice is a no-op.
func (s *Store) RevokeToken(ctx context.Context, token auth.RevokedToken) (err error) {
	start := time.Now()
	defer func() { s.observe("revoke_token", start, err) }()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (token, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (token) DO NOTHING`,
		token.Token, token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert revoked token: %w", err)
	}
	return nil
}

// IsTokenRevoked reports whether the token is in the revocation list.
func (s *Store) IsTokenRevoked(ctx context.Context, token string) (revoked bool, err error) {
	start := time.Now()
	defer func() { s.observe("is_token_revoked", start, err) }()

	err = s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token = $1)`, token,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("failed to query revoked token: %w", err)
	}
	return revoked, nil
}

// DeleteExpiredTokens removes revocation entries whose expiry is before
// the given time and returns how many were removed.
func (s *Store) DeleteExpiredTokens(ctx context.Context, before time.Time) (deleted int64, err error) {
	start := time.Now()
	defer func() { s.observe("delete_expired_tokens", start, err) }()

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM revoked_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	deleted, err = result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted tokens: %w", err)
	}
	return deleted, nil
}
