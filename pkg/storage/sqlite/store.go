// Package sqlite implements the user directory, revocation store, and
// wallet store on SQLite. It backs single-node deployments and the
// end-to-end tests; the query surface mirrors the postgres package.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/walletvault/walletvault/pkg/auth"
	"github.com/walletvault/walletvault/pkg/observability"
	"github.com/walletvault/walletvault/pkg/storage"
	"github.com/walletvault/walletvault/pkg/wallet"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	first_name    TEXT NOT NULL,
	last_name     TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
	token      TEXT PRIMARY KEY,
	expires_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_revoked_tokens_expires_at ON revoked_tokens (expires_at);

CREATE TABLE IF NOT EXISTS wallets (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	tag        TEXT NOT NULL DEFAULT '',
	chain      TEXT NOT NULL,
	address    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (user_id, chain, address)
);

CREATE INDEX IF NOT EXISTS idx_wallets_user_id ON wallets (user_id);
`

// Store implements the user directory, revocation store, and wallet store
// on a SQLite database file. Pass ":memory:" for an in-memory database.
type Store struct {
	db      *sql.DB
	metrics *observability.Metrics
}

// StoreOption customizes a Store
type StoreOption func(*Store)

// WithMetrics records per-operation counters and latencies
func WithMetrics(metrics *observability.Metrics) StoreOption {
	return func(s *Store) { s.metrics = metrics }
}

// Open opens the database file, applies the schema, and returns the store.
func Open(path string, opts ...StoreOption) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers; a single connection avoids busy errors
	// under concurrent use.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DB exposes the underlying handle for health checks
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database handle
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) observe(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveStorageOperation(operation, "sqlite", status, time.Since(start))
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}

// CreateUser inserts a new user. A duplicate email surfaces as
// storage.ErrAlreadyExists.
func (s *Store) CreateUser(ctx context.Context, user *auth.User) (err error) {
	start := time.Now()
	defer func() { s.observe("create_user", start, err) }()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, first_name, last_name, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.FirstName, user.LastName, user.PasswordHash,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByEmail returns the user with the given email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (user *auth.User, err error) {
	start := time.Now()
	defer func() { s.observe("get_user_by_email", start, err) }()

	user, err = scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, password_hash, created_at, updated_at
		FROM users WHERE email = ?`, email))
	return user, err
}

// GetUserByID returns the user with the given ID.
func (s *Store) GetUserByID(ctx context.Context, id string) (user *auth.User, err error) {
	start := time.Now()
	defer func() { s.observe("get_user_by_id", start, err) }()

	user, err = scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, password_hash, created_at, updated_at
		FROM users WHERE id = ?`, id))
	return user, err
}

func scanUser(row *sql.Row) (*auth.User, error) {
	var user auth.User
	err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

// RevokeToken records a revoked token. Revoking a token twice is a no-op.
func (s *Store) RevokeToken(ctx context.Context, token auth.RevokedToken) (err error) {
	start := time.Now()
	defer func() { s.observe("revoke_token", start, err) }()

	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO revoked_tokens (token, expires_at) VALUES (?, ?)`,
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
		SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token = ?)`, token,
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
		DELETE FROM revoked_tokens WHERE expires_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	deleted, err = result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted tokens: %w", err)
	}
	return deleted, nil
}

// CreateWallet inserts a wallet. A duplicate (user, chain, address) triple
// surfaces as storage.ErrAlreadyExists.
func (s *Store) CreateWallet(ctx context.Context, w *wallet.Wallet) (err error) {
	start := time.Now()
	defer func() { s.observe("create_wallet", start, err) }()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, tag, chain, address, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.UserID, w.Tag, w.Chain, w.Address, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert wallet: %w", err)
	}
	return nil
}

// GetWallet returns the wallet with the given ID if it belongs to the user.
func (s *Store) GetWallet(ctx context.Context, userID, id string) (w *wallet.Wallet, err error) {
	start := time.Now()
	defer func() { s.observe("get_wallet", start, err) }()

	w, err = scanWallet(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, tag, chain, address, created_at, updated_at
		FROM wallets WHERE id = ? AND user_id = ?`, id, userID))
	return w, err
}

// ListWallets returns all wallets owned by the user, newest first.
func (s *Store) ListWallets(ctx context.Context, userID string) (wallets []*wallet.Wallet, err error) {
	start := time.Now()
	defer func() { s.observe("list_wallets", start, err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, tag, chain, address, created_at, updated_at
		FROM wallets WHERE user_id = ?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallets: %w", err)
	}
	defer rows.Close()

	wallets = make([]*wallet.Wallet, 0)
	for rows.Next() {
		var w wallet.Wallet
		if err = rows.Scan(&w.ID, &w.UserID, &w.Tag, &w.Chain, &w.Address,
			&w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		wallets = append(wallets, &w)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wallets: %w", err)
	}
	return wallets, nil
}

// UpdateWallet writes the wallet's mutable fields. The update is scoped to
// the owner; storage.ErrNotFound is returned when no row matches.
func (s *Store) UpdateWallet(ctx context.Context, w *wallet.Wallet) (err error) {
	start := time.Now()
	defer func() { s.observe("update_wallet", start, err) }()

	result, err := s.db.ExecContext(ctx, `
		UPDATE wallets SET tag = ?, chain = ?, address = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		w.Tag, w.Chain, w.Address, w.UpdatedAt, w.ID, w.UserID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("failed to update wallet: %w", err)
	}
	return rowsAffectedOrNotFound(result)
}

// DeleteWallet removes the wallet if it belongs to the user.
func (s *Store) DeleteWallet(ctx context.Context, userID, id string) (err error) {
	start := time.Now()
	defer func() { s.observe("delete_wallet", start, err) }()

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM wallets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete wallet: %w", err)
	}
	return rowsAffectedOrNotFound(result)
}

func rowsAffectedOrNotFound(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count affected rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanWallet(row *sql.Row) (*wallet.Wallet, error) {
	var w wallet.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Tag, &w.Chain, &w.Address,
		&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}
	return &w, nil
}
