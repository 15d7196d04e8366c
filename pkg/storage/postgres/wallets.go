package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/walletvault/walletvault/pkg/storage"
	"github.com/walletvault/walletvault/pkg/wallet"
)

// CreateWallet inserts a wallet. A duplicate (user, chain, address) triple
// surfaces as storage.ErrAlreadyExists via the unique constraint.
func (s *Store) CreateWallet(ctx context.Context, w *wallet.Wallet) (err error) {
	start := time.Now()
	defer func() { s.observe("create_wallet", start, err) }()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, tag, chain, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
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

	w, err = s.scanWallet(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, tag, chain, address, created_at, updated_at
		FROM wallets WHERE id = $1 AND user_id = $2`, id, userID))
	return w, err
}

// ListWallets returns all wallets owned by the user, newest first.
func (s *Store) ListWallets(ctx context.Context, userID string) (wallets []*wallet.Wallet, err error) {
	start := time.Now()
	defer func() { s.observe("list_wallets", start, err) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, tag, chain, address, created_at, updated_at
		FROM wallets WHERE user_id = $1
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
		UPDATE wallets SET tag = $1, chain = $2, address = $3, updated_at = $4
		WHERE id = $5 AND user_id = $6`,
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
		DELETE FROM wallets WHERE id = $1 AND user_id = $2`, id, userID)
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

func (s *Store) scanWallet(row *sql.Row) (*wallet.Wallet, error) {
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
