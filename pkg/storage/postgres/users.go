package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/walletvault/walletvault/pkg/auth"
	"github.com/walletvault/walletvault/pkg/storage"
)

// CreateUser inserts a new user. A duplicate email surfaces as
// storage.ErrAlreadyExists via the unique constraint.
func (s *Store) CreateUser(ctx context.Context, user *auth.User) (err error) {
	start := time.Now()
	defer func() { s.observe("create_user", start, err) }()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, first_name, last_name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
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

	user, err = s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, password_hash, created_at, updated_at
		FROM users WHERE email = $1`, email))
	return user, err
}

// GetUserByID returns the user with the given ID.
func (s *Store) GetUserByID(ctx context.Context, id string) (user *auth.User, err error) {
	start := time.Now()
	defer func() { s.observe("get_user_by_id", start, err) }()

	user, err = s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, first_name, last_name, password_hash, created_at, updated_at
		FROM users WHERE id = $1`, id))
	return user, err
}

func (s *Store) scanUser(row *sql.Row) (*auth.User, error) {
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
