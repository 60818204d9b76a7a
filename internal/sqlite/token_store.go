package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpggio/chemviz/internal/repository"
)

var _ repository.TokenStore = (*TokenStore)(nil)

// TokenStore implements repository.TokenStore for SQLite
type TokenStore struct {
	db  *DB
	now func() time.Time
}

// NewTokenStore creates a new TokenStore
func NewTokenStore(db *DB) *TokenStore {
	return &TokenStore{db: db, now: time.Now}
}

// Get returns the value stored under key
func (s *TokenStore) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", repository.ErrInvalidInput
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM client_state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", repository.ErrNotFound
	}
	if err != nil {
		if isNoSuchTable(err) {
			return "", fmt.Errorf("client state schema missing, run migrations: %w", err)
		}
		return "", fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any previous value
func (s *TokenStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return repository.ErrInvalidInput
	}

	query := `
		INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, value, s.now()); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *TokenStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return repository.ErrInvalidInput
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM client_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
