package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresStore implements Store over a dialogue_state table.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an existing connection pool. The dialogue_state
// table is created by the shipped migrations.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Get returns the stored value, or the empty string when absent.
func (s *PostgresStore) Get(ctx context.Context, app, user, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value,
		`SELECT value FROM dialogue_state WHERE app = $1 AND usr = $2 AND key = $3`,
		app, user, key,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("state select: %w", err)
	}
	return value, nil
}

// Save upserts the value.
func (s *PostgresStore) Save(ctx context.Context, app, user, key, value string) error {
	if value == "" {
		return s.Remove(ctx, app, user, key)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dialogue_state (app, usr, key, value, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (app, usr, key)
		 DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		app, user, key, value,
	)
	if err != nil {
		return fmt.Errorf("state upsert: %w", err)
	}
	return nil
}

// Remove deletes the value if present.
func (s *PostgresStore) Remove(ctx context.Context, app, user, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM dialogue_state WHERE app = $1 AND usr = $2 AND key = $3`,
		app, user, key,
	)
	if err != nil {
		return fmt.Errorf("state delete: %w", err)
	}
	return nil
}
