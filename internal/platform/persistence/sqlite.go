// Package persistence contains the durable push-credential stores.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/Raul302/Push-notifications-brazof/pkg/delivery"
)

// SQLiteTokenStore implements delivery.TokenStore on a local SQLite file,
// one row per user with upsert-on-conflict.
type SQLiteTokenStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLiteTokenStore opens (and if needed bootstraps) the token database.
func NewSQLiteTokenStore(path string, logger zerolog.Logger) (*SQLiteTokenStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL UNIQUE,
		token TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tokens table: %w", err)
	}

	return &SQLiteTokenStore{
		db:     db,
		logger: logger.With().Str("component", "sqlite_token_store").Logger(),
	}, nil
}

// Put stores or replaces the user's push credential.
func (s *SQLiteTokenStore) Put(ctx context.Context, userID, token string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tokens (user_id, token, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE
		 SET token = excluded.token, created_at = excluded.created_at`,
		userID, token, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert token for %s: %w", userID, err)
	}
	s.logger.Debug().Str("user", userID).Msg("Token stored.")
	return nil
}

// Get returns the stored credential, or delivery.ErrTokenNotFound.
func (s *SQLiteTokenStore) Get(ctx context.Context, userID string) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx,
		`SELECT token FROM tokens WHERE user_id = ?`, userID,
	).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", delivery.ErrTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query token for %s: %w", userID, err)
	}
	return token, nil
}

// Close releases the database handle.
func (s *SQLiteTokenStore) Close() error {
	return s.db.Close()
}
