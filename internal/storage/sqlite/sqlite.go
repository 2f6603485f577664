// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/nilelink/ledger/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection turns concurrent
	// transactions into queued ones instead of SQLITE_BUSY errors.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// now returns the current Unix timestamp. Kept as a helper so record
// timestamps stay uniform across the store.
func now() int64 {
	return time.Now().Unix()
}

// isUniqueViolation reports whether err is a primary-key or unique-index
// conflict.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// creditAccountTx adds amountUsd6 to an account inside tx, creating the
// account row on first credit. The arithmetic happens in the database, so
// concurrent credits to the same account never lose updates.
func creditAccountTx(ctx context.Context, tx *sql.Tx, accountID string, amountUsd6, ts int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (id, balance_usd6, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   balance_usd6 = balance_usd6 + excluded.balance_usd6,
		   updated_at = excluded.updated_at`,
		accountID, amountUsd6, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to credit account %s: %w", accountID, err)
	}
	return nil
}
