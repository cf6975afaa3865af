// Package storage implements the local persistent store: a single SQLite
// database holding the expense, category, reminder and settings collections
// plus the notification worker's sent-marks.
//
// Two processes (the HTTP server and the notification worker) share one
// database file. Each keeps a single connection (WAL journal, busy timeout)
// and relies on SQLite transactions as the only concurrency guard.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tally/internal/core"

	_ "modernc.org/sqlite"
)

var (
	// ErrStorageUnavailable means the database could not be opened at all.
	// Fatal to every data operation.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrProtectedCategory is returned when deleting a default category.
	ErrProtectedCategory = errors.New("cannot delete a default category")

	// ErrNotFound is returned when a record with the given id does not exist.
	ErrNotFound = errors.New("record not found")
)

// Store is the process-wide handle to the local database. Construct it with
// New and call Open before use; Open is idempotent, so any number of callers
// may race on it and still share one connection and one seeding pass.
type Store struct {
	path string

	openOnce sync.Once
	openErr  error
	db       *sql.DB
}

// New returns an unopened store for the given database path. Tests point
// this at a temp file to get an isolated database.
func New(path string) *Store {
	return &Store{path: path}
}

// Open opens (creating if needed) the database, runs migrations and seeds
// default data. Concurrent and repeated calls all resolve to the same
// underlying connection.
func (s *Store) Open(ctx context.Context) error {
	s.openOnce.Do(func() {
		s.openErr = s.open(ctx)
	})
	return s.openErr
}

func (s *Store) open(ctx context.Context) error {
	if s.path == "" {
		return fmt.Errorf("%w: empty database path", ErrStorageUnavailable)
	}
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create db directory: %v", ErrStorageUnavailable, err)
		}
	}

	db, err := sql.Open("sqlite", s.path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("%w: open sqlite database: %v", ErrStorageUnavailable, err)
	}

	// SQLite does not benefit from more than one connection, and a single
	// one keeps multi-table transactions serialized within the process.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("%w: ping database: %v", ErrStorageUnavailable, err)
	}

	if err := runMigrations(s.path); err != nil {
		db.Close()
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.db = db

	if err := s.seedDefaults(ctx); err != nil {
		db.Close()
		s.db = nil
		return err
	}

	slog.InfoContext(ctx, "Store opened", "path", s.path)
	return nil
}

// Close closes the shared connection. The application never calls this
// outside shutdown; a closed store cannot be reopened.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// seedDefaults inserts the default category list and the settings singleton
// when their collections are empty. The check is count-based, which makes
// the call idempotent and also restores defaults after a clear.
func (s *Store) seedDefaults(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return seedDefaultsTx(ctx, tx)
	})
}

func seedDefaultsTx(ctx context.Context, tx *sql.Tx) error {
	var categories int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&categories); err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if categories == 0 {
		for _, name := range core.DefaultCategories {
			if _, err := tx.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, name); err != nil {
				return fmt.Errorf("seed category %q: %w", name, err)
			}
		}
	}

	var settings int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM settings`).Scan(&settings); err != nil {
		return fmt.Errorf("count settings: %w", err)
	}
	if settings == 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO settings (id, monthly_budget_cents) VALUES (?, 0)`, core.SettingsID); err != nil {
			return fmt.Errorf("seed settings: %w", err)
		}
	}

	return nil
}

// withTx runs fn inside a transaction, rolling back on error. Engine
// failures surface to the caller wrapped, never retried here.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// formatTime keeps the timestamp's original offset. Summaries and reminder
// milestones are calendar-day computations in the client's zone, so a store
// round-trip must not shift a date across midnight.
func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}
