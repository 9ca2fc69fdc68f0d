package counter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const (
	sqliteCreateTableSQL = `
		CREATE TABLE IF NOT EXISTS cv_usage (
			user_id TEXT NOT NULL,
			date TEXT NOT NULL,
			count INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0),
			updated_at TEXT NOT NULL,
			PRIMARY KEY (user_id, date)
		)
	`

	sqliteGetSQL = `
		SELECT user_id, date, count, updated_at
		FROM cv_usage
		WHERE user_id = ? AND date = ?
	`

	sqliteIncrementBelowSQL = `
		INSERT INTO cv_usage (user_id, date, count, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (user_id, date) DO UPDATE
		SET count = count + 1, updated_at = excluded.updated_at
		WHERE cv_usage.count < ?
		RETURNING count
	`

	sqliteDecrementSQL = `
		UPDATE cv_usage
		SET count = count - 1, updated_at = ?
		WHERE user_id = ? AND date = ? AND count > 0
		RETURNING count
	`
)

// implements Store on an embedded SQLite database (single node deployments)
type SQLiteStore struct {
	db *sql.DB
}

// opens (or creates) the database at path and ensures the schema exists
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// sqlite serializes writers anyway; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		sqliteCreateTableSQL,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close() //nolint:errcheck,gosec // best-effort cleanup on init failure
			return nil, fmt.Errorf("failed to initialize sqlite database: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// retrieves the record for a user and date
func (s *SQLiteStore) Get(ctx context.Context, userID, date string) (*Record, error) {
	var record Record
	var updatedAt string

	err := s.db.QueryRowContext(ctx, sqliteGetSQL, userID, date).Scan(
		&record.UserID,
		&record.Date,
		&record.Count,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read usage: %w", err)
	}

	record.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt) //nolint:errcheck // zero time on legacy rows
	return &record, nil
}

// increments the count while it is below limit in a single statement
func (s *SQLiteStore) IncrementBelow(ctx context.Context, userID, date string, limit int) (int, bool, error) {
	if limit <= 0 {
		return s.currentCount(ctx, userID, date)
	}

	var count int
	now := time.Now().UTC().Format(time.RFC3339Nano)

	err := s.db.QueryRowContext(ctx, sqliteIncrementBelowSQL, userID, date, now, limit).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return s.currentCount(ctx, userID, date)
	}

	if err != nil {
		return 0, false, fmt.Errorf("failed to increment usage: %w", err)
	}

	return count, true, nil
}

// decrements the count, floored at zero
func (s *SQLiteStore) Decrement(ctx context.Context, userID, date string) (int, error) {
	var count int
	now := time.Now().UTC().Format(time.RFC3339Nano)

	err := s.db.QueryRowContext(ctx, sqliteDecrementSQL, now, userID, date).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("failed to decrement usage: %w", err)
	}

	return count, nil
}

// closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) currentCount(ctx context.Context, userID, date string) (int, bool, error) {
	record, err := s.Get(ctx, userID, date)
	if err != nil {
		return 0, false, err
	}

	if record == nil {
		return 0, false, nil
	}

	return record.Count, false, nil
}
