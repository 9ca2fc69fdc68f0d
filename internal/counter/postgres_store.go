package counter

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	createTableSQL = `
		CREATE TABLE IF NOT EXISTS cv_usage (
			user_id TEXT NOT NULL,
			date DATE NOT NULL,
			count INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0),
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, date)
		);
	`

	getSQL = `
		SELECT user_id, to_char(date, 'YYYY-MM-DD'), count, updated_at
		FROM cv_usage
		WHERE user_id = $1 AND date = $2::date
	`

	// the conflict branch only fires while count < limit; a row at the
	// limit makes the statement return nothing
	incrementBelowSQL = `
		INSERT INTO cv_usage (user_id, date, count, updated_at)
		VALUES ($1, $2::date, 1, NOW())
		ON CONFLICT (user_id, date) DO UPDATE
		SET count = cv_usage.count + 1, updated_at = NOW()
		WHERE cv_usage.count < $3
		RETURNING count
	`

	decrementSQL = `
		UPDATE cv_usage
		SET count = count - 1, updated_at = NOW()
		WHERE user_id = $1 AND date = $2::date AND count > 0
		RETURNING count
	`
)

// implements Store using PostgreSQL
type PostgresStore struct {
	db *pgxpool.Pool
}

// creates a new PostgreSQL counter store
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// creates the usage table if it doesn't exist
func (s *PostgresStore) Initialize(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create cv_usage table: %w", err)
	}

	return nil
}

// retrieves the record for a user and date
func (s *PostgresStore) Get(ctx context.Context, userID, date string) (*Record, error) {
	var record Record

	err := s.db.QueryRow(ctx, getSQL, userID, date).Scan(
		&record.UserID,
		&record.Date,
		&record.Count,
		&record.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read usage: %w", err)
	}

	return &record, nil
}

// increments the count while it is below limit in a single statement
func (s *PostgresStore) IncrementBelow(ctx context.Context, userID, date string, limit int) (int, bool, error) {
	if limit <= 0 {
		return s.currentCount(ctx, userID, date)
	}

	var count int

	err := s.db.QueryRow(ctx, incrementBelowSQL, userID, date, limit).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.currentCount(ctx, userID, date)
	}

	if err != nil {
		return 0, false, fmt.Errorf("failed to increment usage: %w", err)
	}

	return count, true, nil
}

// decrements the count, floored at zero
func (s *PostgresStore) Decrement(ctx context.Context, userID, date string) (int, error) {
	var count int

	err := s.db.QueryRow(ctx, decrementSQL, userID, date).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("failed to decrement usage: %w", err)
	}

	return count, nil
}

func (s *PostgresStore) currentCount(ctx context.Context, userID, date string) (int, bool, error) {
	record, err := s.Get(ctx, userID, date)
	if err != nil {
		return 0, false, err
	}

	if record == nil {
		return 0, false, nil
	}

	return record.Count, false, nil
}
