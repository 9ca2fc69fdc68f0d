// Package counter persists per-user daily usage counts.
//
// Every implementation keys records by (user id, UTC date) and performs the
// limit check and the increment as one atomic step, so two concurrent
// callers can never both take the last unit.
package counter

import (
	"context"
	"time"
)

// date layout used for record keys
const DateLayout = "2006-01-02"

// usage count for one user on one calendar day
type Record struct {
	UserID    string    `json:"user_id"`
	Date      string    `json:"date"`
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// persistent (user, date) -> count mapping
type Store interface {
	// returns nil, nil when no record exists for the pair
	Get(ctx context.Context, userID, date string) (*Record, error)

	// atomically increments the count if it is below limit, creating the
	// record with count 1 when absent. ok is false when the limit was already
	// reached; count is then the unchanged stored value.
	IncrementBelow(ctx context.Context, userID, date string, limit int) (count int, ok bool, err error)

	// atomically decrements the count, never below zero. returns the new count.
	Decrement(ctx context.Context, userID, date string) (int, error)
}

// formats t as a record date in UTC
func DateOf(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
