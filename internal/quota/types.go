package quota

import (
	"errors"
	"fmt"
)

const (
	// generations allowed per identity per UTC day
	DailyLimit = 3

	// the date key rolls over at UTC midnight
	ResetTime = "00:00 UTC"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrQuotaExhausted   = errors.New("quota exhausted")
)

// point-in-time view of an identity's quota for one day
type Snapshot struct {
	Remaining int    `json:"remaining"`
	Used      int    `json:"used"`
	Total     int    `json:"total"`
	Date      string `json:"date"`
	ResetTime string `json:"reset_time"`
}

// returned by Consume when no unit is left. matches ErrQuotaExhausted.
type ExhaustedError struct {
	Snapshot Snapshot
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("quota exhausted: %d of %d used on %s", e.Snapshot.Used, e.Snapshot.Total, e.Snapshot.Date)
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrQuotaExhausted
}

// human readable explanation shown to clients on exhaustion
func (e *ExhaustedError) Message() string {
	return fmt.Sprintf(
		"You have used the %d free CV generations for today. Credits renew at %s.",
		e.Snapshot.Total,
		e.Snapshot.ResetTime,
	)
}

// called with the fresh snapshot whenever an identity's usage changes
type Listener func(userID string, snapshot Snapshot)
