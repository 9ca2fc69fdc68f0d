package credits

import (
	"context"
	"errors"

	"codeberg.org/cvforge/server/internal/quota"
)

type Status int

const (
	StatusUninitialized Status = iota
	StatusLoading
	StatusReady
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// signed out; the cache does not ask the server
var ErrNoIdentity = errors.New("no identity")

// what the cache currently believes about today's quota. Snapshot is only
// meaningful when Status is StatusReady; Err only when StatusUnavailable.
type State struct {
	Status   Status
	Snapshot quota.Snapshot
	Err      error
}

// reads today's snapshot from the server
type Fetcher interface {
	Credits(ctx context.Context) (quota.Snapshot, error)
}

// the client credential the cache follows
type Identity interface {
	Token() string
	Subscribe(fn func(token string)) func()
}
