// Package quota is the server-side authority for daily AI generation credits.
//
// Usage lives in a counter.Store keyed by (identity, UTC date), so the quota
// resets implicitly when the date changes. Consume relies on the store's
// conditional increment and never oversells.
package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"

	"codeberg.org/cvforge/server/internal/counter"
	"codeberg.org/cvforge/server/internal/logger"
)

// upper bound for a refund issued after the request context is gone
const refundTimeout = 5 * time.Second

type Service struct {
	store counter.Store
	clock quartz.Clock
	limit int

	mu        sync.RWMutex
	listeners []Listener
}

type Option func(*Service)

// overrides the wall clock (tests, day rollover)
func WithClock(clock quartz.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// overrides DailyLimit
func WithLimit(limit int) Option {
	return func(s *Service) {
		s.limit = limit
	}
}

// creates a quota service backed by store
func NewService(store counter.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		clock: quartz.NewReal(),
		limit: DailyLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// registers a listener notified after every change to an identity's usage
func (s *Service) OnChange(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, l)
}

// the current UTC date key
func (s *Service) Today() string {
	return counter.DateOf(s.clock.Now())
}

// the configured daily limit
func (s *Service) Limit() int {
	return s.limit
}

// reads the identity's quota for today without side effects
func (s *Service) GetSnapshot(ctx context.Context, userID string) (Snapshot, error) {
	if userID == "" {
		return Snapshot{}, ErrNotAuthenticated
	}

	date := s.Today()

	record, err := s.store.Get(ctx, userID, date)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read usage: %w", err)
	}

	used := 0
	if record != nil {
		used = record.Count
	}

	return s.snapshot(used, date), nil
}

// spends one unit of today's quota. returns *ExhaustedError, without
// mutating anything, when the limit is already reached.
func (s *Service) Consume(ctx context.Context, userID string) (Snapshot, error) {
	if userID == "" {
		return Snapshot{}, ErrNotAuthenticated
	}

	return s.consume(ctx, userID, s.Today())
}

// consumes one unit and then runs work. when work fails or panics while ctx
// is still live the unit is refunded; when ctx was cancelled the unit stays
// spent. a panic is re-raised after the refund.
func (s *Service) ConsumeFor(ctx context.Context, userID string, work func(ctx context.Context) error) (Snapshot, error) {
	if userID == "" {
		return Snapshot{}, ErrNotAuthenticated
	}

	date := s.Today()

	snap, err := s.consume(ctx, userID, date)
	if err != nil {
		return snap, err
	}

	defer func() {
		if r := recover(); r != nil {
			if ctx.Err() == nil {
				if _, refundErr := s.refund(ctx, userID, date); refundErr != nil {
					logger.ErrorErr(refundErr, "failed to refund usage after panic", "user_id", userID)
				}
			}

			panic(r)
		}
	}()

	workErr := work(ctx)
	if workErr == nil {
		return snap, nil
	}

	if ctx.Err() != nil {
		return snap, workErr
	}

	refunded, err := s.refund(ctx, userID, date)
	if err != nil {
		return snap, errors.Join(workErr, err)
	}

	return refunded, workErr
}

// gives back one unit on a detached context and notifies listeners
func (s *Service) refund(ctx context.Context, userID, date string) (Snapshot, error) {
	refundCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refundTimeout)
	defer cancel()

	count, err := s.store.Decrement(refundCtx, userID, date)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to refund usage: %w", err)
	}

	snap := s.snapshot(count, date)
	s.notify(userID, snap)

	return snap, nil
}

func (s *Service) consume(ctx context.Context, userID, date string) (Snapshot, error) {
	count, ok, err := s.store.IncrementBelow(ctx, userID, date, s.limit)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to increment usage: %w", err)
	}

	snap := s.snapshot(count, date)

	if !ok {
		return snap, &ExhaustedError{Snapshot: snap}
	}

	s.notify(userID, snap)

	return snap, nil
}

func (s *Service) snapshot(used int, date string) Snapshot {
	return Snapshot{
		Remaining: max(0, s.limit-used),
		Used:      used,
		Total:     s.limit,
		Date:      date,
		ResetTime: ResetTime,
	}
}

func (s *Service) notify(userID string, snap Snapshot) {
	s.mu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, l := range listeners {
		l(userID, snap)
	}
}
