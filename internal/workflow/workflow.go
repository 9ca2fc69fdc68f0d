// Package workflow sequences one AI generation: check quota, confirm in a
// dialog, generate, merge the result into the form and refresh credits.
//
// Network calls run synchronously on the caller's goroutine; the TUI wraps
// them in commands. Results that arrive after Dismiss or Abandon are ignored.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"codeberg.org/cvforge/server/cvforge/resumes"
	"codeberg.org/cvforge/server/internal/apiclient"
	"codeberg.org/cvforge/server/internal/quota"
)

const (
	signInMessage      = "Sign in to generate your CV with AI."
	unavailableMessage = "Could not check your credits. Please try again."
	transientMessage   = "Generation failed. Your CV was not changed; please try again."
	malformedMessage   = "The CV could not be sent. Check the highlighted fields."
)

type Workflow struct {
	cfg Config

	mu     sync.Mutex
	state  State
	epoch  uint64
	subs   map[int]func(State)
	nextID int
}

func New(cfg Config) *Workflow {
	return &Workflow{
		cfg:  cfg,
		subs: make(map[int]func(State)),
	}
}

func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.state
}

// false while a check or a generation is in flight, or when the cache says
// no credits are known to be left
func (w *Workflow) CanTrigger() bool {
	switch w.State().Phase {
	case PhaseCheckingQuota, PhaseAwaitingInput, PhaseGenerating:
		return false
	}

	return w.cfg.Cache == nil || w.cfg.Cache.CanGenerate()
}

// checks the quota for form. ends in AwaitingInput when a credit is left,
// Blocked otherwise.
func (w *Workflow) Start(ctx context.Context, form resumes.Form) State {
	w.mu.Lock()

	switch w.state.Phase {
	case PhaseCheckingQuota, PhaseAwaitingInput, PhaseGenerating:
		s := w.state
		w.mu.Unlock()
		return s
	}

	w.epoch++
	epoch := w.epoch
	w.mu.Unlock()

	w.set(State{Phase: PhaseCheckingQuota, Form: form.Clone()}, epoch)

	if w.cfg.Identity == nil || !w.cfg.Identity.Present() {
		return w.blockSignIn(epoch)
	}

	snap, err := w.cfg.Quota.Credits(ctx)

	switch {
	case errors.Is(err, apiclient.ErrNotAuthenticated):
		return w.blockSignIn(epoch)

	case err != nil:
		return w.transition(epoch, func(s *State) {
			s.Phase = PhaseBlocked
			s.Reason = ReasonQuotaUnavailable
			s.Message = unavailableMessage
		})

	case snap.Remaining <= 0:
		return w.transition(epoch, func(s *State) {
			s.Phase = PhaseBlocked
			s.Reason = ReasonQuotaExhausted
			s.Message = exhaustedMessage(snap.Total)
			s.Remaining = 0
		})
	}

	return w.transition(epoch, func(s *State) {
		s.Phase = PhaseAwaitingInput
		s.Remaining = snap.Remaining
	})
}

// generates from the working copy. only valid in AwaitingInput.
func (w *Workflow) Confirm(ctx context.Context, prompt string) State {
	w.mu.Lock()

	if w.state.Phase != PhaseAwaitingInput {
		s := w.state
		w.mu.Unlock()
		return s
	}

	epoch := w.epoch
	form := w.state.Form.Clone()
	w.mu.Unlock()

	w.transition(epoch, func(s *State) {
		s.Phase = PhaseGenerating
		s.Step = 0
	})

	result, err := w.cfg.Generator.Generate(ctx, form, prompt)

	var exhausted *apiclient.QuotaExhaustedError

	switch {
	case err == nil:
	case errors.As(err, &exhausted):
		return w.fail(epoch, ReasonQuotaExhausted, exhaustedFrom(exhausted))
	case errors.Is(err, apiclient.ErrNotAuthenticated):
		w.promptSignIn()
		return w.fail(epoch, ReasonNotAuthenticated, signInMessage)
	case errors.Is(err, apiclient.ErrMalformed):
		return w.fail(epoch, ReasonMalformed, malformedMessage)
	default:
		return w.fail(epoch, ReasonTransient, transientMessage)
	}

	merged := resumes.Merge(form, result.Enhancement)
	enhancement := result.Enhancement

	next := w.transition(epoch, func(s *State) {
		s.Phase = PhaseSucceeded
		s.Step = len(Steps) - 1
		s.Form = merged
		s.Result = &enhancement
		s.Remaining = result.Snapshot.Remaining
	})

	if next.Phase == PhaseSucceeded && w.cfg.Cache != nil {
		w.cfg.Cache.Apply(result.Snapshot)
		w.cfg.Cache.Refresh(ctx)
	}

	return next
}

// advances the progress label while Generating, stopping before the
// completion step
func (w *Workflow) Tick() State {
	w.mu.Lock()
	epoch := w.epoch
	w.mu.Unlock()

	return w.transition(epoch, func(s *State) {
		if s.Phase == PhaseGenerating && s.Step < len(Steps)-2 {
			s.Step++
		}
	})
}

// closes the success dialog
func (w *Workflow) Acknowledge() State {
	return w.reset(PhaseSucceeded)
}

// leaves Blocked, Failed, AwaitingInput or CheckingQuota without generating
func (w *Workflow) Dismiss() State {
	return w.reset(PhaseBlocked, PhaseFailed, PhaseAwaitingInput, PhaseCheckingQuota)
}

// walks away from an in-flight generation; its result will be ignored and
// the credit it spent stays spent
func (w *Workflow) Abandon() State {
	return w.reset(PhaseGenerating)
}

// registers fn for every state transition; the returned func unsubscribes
func (w *Workflow) Subscribe(fn func(State)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}

func (w *Workflow) reset(from ...Phase) State {
	w.mu.Lock()

	current := w.state
	allowed := false
	for _, p := range from {
		if current.Phase == p {
			allowed = true
			break
		}
	}

	if !allowed {
		w.mu.Unlock()
		return current
	}

	w.epoch++
	epoch := w.epoch
	w.mu.Unlock()

	return w.transition(epoch, func(s *State) {
		*s = State{Phase: PhaseIdle, Form: current.Form}
	})
}

func (w *Workflow) blockSignIn(epoch uint64) State {
	next := w.transition(epoch, func(s *State) {
		s.Phase = PhaseBlocked
		s.Reason = ReasonNotAuthenticated
		s.Message = signInMessage
	})

	if next.Reason == ReasonNotAuthenticated {
		w.promptSignIn()
	}

	return next
}

func (w *Workflow) fail(epoch uint64, reason Reason, message string) State {
	return w.transition(epoch, func(s *State) {
		s.Phase = PhaseFailed
		s.Reason = reason
		s.Message = message
	})
}

func (w *Workflow) promptSignIn() {
	if w.cfg.SignIn != nil {
		w.cfg.SignIn.PromptSignIn()
	}
}

// edits the current state and notifies subscribers if epoch is current
func (w *Workflow) transition(epoch uint64, edit func(s *State)) State {
	w.mu.Lock()

	if epoch != w.epoch {
		s := w.state
		w.mu.Unlock()
		return s
	}

	edit(&w.state)
	next := w.state
	subs := w.subscribers()
	w.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}

	return next
}

func (w *Workflow) set(next State, epoch uint64) {
	w.transition(epoch, func(s *State) {
		*s = next
	})
}

// callers hold w.mu
func (w *Workflow) subscribers() []func(State) {
	subs := make([]func(State), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}

	return subs
}

func exhaustedMessage(total int) string {
	if total <= 0 {
		total = quota.DailyLimit
	}

	return fmt.Sprintf(
		"You have used the %d free CV generations for today. Credits renew at %s.",
		total,
		quota.ResetTime,
	)
}

func exhaustedFrom(err *apiclient.QuotaExhaustedError) string {
	if err.Message != "" {
		return err.Message
	}

	return exhaustedMessage(err.Total)
}
