package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/cvforge/server/cvforge/resumes"
	"codeberg.org/cvforge/server/internal/apiclient"
	"codeberg.org/cvforge/server/internal/credits"
	"codeberg.org/cvforge/server/internal/quota"
)

type fakeIdentity bool

func (f fakeIdentity) Present() bool { return bool(f) }

type fakeQuota struct {
	snap quota.Snapshot
	err  error
}

func (f *fakeQuota) Credits(context.Context) (quota.Snapshot, error) {
	return f.snap, f.err
}

type fakeGenerator struct {
	mu     sync.Mutex
	calls  int
	result *apiclient.GenerateResult
	err    error
	hook   func()
}

func (f *fakeGenerator) Generate(context.Context, resumes.Form, string) (*apiclient.GenerateResult, error) {
	f.mu.Lock()
	f.calls++
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook()
	}

	return f.result, f.err
}

type fakeCache struct {
	refreshes int
	can       bool
	applied   []quota.Snapshot
	calls     []string
}

func (f *fakeCache) Apply(snapshot quota.Snapshot) {
	f.applied = append(f.applied, snapshot)
	f.calls = append(f.calls, "apply")
}

func (f *fakeCache) Refresh(context.Context) credits.State {
	f.refreshes++
	f.calls = append(f.calls, "refresh")
	return credits.State{Status: credits.StatusReady}
}

func (f *fakeCache) CanGenerate() bool { return f.can }

type fakePrompter struct {
	prompts int
}

func (f *fakePrompter) PromptSignIn() { f.prompts++ }

type harness struct {
	wf        *Workflow
	quota     *fakeQuota
	generator *fakeGenerator
	cache     *fakeCache
	prompter  *fakePrompter
}

func remaining(n int) quota.Snapshot {
	return quota.Snapshot{Remaining: n, Used: quota.DailyLimit - n, Total: quota.DailyLimit}
}

func newHarness(signedIn bool) *harness {
	h := &harness{
		quota: &fakeQuota{snap: remaining(3)},
		generator: &fakeGenerator{result: &apiclient.GenerateResult{
			Enhancement: resumes.Enhancement{
				Objective: resumes.String("Sharper objective"),
				Experience: []resumes.ExperienceEnhancement{
					{Index: 0, Description: "Shipped things"},
				},
			},
			Snapshot: remaining(2),
		}},
		cache:    &fakeCache{can: true},
		prompter: &fakePrompter{},
	}

	h.wf = New(Config{
		Identity:  fakeIdentity(signedIn),
		Quota:     h.quota,
		Generator: h.generator,
		Cache:     h.cache,
		SignIn:    h.prompter,
	})

	return h
}

func sampleForm() resumes.Form {
	return resumes.Form{
		FullName:  "Ada Lovelace",
		Objective: "Old objective",
		Skills:    "Go",
		Experience: []resumes.Experience{
			{Company: "Analytical Engines Ltd", Position: "Programmer"},
		},
	}
}

func TestStart_NoIdentityPromptsSignIn(t *testing.T) {
	h := newHarness(false)

	s := h.wf.Start(context.Background(), sampleForm())

	assert.Equal(t, PhaseBlocked, s.Phase)
	assert.Equal(t, ReasonNotAuthenticated, s.Reason)
	assert.Equal(t, 1, h.prompter.prompts)
}

func TestStart_Blocked(t *testing.T) {
	tests := []struct {
		name   string
		quota  fakeQuota
		reason Reason
		prompt int
	}{
		{name: "exhausted", quota: fakeQuota{snap: remaining(0)}, reason: ReasonQuotaExhausted},
		{name: "unavailable", quota: fakeQuota{err: fmt.Errorf("%w: boom", apiclient.ErrUnavailable)}, reason: ReasonQuotaUnavailable},
		{name: "token rejected", quota: fakeQuota{err: apiclient.ErrNotAuthenticated}, reason: ReasonNotAuthenticated, prompt: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(true)
			*h.quota = tt.quota

			s := h.wf.Start(context.Background(), sampleForm())

			assert.Equal(t, PhaseBlocked, s.Phase)
			assert.Equal(t, tt.reason, s.Reason)
			assert.NotEmpty(t, s.Message)
			assert.Equal(t, tt.prompt, h.prompter.prompts)
			assert.Equal(t, 0, h.generator.calls)
		})
	}
}

func TestStart_ExhaustedMessage(t *testing.T) {
	h := newHarness(true)
	h.quota.snap = remaining(0)

	s := h.wf.Start(context.Background(), sampleForm())

	assert.Equal(t, "You have used the 3 free CV generations for today. Credits renew at 00:00 UTC.", s.Message)
}

func TestHappyPath(t *testing.T) {
	h := newHarness(true)

	var phases []Phase
	h.wf.Subscribe(func(s State) { phases = append(phases, s.Phase) })

	s := h.wf.Start(context.Background(), sampleForm())
	require.Equal(t, PhaseAwaitingInput, s.Phase)
	assert.Equal(t, 3, s.Remaining)

	s = h.wf.Confirm(context.Background(), "")
	require.Equal(t, PhaseSucceeded, s.Phase)

	assert.Equal(t, "Sharper objective", s.Form.Objective)
	assert.Equal(t, "Shipped things", s.Form.Experience[0].Description)
	assert.Equal(t, "Go", s.Form.Skills, "fields absent from the enhancement are kept")
	assert.Equal(t, 2, s.Remaining)
	assert.Equal(t, len(Steps)-1, s.Step)
	assert.Equal(t, 1, h.cache.refreshes)
	assert.Equal(t, []quota.Snapshot{remaining(2)}, h.cache.applied)
	assert.Equal(t, []string{"apply", "refresh"}, h.cache.calls, "the server's count lands before the refetch")

	s = h.wf.Acknowledge()
	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Equal(t, "Sharper objective", s.Form.Objective)

	assert.Equal(t, []Phase{
		PhaseCheckingQuota,
		PhaseAwaitingInput,
		PhaseGenerating,
		PhaseSucceeded,
		PhaseIdle,
	}, phases)
}

func TestConfirm_Failures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason Reason
	}{
		{name: "exhausted by server", err: &apiclient.QuotaExhaustedError{Message: "renew at 00:00 UTC", Used: 3, Total: 3}, reason: ReasonQuotaExhausted},
		{name: "network", err: fmt.Errorf("%w: dial tcp", apiclient.ErrUnavailable), reason: ReasonTransient},
		{name: "timeout", err: context.DeadlineExceeded, reason: ReasonTransient},
		{name: "malformed", err: fmt.Errorf("%w: validation_error", apiclient.ErrMalformed), reason: ReasonMalformed},
		{name: "signed out", err: apiclient.ErrNotAuthenticated, reason: ReasonNotAuthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(true)
			h.generator.err = tt.err
			h.generator.result = nil

			h.wf.Start(context.Background(), sampleForm())
			s := h.wf.Confirm(context.Background(), "")

			assert.Equal(t, PhaseFailed, s.Phase)
			assert.Equal(t, tt.reason, s.Reason)
			assert.Equal(t, "Old objective", s.Form.Objective, "form untouched on failure")
			assert.Equal(t, 0, h.cache.refreshes)
			assert.Equal(t, 1, h.generator.calls, "no automatic retry")

			s = h.wf.Dismiss()
			assert.Equal(t, PhaseIdle, s.Phase)
		})
	}
}

func TestConfirm_ServerExhaustionUsesServerMessage(t *testing.T) {
	h := newHarness(true)
	h.generator.err = &apiclient.QuotaExhaustedError{Message: "Credits renew at 00:00 UTC.", Used: 3, Total: 3}

	h.wf.Start(context.Background(), sampleForm())
	s := h.wf.Confirm(context.Background(), "")

	assert.Equal(t, "Credits renew at 00:00 UTC.", s.Message)
}

func TestConfirm_OnlyFromAwaitingInput(t *testing.T) {
	h := newHarness(true)

	s := h.wf.Confirm(context.Background(), "")

	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Equal(t, 0, h.generator.calls)
}

func TestAbandon_IgnoresLateResult(t *testing.T) {
	h := newHarness(true)
	h.wf.Start(context.Background(), sampleForm())

	// the user navigates away while the request is in flight
	h.generator.hook = func() {
		assert.Equal(t, PhaseGenerating, h.wf.State().Phase)
		h.wf.Abandon()
	}

	s := h.wf.Confirm(context.Background(), "")

	assert.Equal(t, PhaseIdle, s.Phase)
	assert.Equal(t, "Old objective", h.wf.State().Form.Objective)
	assert.Equal(t, 0, h.cache.refreshes)
}

func TestCanTrigger(t *testing.T) {
	h := newHarness(true)
	assert.True(t, h.wf.CanTrigger())

	h.cache.can = false
	assert.False(t, h.wf.CanTrigger())

	h.cache.can = true
	h.wf.Start(context.Background(), sampleForm())
	assert.False(t, h.wf.CanTrigger(), "dialog open")

	h.generator.hook = func() {
		assert.False(t, h.wf.CanTrigger(), "generating")
	}
	h.wf.Confirm(context.Background(), "")

	h.wf.Acknowledge()
	assert.True(t, h.wf.CanTrigger())
}

func TestTick_AdvancesUntilCompletionStep(t *testing.T) {
	h := newHarness(true)
	h.wf.Start(context.Background(), sampleForm())

	var steps []int
	h.generator.hook = func() {
		for range 5 {
			steps = append(steps, h.wf.Tick().Step)
		}
	}

	h.wf.Confirm(context.Background(), "")

	assert.Equal(t, []int{1, 2, 2, 2, 2}, steps)
}

func TestStart_IgnoredWhileBusy(t *testing.T) {
	h := newHarness(true)
	h.wf.Start(context.Background(), sampleForm())

	h.quota.err = errors.New("must not be called")
	s := h.wf.Start(context.Background(), resumes.Form{FullName: "Someone Else"})

	assert.Equal(t, PhaseAwaitingInput, s.Phase)
	assert.Equal(t, "Ada Lovelace", s.Form.FullName)
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "awaiting_input", PhaseAwaitingInput.String())
	assert.Equal(t, "quota_exhausted", ReasonQuotaExhausted.String())
}
