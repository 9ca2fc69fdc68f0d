package workflow

import (
	"context"

	"codeberg.org/cvforge/server/cvforge/resumes"
	"codeberg.org/cvforge/server/internal/apiclient"
	"codeberg.org/cvforge/server/internal/credits"
	"codeberg.org/cvforge/server/internal/quota"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCheckingQuota
	PhaseBlocked
	PhaseAwaitingInput
	PhaseGenerating
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCheckingQuota:
		return "checking_quota"
	case PhaseBlocked:
		return "blocked"
	case PhaseAwaitingInput:
		return "awaiting_input"
	case PhaseGenerating:
		return "generating"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// why the workflow is Blocked or Failed
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNotAuthenticated
	ReasonQuotaExhausted
	ReasonQuotaUnavailable
	ReasonTransient
	ReasonMalformed
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNotAuthenticated:
		return "not_authenticated"
	case ReasonQuotaExhausted:
		return "quota_exhausted"
	case ReasonQuotaUnavailable:
		return "quota_unavailable"
	case ReasonTransient:
		return "transient"
	case ReasonMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// progress labels shown while generating; the last one marks completion
var Steps = []string{
	"Analyzing your information",
	"Optimizing with advanced AI",
	"Generating professional content",
	"CV enhanced successfully!",
}

type State struct {
	Phase  Phase
	Reason Reason

	// user-facing explanation for Blocked and Failed
	Message string

	// index into Steps while Generating and Succeeded
	Step int

	// working copy of the form; holds the merged result once Succeeded
	Form resumes.Form

	Result    *resumes.Enhancement
	Remaining int
}

type Identity interface {
	Present() bool
}

type QuotaReader interface {
	Credits(ctx context.Context) (quota.Snapshot, error)
}

type Generator interface {
	Generate(ctx context.Context, form resumes.Form, prompt string) (*apiclient.GenerateResult, error)
}

// the client quota cache. after a successful generation it takes the
// server's snapshot and is then refreshed.
type Cache interface {
	Apply(snapshot quota.Snapshot)
	Refresh(ctx context.Context) credits.State
	CanGenerate() bool
}

// asks the user to sign in
type SignInPrompter interface {
	PromptSignIn()
}

type Config struct {
	Identity  Identity
	Quota     QuotaReader
	Generator Generator
	Cache     Cache
	SignIn    SignInPrompter
}

// adapts a plain func to SignInPrompter
type SignInFunc func()

func (f SignInFunc) PromptSignIn() { f() }
