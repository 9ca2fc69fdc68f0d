package llm

import (
	"context"
	"errors"

	"codeberg.org/cvforge/server/cvforge/resumes"
)

// improves a CV form. implementations return only the fields they changed.
type Enhancer interface {
	Enhance(ctx context.Context, form resumes.Form, prompt string) (resumes.Enhancement, error)
}

// represents different enhancement providers
type Provider string

const (
	ProviderStub      Provider = "stub"
	ProviderAnthropic Provider = "anthropic"
)

// returned when a provider answered without any usable content
var ErrEmptyResponse = errors.New("enhancer returned no content")

// holds configuration for enhancer initialization
type Config struct {
	Provider Provider

	// anthropic only
	APIKey      string
	Model       string // e.g., "claude-3-haiku-20240307"
	MaxTokens   int
	Temperature float32
}
