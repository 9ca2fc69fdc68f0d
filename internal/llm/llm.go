package llm

import (
	"fmt"

	"codeberg.org/cvforge/server/internal/config"
)

const defaultAnthropicModel = "claude-3-haiku-20240307"

// creates an enhancer from the server configuration
func NewEnhancerFromConfig(cfg *config.Config) (Enhancer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	return NewEnhancer(Config{
		Provider: Provider(cfg.EnhancerProvider),
		APIKey:   cfg.AnthropicKey,
		Model:    cfg.EnhancerModel,
	})
}

// creates a new enhancer with explicit configuration
func NewEnhancer(cfg Config) (Enhancer, error) {
	switch cfg.Provider {
	case ProviderStub, "":
		return NewStubEnhancer(0), nil
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic enhancer requires an API key")
		}

		if cfg.Model == "" {
			cfg.Model = defaultAnthropicModel
		}

		return NewAnthropicEnhancer(AnthropicConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported enhancer provider: %s", cfg.Provider)
	}
}
