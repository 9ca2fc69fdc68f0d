package main

import (
	"fmt"

	"codeberg.org/cvforge/server/internal/config"
	"codeberg.org/cvforge/server/internal/counter"
	"codeberg.org/cvforge/server/internal/llm"
	"codeberg.org/cvforge/server/internal/quota"
)

// creates the quota service and the configured enhancer
func InitializeServices(cfg *config.Config, store counter.Store) (*Services, error) {
	enhancer, err := llm.NewEnhancerFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create enhancer: %w", err)
	}

	return &Services{
		Quota:    quota.NewService(store),
		Enhancer: enhancer,
	}, nil
}
