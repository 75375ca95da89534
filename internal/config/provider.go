package config

import (
	"context"
	"fmt"
)

// SecretProvider hands out configuration secrets (the OpenAI API key, the JWT
// signing secret, database credentials) from a backing source
type SecretProvider interface {
	// GetSecret retrieves a secret value by key
	GetSecret(ctx context.Context, key string) (string, error)

	// Name identifies the provider in logs
	Name() string

	// IsAvailable reports whether this source is usable in the current
	// environment
	IsAvailable(ctx context.Context) bool
}

// ChainProvider consults several providers in priority order, so a cluster
// deployment reads mounted secrets while local development falls through to
// environment variables
type ChainProvider struct {
	providers []SecretProvider
}

// NewChainProvider builds a chain that tries the given providers in order
func NewChainProvider(providers ...SecretProvider) *ChainProvider {
	return &ChainProvider{
		providers: providers,
	}
}

// GetSecret returns the first non-empty value any available provider yields
func (c *ChainProvider) GetSecret(ctx context.Context, key string) (string, error) {
	var lastErr error

	for _, provider := range c.providers {
		if !provider.IsAvailable(ctx) {
			continue
		}

		value, err := provider.GetSecret(ctx, key)
		if err == nil && value != "" {
			return value, nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return "", fmt.Errorf("all providers failed, last error: %w", lastErr)
	}
	return "", fmt.Errorf("no available provider found for key: %s", key)
}

// Name returns the chain provider name
func (c *ChainProvider) Name() string {
	return "chain"
}

// IsAvailable reports whether any provider in the chain is available
func (c *ChainProvider) IsAvailable(ctx context.Context) bool {
	for _, provider := range c.providers {
		if provider.IsAvailable(ctx) {
			return true
		}
	}
	return false
}
