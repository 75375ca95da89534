package config

import (
	"context"
	"os"
)

// EnvProvider reads secrets from environment variables. Last in the chain:
// it is the local-development source, behind mounted secrets in a cluster.
type EnvProvider struct{}

// NewEnvProvider creates an environment variable provider
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{}
}

// GetSecret looks the key up in the process environment
func (e *EnvProvider) GetSecret(ctx context.Context, key string) (string, error) {
	return os.Getenv(key), nil
}

// Name returns the provider name
func (e *EnvProvider) Name() string {
	return "env"
}

// IsAvailable always reports true; the environment is always readable
func (e *EnvProvider) IsAvailable(ctx context.Context) bool {
	return true
}
