package llm

import (
	"context"
)

// Client interface for the natural-language-to-SQL translator.
// Implementations are untrusted collaborators: the returned SQL is a
// candidate only and must pass the safety policy before execution.
type Client interface {
	GenerateSQL(ctx context.Context, prompt string) (*Response, error)
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Response represents the translator's answer
type Response struct {
	SQL string `json:"sql"`
}

// Config holds configuration for translator clients
type Config struct {
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   int
	MaxTokens int
}
