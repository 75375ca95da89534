// Package semantic stores past question-to-SQL exemplars and retrieves the
// nearest ones to seed the translator prompt with few-shot examples.
package semantic

import (
	"context"
)

// Store handles exemplar storage and similarity lookup
type Store interface {
	// FindSimilarQuestions returns stored exemplars closest to the embedding,
	// most similar first
	FindSimilarQuestions(ctx context.Context, embedding []float32, limit int) ([]Exemplar, error)

	// StoreExemplar records a question, its embedding, and the vetted SQL it
	// resolved to. Only safety-accepted queries should ever be stored.
	StoreExemplar(ctx context.Context, question string, embedding []float32, sql string) error

	// RecentExemplars lists the most recently stored exemplars, newest first
	RecentExemplars(ctx context.Context, limit int) ([]Exemplar, error)

	Ping(ctx context.Context) error
	Close() error
}

// Exemplar is a past question with the vetted SQL that answered it
type Exemplar struct {
	ID         string  `json:"id"`
	Question   string  `json:"question"`
	SQL        string  `json:"sql"`
	Similarity float64 `json:"similarity"`
	CreatedAt  string  `json:"created_at"`
}
