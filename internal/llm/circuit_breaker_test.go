package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingClient always fails
type failingClient struct {
	calls int
}

func (f *failingClient) GenerateSQL(ctx context.Context, prompt string) (*Response, error) {
	f.calls++
	return nil, errors.New("translator down")
}

func (f *failingClient) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return nil, errors.New("translator down")
}

// workingClient always succeeds
type workingClient struct{}

func (w *workingClient) GenerateSQL(ctx context.Context, prompt string) (*Response, error) {
	return &Response{SQL: "SELECT 1"}, nil
}

func (w *workingClient) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func TestCircuitBreakerPassesThroughSuccess(t *testing.T) {
	cb := NewCircuitBreakerClient(&workingClient{}, "test", DefaultCircuitBreakerConfig)

	resp, err := cb.GenerateSQL(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", resp.SQL)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	config := CircuitBreakerConfig{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}

	client := &failingClient{}
	cb := NewCircuitBreakerClient(client, "test", config)

	for i := 0; i < 3; i++ {
		_, err := cb.GenerateSQL(context.Background(), "question")
		require.Error(t, err)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())

	// Open circuit fails fast without hitting the client
	callsBefore := client.calls
	_, err := cb.GenerateSQL(context.Background(), "question")
	require.Error(t, err)
	assert.Equal(t, callsBefore, client.calls)
}

func TestCircuitBreakerWrapsEmbedding(t *testing.T) {
	cb := NewCircuitBreakerClient(&workingClient{}, "test", DefaultCircuitBreakerConfig)

	emb, err := cb.GetEmbedding(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, emb)
}
