package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// CircuitBreakerConfig defines circuit breaker configuration for the store
type CircuitBreakerConfig struct {
	MaxRequests   uint32        // Max requests allowed in half-open state
	Interval      time.Duration // Window for counting failures
	Timeout       time.Duration // Duration circuit stays open before trying recovery
	ReadyToTrip   func(counts gobreaker.Counts) bool
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultCircuitBreakerConfig provides sensible defaults for the store
var DefaultCircuitBreakerConfig = CircuitBreakerConfig{
	MaxRequests: 1,
	Interval:    10 * time.Second, // Count failures over 10 seconds
	Timeout:     30 * time.Second, // Try recovery after 30 seconds
	ReadyToTrip: func(counts gobreaker.Counts) bool {
		// Open circuit if we see 5 failures in the interval
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 3 && (counts.ConsecutiveFailures >= 5 || failureRatio >= 0.6)
	},
	OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
		// Log state changes for monitoring
		fmt.Printf("Circuit breaker '%s' changed from %s to %s\n", name, from, to)
	},
}

// CircuitBreakerClient wraps a store client with circuit breaker protection
type CircuitBreakerClient struct {
	client  *Client
	breaker *gobreaker.CircuitBreaker
}

// NewCircuitBreakerClient creates a new circuit breaker wrapped store client
func NewCircuitBreakerClient(client *Client, name string, config CircuitBreakerConfig) *CircuitBreakerClient {
	settings := gobreaker.Settings{
		Name:          name,
		MaxRequests:   config.MaxRequests,
		Interval:      config.Interval,
		Timeout:       config.Timeout,
		ReadyToTrip:   config.ReadyToTrip,
		OnStateChange: config.OnStateChange,
	}

	return &CircuitBreakerClient{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Query wraps the client's Query with circuit breaker protection
func (cb *CircuitBreakerClient) Query(ctx context.Context, query string) (*ResultSet, error) {
	result, err := cb.breaker.Execute(func() (interface{}, error) {
		return cb.client.Query(ctx, query)
	})

	if err != nil {
		// Preserve the typed error so the orchestrator can still branch on it
		if execErr, ok := err.(*ExecutionError); ok {
			return nil, execErr
		}
		return nil, &ExecutionError{Kind: ErrKindConnection, Message: "analytical store unavailable", Cause: err}
	}

	return result.(*ResultSet), nil
}

// Summarize wraps the client's Summarize with circuit breaker protection
func (cb *CircuitBreakerClient) Summarize(ctx context.Context) (*DatasetSummary, error) {
	result, err := cb.breaker.Execute(func() (interface{}, error) {
		return cb.client.Summarize(ctx)
	})

	if err != nil {
		return nil, fmt.Errorf("circuit breaker: %w", err)
	}

	return result.(*DatasetSummary), nil
}

// Ping wraps the client's Ping with circuit breaker protection
func (cb *CircuitBreakerClient) Ping(ctx context.Context) error {
	_, err := cb.breaker.Execute(func() (interface{}, error) {
		return nil, cb.client.Ping(ctx)
	})
	return err
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreakerClient) State() gobreaker.State {
	return cb.breaker.State()
}

// Counts returns the current failure counts
func (cb *CircuitBreakerClient) Counts() gobreaker.Counts {
	return cb.breaker.Counts()
}
