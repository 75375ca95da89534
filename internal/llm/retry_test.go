package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"rate limit", errors.New("rate limit exceeded: slow down"), true},
		{"server error 500", errors.New("API error 500: oops"), true},
		{"server error 503", errors.New("API error 503: unavailable"), true},
		{"timeout", errors.New("context deadline exceeded"), true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"invalid api key", errors.New("invalid API key: nope"), false},
		{"bad request", errors.New("bad request: malformed"), false},
		{"unknown error", errors.New("something strange"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	max := 2 * time.Second

	// With jitter in [0.5, 1.5], attempt 0 stays within [50ms, 150ms]
	for i := 0; i < 20; i++ {
		d := calculateBackoff(0, base, max)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}

	// Large attempts are capped at maxDelay * 1.5 jitter
	for i := 0; i < 20; i++ {
		d := calculateBackoff(10, base, max)
		assert.LessOrEqual(t, d, 3*time.Second)
	}
}

func TestIsHTTPStatusRetryable(t *testing.T) {
	assert.True(t, isHTTPStatusRetryable(429))
	assert.True(t, isHTTPStatusRetryable(500))
	assert.True(t, isHTTPStatusRetryable(502))
	assert.True(t, isHTTPStatusRetryable(503))
	assert.True(t, isHTTPStatusRetryable(504))
	assert.False(t, isHTTPStatusRetryable(200))
	assert.False(t, isHTTPStatusRetryable(400))
	assert.False(t, isHTTPStatusRetryable(401))
}
