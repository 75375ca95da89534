// Package session keeps per-conversation question history in Redis so the
// API can show users what they asked and how each question was answered.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	historyPrefix     = "history:"
	conversationIDLen = 16

	// maxTurns caps how many turns a conversation retains. Older turns are
	// trimmed on append.
	maxTurns = 50
)

// Turn is one question/answer exchange in a conversation
type Turn struct {
	Question string    `json:"question"`
	SQL      string    `json:"sql"`
	Source   string    `json:"source"`
	Chart    string    `json:"chart"`
	Insight  string    `json:"insight"`
	AskedAt  time.Time `json:"asked_at"`
}

// History stores conversation turns in Redis lists, one list per conversation
type History struct {
	redis  *redis.Client
	expiry time.Duration
}

// NewHistory creates a new conversation history store
func NewHistory(redisClient *redis.Client, expiry time.Duration) *History {
	return &History{
		redis:  redisClient,
		expiry: expiry,
	}
}

// NewConversationID generates a cryptographically random conversation ID
func NewConversationID() (string, error) {
	b := make([]byte, conversationIDLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Append records a turn at the end of the conversation and refreshes its TTL
func (h *History) Append(ctx context.Context, conversationID string, turn Turn) error {
	if turn.AskedAt.IsZero() {
		turn.AskedAt = time.Now()
	}

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	key := historyPrefix + conversationID
	pipe := h.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -maxTurns, -1)
	pipe.Expire(ctx, key, h.expiry)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store turn: %w", err)
	}

	return nil
}

// Recent returns up to limit most recent turns, oldest first. A missing
// conversation yields an empty slice, not an error.
func (h *History) Recent(ctx context.Context, conversationID string, limit int) ([]Turn, error) {
	if limit <= 0 || limit > maxTurns {
		limit = maxTurns
	}

	key := historyPrefix + conversationID
	entries, err := h.redis.LRange(ctx, key, int64(-limit), -1).Result()
	if err == redis.Nil {
		return []Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	turns := make([]Turn, 0, len(entries))
	for _, entry := range entries {
		var turn Turn
		if err := json.Unmarshal([]byte(entry), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, turn)
	}

	return turns, nil
}

// Clear removes all turns for a conversation
func (h *History) Clear(ctx context.Context, conversationID string) error {
	key := historyPrefix + conversationID
	return h.redis.Del(ctx, key).Err()
}
