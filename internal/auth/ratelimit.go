package auth

import (
	"sync"
	"time"
)

// clientWindow holds one client's request timestamps for the sliding window
type clientWindow struct {
	requests []time.Time
	mutex    sync.Mutex
	lastSeen time.Time
}

// RateLimiter bounds how many questions a client can ask per minute. The
// window slides: each request is checked against the timestamps of the
// preceding sixty seconds.
type RateLimiter struct {
	clients map[string]*clientWindow
	mutex   sync.RWMutex
}

var (
	globalRateLimiter *RateLimiter
	once              sync.Once
)

// NewRateLimiter creates a rate limiter and starts its idle-client sweeper
func NewRateLimiter() *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientWindow),
	}

	go rl.sweepLoop()

	return rl
}

// Allow reports whether the client is still under its per-minute budget,
// recording the request when it is
func (rl *RateLimiter) Allow(clientID string, limitPerMinute int) bool {
	rl.mutex.Lock()
	client, exists := rl.clients[clientID]
	if !exists {
		client = &clientWindow{
			requests: make([]time.Time, 0),
			lastSeen: time.Now(),
		}
		rl.clients[clientID] = client
	}
	rl.mutex.Unlock()

	return client.allow(limitPerMinute)
}

func (cw *clientWindow) allow(limitPerMinute int) bool {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()

	now := time.Now()
	windowStart := now.Add(-time.Minute)

	cw.dropBefore(windowStart)

	if len(cw.requests) >= limitPerMinute {
		return false
	}

	cw.requests = append(cw.requests, now)
	cw.lastSeen = now

	return true
}

// dropBefore discards request timestamps that fell out of the window
func (cw *clientWindow) dropBefore(windowStart time.Time) {
	kept := make([]time.Time, 0, len(cw.requests))
	for _, req := range cw.requests {
		if req.After(windowStart) {
			kept = append(kept, req)
		}
	}
	cw.requests = kept
}

// sweep drops clients idle for five minutes so the map stays bounded
func (rl *RateLimiter) sweep() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	cutoff := time.Now().Add(-5 * time.Minute)

	for clientID, client := range rl.clients {
		client.mutex.Lock()
		if client.lastSeen.Before(cutoff) {
			delete(rl.clients, clientID)
		}
		client.mutex.Unlock()
	}
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.sweep()
	}
}

// GetStats returns rate limiting statistics for the admin endpoint
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.mutex.RLock()
	defer rl.mutex.RUnlock()

	stats := make(map[string]interface{})
	stats["total_clients"] = len(rl.clients)

	clientStats := make([]map[string]interface{}, 0, len(rl.clients))
	for clientID, client := range rl.clients {
		client.mutex.Lock()
		clientStats = append(clientStats, map[string]interface{}{
			"client_id":     clientID,
			"request_count": len(client.requests),
			"last_request":  client.lastSeen,
		})
		client.mutex.Unlock()
	}
	stats["clients"] = clientStats

	return stats
}

// GetGlobalRateLimiter returns the process-wide limiter shared by the auth
// middleware
func GetGlobalRateLimiter() *RateLimiter {
	once.Do(func() {
		globalRateLimiter = NewRateLimiter()
	})
	return globalRateLimiter
}

// CheckRateLimit checks a request against the global limiter
func CheckRateLimit(clientID string, limitPerMinute int) bool {
	return GetGlobalRateLimiter().Allow(clientID, limitPerMinute)
}

// GetRateLimitStats reads statistics from the global limiter
func GetRateLimitStats() map[string]interface{} {
	return GetGlobalRateLimiter().GetStats()
}
