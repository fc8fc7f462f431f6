package gateway

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter is a per-client token bucket keyed by client id, sized at
// rpm requests per minute with burst as given. rpm <= 0 disables limiting
// entirely (Allow always returns true).
type RateLimiter struct {
	rpm   int
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter builds a limiter. rpm <= 0 disables it.
func NewRateLimiter(rpm, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{rpm: rpm, burst: burst, limiters: make(map[string]*rate.Limiter)}
}

// Enabled reports whether rate limiting is active.
func (rl *RateLimiter) Enabled() bool { return rl.rpm > 0 }

// Allow reports whether clientID may make one more request right now,
// lazily creating its bucket on first use.
func (rl *RateLimiter) Allow(clientID string) bool {
	if !rl.Enabled() {
		return true
	}
	rl.mu.Lock()
	lim, ok := rl.limiters[clientID]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(rl.rpm)/60.0), rl.burst)
		rl.limiters[clientID] = lim
	}
	rl.mu.Unlock()
	return lim.Allow()
}
