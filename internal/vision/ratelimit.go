package vision

import (
	"context"
	"sync"
	"time"
)

// rateLimiter is a small token bucket sized in requests per minute. Upstream
// image/video models have tight free-tier quotas, so every provider call
// goes through one of these.
type rateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate time.Duration
	lastRefill time.Time
}

func newRateLimiter(requestsPerMinute int) *rateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 8
	}
	return &rateLimiter{
		tokens:     requestsPerMinute,
		maxTokens:  requestsPerMinute,
		refillRate: time.Minute / time.Duration(requestsPerMinute),
		lastRefill: time.Now(),
	}
}

// wait blocks until a token is available or the context is cancelled.
func (rl *rateLimiter) wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := time.Now()
		refill := int(now.Sub(rl.lastRefill) / rl.refillRate)
		if refill > 0 {
			rl.tokens += refill
			if rl.tokens > rl.maxTokens {
				rl.tokens = rl.maxTokens
			}
			rl.lastRefill = now
		}
		if rl.tokens > 0 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		rl.mu.Unlock()

		select {
		case <-time.After(rl.refillRate):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
