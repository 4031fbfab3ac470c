package ai

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// rateLimiter is a token bucket sized in requests per minute. Tokens
// accrue lazily from elapsed time whenever a caller asks for one, so no
// background refill goroutine is needed.
type rateLimiter struct {
	last     time.Time
	perToken time.Duration
	tokens   float64
	capacity float64
	mu       sync.Mutex
}

func newRateLimiter(requestsPerMinute int) *rateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &rateLimiter{
		last:     time.Now(),
		perToken: time.Minute / time.Duration(requestsPerMinute),
		tokens:   float64(requestsPerMinute),
		capacity: float64(requestsPerMinute),
	}
}

// wait blocks until a token is available or the context ends.
func (rl *rateLimiter) wait(ctx context.Context) error {
	for {
		delay := rl.take()
		if delay <= 0 {
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// take consumes a token when one is available; otherwise it reports how
// long until the next token accrues.
func (rl *rateLimiter) take() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.tokens += float64(now.Sub(rl.last)) / float64(rl.perToken)
	rl.last = now
	if rl.tokens > rl.capacity {
		rl.tokens = rl.capacity
	}

	if rl.tokens >= 1 {
		rl.tokens--
		return 0
	}
	return time.Duration((1 - rl.tokens) * float64(rl.perToken))
}
