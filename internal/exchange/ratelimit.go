package exchange

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket capping outbound request rate. Every REST
// call waits on it, so the 20 req/s exchange ceiling holds no matter how
// many fetch workers run concurrently.
type Limiter struct {
	mu     sync.Mutex
	rate   float64 // tokens per second
	burst  float64
	tokens float64
	last   time.Time
}

// NewLimiter builds a limiter allowing ratePerSec sustained requests
// with the same burst capacity.
func NewLimiter(ratePerSec float64) *Limiter {
	if ratePerSec <= 0 {
		ratePerSec = 1
	}
	return &Limiter{rate: ratePerSec, burst: ratePerSec, tokens: ratePerSec, last: time.Now()}
}

// Wait blocks until a token is available or the context ends.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()
		l.tokens += now.Sub(l.last).Seconds() * l.rate
		if l.tokens > l.burst {
			l.tokens = l.burst
		}
		l.last = now
		if l.tokens >= 1 {
			l.tokens--
			l.mu.Unlock()
			return nil
		}
		wait := time.Duration((1 - l.tokens) / l.rate * float64(time.Second))
		l.mu.Unlock()

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
