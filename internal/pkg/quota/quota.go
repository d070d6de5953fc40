// Package quota enforces per-repository write-rate limits for the
// replication log, one token bucket per repository name.
package quota

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter tracks one rate.Limiter per repository key, lazily created on
// first use with the configured burst/refill.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter

	perWindow int
	window    time.Duration
}

// New returns a Limiter allowing perWindow writes per window, per
// repository key.
func New(perWindow int, window time.Duration) *Limiter {
	return &Limiter{
		buckets:   make(map[string]*rate.Limiter),
		perWindow: perWindow,
		window:    window,
	}
}

// Allow reports whether a write to key is permitted right now, consuming
// one token if so.
func (l *Limiter) Allow(key string) bool {
	return l.bucketFor(key).Allow()
}

func (l *Limiter) bucketFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		// refill rate: perWindow tokens spread evenly across window,
		// burst capacity equal to perWindow so a quiet repository can
		// still burst up to its full per-window allowance.
		r := rate.Every(l.window / time.Duration(l.perWindow))
		b = rate.NewLimiter(r, l.perWindow)
		l.buckets[key] = b
	}

	return b
}
