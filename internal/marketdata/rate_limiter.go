package marketdata

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a per-provider rolling-minute request count, a
// max-concurrency semaphore, and a per-call minimum delay.
type RateLimiter struct {
	mu          sync.Mutex
	windowStart time.Time
	count       int
	limit       RateLimit
	sem         chan struct{}
	lastCall    time.Time
}

// NewRateLimiter builds a limiter for the given contract.
func NewRateLimiter(limit RateLimit) *RateLimiter {
	width := limit.MaxConcurrency
	if width <= 0 {
		width = 1
	}
	return &RateLimiter{
		limit: limit,
		sem:   make(chan struct{}, width),
	}
}

// Acquire blocks until a request slot is available, respecting the
// concurrency semaphore, the rolling-minute counter, and the min delay.
// The caller must call Release when the request completes.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.mu.Lock()
	now := time.Now()
	if r.windowStart.IsZero() || now.Sub(r.windowStart) >= time.Minute {
		r.windowStart = now
		r.count = 0
	}
	r.count++
	waitForWindow := time.Duration(0)
	if r.limit.RequestsPerMinute > 0 && r.count > r.limit.RequestsPerMinute {
		waitForWindow = time.Minute - now.Sub(r.windowStart)
	}
	waitForDelay := time.Duration(0)
	if r.limit.MinDelayMillis > 0 && !r.lastCall.IsZero() {
		elapsed := now.Sub(r.lastCall)
		minDelay := time.Duration(r.limit.MinDelayMillis) * time.Millisecond
		if elapsed < minDelay {
			waitForDelay = minDelay - elapsed
		}
	}
	r.lastCall = now
	r.mu.Unlock()

	wait := waitForWindow
	if waitForDelay > wait {
		wait = waitForDelay
	}
	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			<-r.sem
			return ctx.Err()
		}
	}
	return nil
}

// Release frees the concurrency slot acquired by Acquire.
func (r *RateLimiter) Release() {
	<-r.sem
}
