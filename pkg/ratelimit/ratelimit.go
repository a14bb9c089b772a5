// Package ratelimit paces outbound work: fixed courtesy pauses between
// paginated API calls, and a ticker-based limiter with optional jitter for
// page crawls.
package ratelimit

import (
	"context"
	"math/rand"
	"time"
)

// Pause blocks for d or until ctx is done. A non-positive d returns
// immediately.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Limiter spaces operations at a steady rate with optional jitter.
// It is safe for concurrent use.
type Limiter struct {
	ticker   *time.Ticker
	jitter   float64 // 0.0 to 1.0
	interval time.Duration
	ch       <-chan time.Time
}

// NewLimiter creates a limiter allowing rps operations per second. jitter
// is clamped to [0, 1]. If rps is <= 0 the limiter never blocks.
func NewLimiter(rps float64, jitter float64) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}

	jitter = min(max(jitter, 0), 1)
	interval := time.Duration(float64(time.Second) / rps)
	ticker := time.NewTicker(interval)

	return &Limiter{
		ticker:   ticker,
		jitter:   jitter,
		interval: interval,
		ch:       ticker.C,
	}
}

// Wait blocks until the next slot or until ctx is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.ch == nil {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ch:
	}

	if l.jitter == 0 {
		return nil
	}
	// Ticks cannot arrive early, so only the positive half of the jitter
	// range delays anything.
	factor := rand.Float64()*2 - 1
	extra := time.Duration(float64(l.interval) * l.jitter * factor)
	if extra <= 0 {
		return nil
	}
	return Pause(ctx, extra)
}

// Stop releases the ticker.
func (l *Limiter) Stop() {
	if l != nil && l.ticker != nil {
		l.ticker.Stop()
	}
}
