// Package backoff provides the single retry-with-backoff combinator shared by
// the account lock-conflict path and the settlement retry scheduler.
package backoff

import (
	"context"
	"math/rand"
	"time"
)

// Policy describes a bounded exponential backoff: delays of
// Base, 2*Base, 4*Base, ... with optional jitter added on top.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	// Jitter is the upper bound of a uniform random addition to each delay.
	// Zero disables jitter (used where deterministic scheduling is stored).
	Jitter time.Duration
}

// Delay returns the backoff delay scheduled after the given zero-based
// attempt: Base * 2^attempt, without jitter.
func (p Policy) Delay(attempt int) time.Duration {
	d := p.Base
	for i := 0; i < attempt; i++ {
		d *= 2
	}
	return d
}

// sleep honors context cancellation while waiting.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retry runs fn up to MaxAttempts times. fn reports via retryable whether a
// failure is worth another attempt; the last error is returned once attempts
// are exhausted or a non-retryable error occurs.
func Retry(ctx context.Context, p Policy, fn func() error, retryable func(error) bool) error {
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts-1 {
			break
		}
		delay := p.Delay(attempt)
		if p.Jitter > 0 {
			delay += time.Duration(rand.Int63n(int64(p.Jitter)))
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}
