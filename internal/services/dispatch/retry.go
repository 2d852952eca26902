package dispatch

import (
	"context"
	"time"
)

// RetryPolicy bounds the delivery attempts for one message. The target
// site's UI has no stable contract, so every unexpected failure feeds the
// same retry path instead of propagating.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     bool // Double the delay after each failed attempt
}

// NewRetryPolicy creates a policy from dispatch configuration
func NewRetryPolicy(maxAttempts int, delay time.Duration, backoff bool) *RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &RetryPolicy{
		MaxAttempts: maxAttempts,
		Delay:       delay,
		Backoff:     backoff,
	}
}

// NextDelay returns the wait before the given (1-based) attempt number
func (p *RetryPolicy) NextDelay(attempt int) time.Duration {
	if !p.Backoff || attempt <= 1 {
		return p.Delay
	}
	delay := p.Delay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// Wait sleeps for the retry delay before the given attempt, honoring
// context cancellation
func (p *RetryPolicy) Wait(ctx context.Context, attempt int) error {
	delay := p.NextDelay(attempt)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
