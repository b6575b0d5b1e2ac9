package retry

import (
	"context"
	"errors"
	"time"

	"notepipe/internal/services"
)

const (
	defaultBackoffBase     = 3 * time.Second
	defaultBackoffMax      = 60 * time.Second
	defaultBackoffAttempts = 3
)

// Backoff is the quota-aware exponential policy bound to the Gemini CLI
// boundary. Delays double per attempt (base, base*2, base*4, ...) and cap at
// Max. Only quota/rate-limit, timeout, and transient failures are retried;
// everything else surfaces on the first attempt.
type Backoff struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
}

// NewBackoff builds a Backoff with defaults applied to zero fields.
func NewBackoff(base, max time.Duration, maxAttempts int) Backoff {
	policy := Backoff{Base: base, Max: max, MaxAttempts: maxAttempts}
	if policy.Base <= 0 {
		policy.Base = defaultBackoffBase
	}
	if policy.Max <= 0 {
		policy.Max = defaultBackoffMax
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = defaultBackoffAttempts
	}
	return policy
}

func (b Backoff) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= b.attempts() {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if services.Terminal(err) {
		return false
	}
	return errors.Is(err, services.ErrRateLimit) ||
		errors.Is(err, services.ErrTimeout) ||
		errors.Is(err, services.ErrTransient)
}

// Delay returns base * 2^(attempt-1), capped at Max.
func (b Backoff) Delay(attempt int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = defaultBackoffBase
	}
	max := b.Max
	if max <= 0 {
		max = defaultBackoffMax
	}
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > max/2 {
			return max
		}
		delay *= 2
	}
	if delay > max {
		return max
	}
	return delay
}

func (b Backoff) attempts() int {
	if b.MaxAttempts <= 0 {
		return defaultBackoffAttempts
	}
	return b.MaxAttempts
}
