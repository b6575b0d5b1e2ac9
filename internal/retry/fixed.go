package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"notepipe/internal/services"
)

const (
	defaultFixedInterval = 5 * time.Second
	defaultFixedAttempts = 3
)

// FixedDelay is the constant-interval policy bound to the Open Notebook API.
// Retries are limited to 5xx responses, 429, and connection-level timeouts;
// any other 4xx is a caller problem and surfaces immediately with its status
// code attached.
type FixedDelay struct {
	Interval    time.Duration
	MaxAttempts int
}

// NewFixedDelay builds a FixedDelay with defaults applied to zero fields.
func NewFixedDelay(interval time.Duration, maxAttempts int) FixedDelay {
	policy := FixedDelay{Interval: interval, MaxAttempts: maxAttempts}
	if policy.Interval <= 0 {
		policy.Interval = defaultFixedInterval
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = defaultFixedAttempts
	}
	return policy
}

func (f FixedDelay) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= f.attempts() {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if services.Terminal(err) {
		return false
	}

	var coder StatusCoder
	if errors.As(err, &coder) {
		code := coder.HTTPStatus()
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}

	if errors.Is(err, services.ErrTimeout) || errors.Is(err, services.ErrTransient) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func (f FixedDelay) Delay(int) time.Duration {
	if f.Interval <= 0 {
		return defaultFixedInterval
	}
	return f.Interval
}

func (f FixedDelay) attempts() int {
	if f.MaxAttempts <= 0 {
		return defaultFixedAttempts
	}
	return f.MaxAttempts
}
