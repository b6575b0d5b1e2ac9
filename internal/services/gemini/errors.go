package gemini

import (
	"fmt"
	"strings"
	"time"

	"notepipe/internal/services"
)

// quotaMarker appears on stderr when the CLI's API quota is exhausted.
const quotaMarker = "exhausted your capacity"

// RateLimitError reports quota exhaustion that survived every backoff
// attempt. RetryAfter carries the last computed backoff delay as a hint for
// when the caller might try again.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("gemini quota exhausted (retry after %s)", e.RetryAfter)
	}
	return "gemini quota exhausted"
}

func (e *RateLimitError) Is(target error) bool {
	return target == services.ErrRateLimit
}

// TimeoutError reports that a CLI invocation exceeded its deadline.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("gemini call timed out after %s", e.Timeout)
}

func (e *TimeoutError) Is(target error) bool {
	return target == services.ErrTimeout
}

// CallError reports a non-zero CLI exit that is not quota-related.
type CallError struct {
	ExitCode int
	Stderr   string
}

func (e *CallError) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" {
		return fmt.Sprintf("gemini exited with code %d", e.ExitCode)
	}
	return fmt.Sprintf("gemini exited with code %d: %s", e.ExitCode, detail)
}

func (e *CallError) Is(target error) bool {
	return target == services.ErrExternalTool
}

func isQuotaExhausted(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), quotaMarker)
}
