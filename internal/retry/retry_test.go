package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"notepipe/internal/services"
)

type statusErr struct{ code int }

func (e *statusErr) Error() string   { return fmt.Sprintf("http %d", e.code) }
func (e *statusErr) HTTPStatus() int { return e.code }

func TestBackoffDelaysDoubleAndCap(t *testing.T) {
	policy := NewBackoff(3*time.Second, 60*time.Second, 5)
	wants := []time.Duration{3 * time.Second, 6 * time.Second, 12 * time.Second, 24 * time.Second, 48 * time.Second}
	for i, want := range wants {
		if got := policy.Delay(i + 1); got != want {
			t.Fatalf("delay(%d) = %v, want %v", i+1, got, want)
		}
	}
	if got := policy.Delay(10); got != 60*time.Second {
		t.Fatalf("delay should cap at max, got %v", got)
	}
}

func TestBackoffRetriesOnlyRetryableMarkers(t *testing.T) {
	policy := NewBackoff(time.Millisecond, time.Second, 3)
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limit", services.ErrRateLimit, true},
		{"timeout", services.ErrTimeout, true},
		{"transient", services.ErrTransient, true},
		{"wrapped rate limit", fmt.Errorf("x: %w", services.ErrRateLimit), true},
		{"validation", services.ErrValidation, false},
		{"plain", errors.New("boom"), false},
		{"canceled", context.Canceled, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := policy.ShouldRetry(tc.err, 1); got != tc.want {
				t.Fatalf("ShouldRetry(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
	if policy.ShouldRetry(services.ErrRateLimit, 3) {
		t.Fatal("final attempt must not retry")
	}
}

func TestTerminalMarkersNeverRetry(t *testing.T) {
	// Terminal markers win even when a retryable marker sits in the chain.
	err := services.Wrap(services.ErrValidation, "uploading", "create source", "bad payload",
		fmt.Errorf("x: %w", services.ErrTransient))

	backoff := NewBackoff(time.Millisecond, time.Second, 3)
	if backoff.ShouldRetry(err, 1) {
		t.Fatal("backoff must not retry terminal failures")
	}
	fixed := NewFixedDelay(time.Millisecond, 3)
	if fixed.ShouldRetry(err, 1) {
		t.Fatal("fixed delay must not retry terminal failures")
	}
	if !fixed.ShouldRetry(fmt.Errorf("x: %w", services.ErrTransient), 1) {
		t.Fatal("transient failures without a terminal marker still retry")
	}
}

func TestFixedDelayRetryMatrix(t *testing.T) {
	policy := NewFixedDelay(5*time.Second, 3)
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"503", &statusErr{503}, true},
		{"500", &statusErr{500}, true},
		{"429", &statusErr{429}, true},
		{"404", &statusErr{404}, false},
		{"401", &statusErr{401}, false},
		{"400", &statusErr{400}, false},
		{"timeout marker", services.ErrTimeout, true},
		{"transient marker", services.ErrTransient, true},
		{"plain", errors.New("x"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := policy.ShouldRetry(tc.err, 1); got != tc.want {
				t.Fatalf("ShouldRetry(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
	if got := policy.Delay(1); got != 5*time.Second {
		t.Fatalf("delay = %v", got)
	}
	if got := policy.Delay(7); got != 5*time.Second {
		t.Fatalf("delay must stay constant, got %v", got)
	}
}

func TestDoFixedDelayRecoversAfterTwo503s(t *testing.T) {
	policy := NewFixedDelay(5*time.Second, 3)
	codes := []int{503, 503, 200}
	var slept []time.Duration
	attempts := 0

	err := Do(context.Background(), policy, func(d time.Duration) { slept = append(slept, d) }, func(attempt int) error {
		attempts++
		if codes[attempt-1] != 200 {
			return &statusErr{codes[attempt-1]}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
	if len(slept) != 2 || slept[0] != 5*time.Second || slept[1] != 5*time.Second {
		t.Fatalf("slept = %v, want two fixed 5s delays", slept)
	}
}

func TestDoBackoffQuotaSignalThenSuccess(t *testing.T) {
	base := 3 * time.Second
	policy := NewBackoff(base, 60*time.Second, 3)
	var slept []time.Duration
	attempts := 0

	err := Do(context.Background(), policy, func(d time.Duration) { slept = append(slept, d) }, func(attempt int) error {
		attempts++
		if attempt < 3 {
			return fmt.Errorf("quota: %w", services.ErrRateLimit)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d", attempts)
	}
	if len(slept) != 2 || slept[0] != base || slept[1] != 2*base {
		t.Fatalf("slept = %v, want [%v %v]", slept, base, 2*base)
	}
}

func TestDoSurfacesTypedErrorUnchangedOnExhaustion(t *testing.T) {
	policy := NewFixedDelay(time.Millisecond, 2)
	final := &statusErr{503}

	err := Do(context.Background(), policy, func(time.Duration) {}, func(int) error {
		return final
	})
	var coder StatusCoder
	if !errors.As(err, &coder) || coder.HTTPStatus() != 503 {
		t.Fatalf("typed error lost on exhaustion: %v", err)
	}
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := NewBackoff(time.Millisecond, time.Second, 5)
	attempts := 0

	err := Do(ctx, policy, func(time.Duration) { cancel() }, func(int) error {
		attempts++
		return services.ErrTransient
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (cancel during sleep stops the loop)", attempts)
	}
}

func TestDoNonRetryableFailsImmediately(t *testing.T) {
	policy := NewBackoff(time.Millisecond, time.Second, 5)
	attempts := 0

	err := Do(context.Background(), policy, func(time.Duration) {}, func(int) error {
		attempts++
		return &statusErr{400}
	})
	if err == nil || attempts != 1 {
		t.Fatalf("err=%v attempts=%d, want single failed attempt", err, attempts)
	}
}
