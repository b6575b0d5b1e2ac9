package gemini

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"notepipe/internal/retry"
	"notepipe/internal/services"
)

const (
	defaultBinary      = "gemini"
	defaultCallTimeout = 300 * time.Second
	healthCheckTimeout = 10 * time.Second
)

// Config captures the runtime settings for the CLI wrapper.
type Config struct {
	Binary     string
	WorkDir    string
	Timeout    time.Duration
	MaxRetries int
	RetryBase  time.Duration
	RetryMax   time.Duration
}

// RunResult holds the captured output of one CLI invocation. A non-zero
// ExitCode with a nil error means the process ran and failed.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes the CLI binary. Tests inject one to avoid spawning
// processes.
type Runner func(ctx context.Context, dir, binary string, args ...string) (RunResult, error)

// Option customizes the client.
type Option func(*Client)

// WithRunner overrides how the CLI binary is executed.
func WithRunner(runner Runner) Option {
	return func(c *Client) {
		if runner != nil {
			c.runner = runner
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// Client shells out to the Gemini CLI in headless mode.
type Client struct {
	cfg     Config
	policy  retry.Backoff
	runner  Runner
	sleeper func(time.Duration)
}

// NewClient constructs a Client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = defaultBinary
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCallTimeout
	}
	client := &Client{
		cfg:    cfg,
		policy: retry.NewBackoff(cfg.RetryBase, cfg.RetryMax, cfg.MaxRetries),
		runner: runCommand,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Analyze sends the prompt through the CLI and returns stdout verbatim.
// Quota exhaustion and per-call timeouts are retried with exponential
// backoff; once attempts run out the typed error is returned unchanged so
// callers can branch on it.
func (c *Client) Analyze(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", services.Wrap(services.ErrValidation, "analyzing", "call gemini", "Prompt must not be empty", nil)
	}

	var output string
	err := retry.Do(ctx, c.policy, c.sleeper, func(attempt int) error {
		out, callErr := c.call(ctx, attempt, prompt)
		if callErr != nil {
			return callErr
		}
		output = out
		return nil
	})
	return output, err
}

func (c *Client) call(ctx context.Context, attempt int, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	res, err := c.runner(callCtx, c.cfg.WorkDir, c.cfg.Binary, "-p", prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", &TimeoutError{Timeout: c.cfg.Timeout}
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", services.Wrap(services.ErrExternalTool, "analyzing", "launch gemini", "Failed to launch the gemini binary", err)
	}
	if res.ExitCode == 0 {
		return res.Stdout, nil
	}
	if isQuotaExhausted(res.Stderr) {
		return "", &RateLimitError{RetryAfter: c.policy.Delay(attempt)}
	}
	return "", &CallError{ExitCode: res.ExitCode, Stderr: res.Stderr}
}

// Health verifies the CLI binary is installed and responds to --help.
func (c *Client) Health(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	res, err := c.runner(checkCtx, c.cfg.WorkDir, c.cfg.Binary, "--help")
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "health", "check gemini", "Gemini CLI is not available", err)
	}
	if res.ExitCode != 0 {
		return services.Wrap(services.ErrExternalTool, "health", "check gemini", "Gemini CLI health check failed",
			&CallError{ExitCode: res.ExitCode, Stderr: res.Stderr})
	}
	return nil
}

func runCommand(ctx context.Context, dir, binary string, args ...string) (RunResult, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := RunResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, err
}
