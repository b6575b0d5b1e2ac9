// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"notepipe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.TranscriptsDir = filepath.Join(base, "transcripts")
	cfg.Paths.IntermediateDir = filepath.Join(base, "intermediate")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.TempDir = filepath.Join(base, "temp")
	cfg.Notebook.Password = "test"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithNotebookURL points the upload boundary at a test server.
func WithNotebookURL(url string) ConfigOption {
	return func(c *config.Config) {
		c.Notebook.BaseURL = url
	}
}

// WithItemDelay sets the inter-item pacing delay in seconds.
func WithItemDelay(seconds int) ConfigOption {
	return func(c *config.Config) {
		c.Pipeline.ItemDelaySeconds = seconds
	}
}
