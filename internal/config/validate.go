package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateGemini(); err != nil {
		return err
	}
	if err := c.validateNotebook(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.TranscriptsDir) == "" {
		return errors.New("paths.transcripts_dir must be set")
	}
	if strings.TrimSpace(c.Paths.IntermediateDir) == "" {
		return errors.New("paths.intermediate_dir must be set")
	}
	if c.Paths.TranscriptsDir == c.Paths.IntermediateDir {
		return errors.New("paths.transcripts_dir and paths.intermediate_dir must differ")
	}
	return nil
}

func (c *Config) validateGemini() error {
	if c.Gemini.TimeoutSeconds <= 0 {
		return errors.New("gemini.timeout_seconds must be positive")
	}
	if c.Gemini.RetryBaseSeconds > c.Gemini.RetryMaxSeconds {
		return fmt.Errorf("gemini.retry_base_seconds (%d) must not exceed gemini.retry_max_seconds (%d)",
			c.Gemini.RetryBaseSeconds, c.Gemini.RetryMaxSeconds)
	}
	return nil
}

func (c *Config) validateNotebook() error {
	if !strings.HasPrefix(c.Notebook.BaseURL, "http://") && !strings.HasPrefix(c.Notebook.BaseURL, "https://") {
		return fmt.Errorf("notebook.base_url must be an http(s) URL, got %q", c.Notebook.BaseURL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognized", c.Logging.Level)
	}
	return nil
}
