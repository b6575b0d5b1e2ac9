package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDiscovery()
	c.normalizeGemini()
	c.normalizeNotebook()
	c.normalizePipeline()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.TranscriptsDir, err = expandPath(c.Paths.TranscriptsDir); err != nil {
		return fmt.Errorf("paths.transcripts_dir: %w", err)
	}
	if c.Paths.IntermediateDir, err = expandPath(c.Paths.IntermediateDir); err != nil {
		return fmt.Errorf("paths.intermediate_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDiscovery() {
	if strings.TrimSpace(c.Discovery.Pattern) == "" {
		c.Discovery.Pattern = defaultScanPattern
	}
	if c.Discovery.MinWordCount < 0 {
		c.Discovery.MinWordCount = 0
	}
	channels := make([]string, 0, len(c.Discovery.ChannelWhitelist))
	for _, channel := range c.Discovery.ChannelWhitelist {
		if trimmed := strings.TrimSpace(channel); trimmed != "" {
			channels = append(channels, trimmed)
		}
	}
	c.Discovery.ChannelWhitelist = channels
}

func (c *Config) normalizeGemini() {
	if strings.TrimSpace(c.Gemini.Binary) == "" {
		c.Gemini.Binary = defaultGeminiBinary
	}
	if c.Gemini.TimeoutSeconds <= 0 {
		c.Gemini.TimeoutSeconds = defaultGeminiTimeout
	}
	if c.Gemini.MaxRetries <= 0 {
		c.Gemini.MaxRetries = defaultGeminiMaxRetries
	}
	if c.Gemini.RetryBaseSeconds <= 0 {
		c.Gemini.RetryBaseSeconds = defaultGeminiRetryBase
	}
	if c.Gemini.RetryMaxSeconds <= 0 {
		c.Gemini.RetryMaxSeconds = defaultGeminiRetryMax
	}
	if strings.TrimSpace(c.Gemini.DefaultTemplate) == "" {
		c.Gemini.DefaultTemplate = defaultGeminiTemplate
	}
}

func (c *Config) normalizeNotebook() {
	c.Notebook.BaseURL = strings.TrimRight(strings.TrimSpace(c.Notebook.BaseURL), "/")
	if c.Notebook.BaseURL == "" {
		c.Notebook.BaseURL = defaultNotebookBaseURL
	}
	if c.Notebook.MaxAttempts <= 0 {
		c.Notebook.MaxAttempts = defaultNotebookAttempts
	}
	if c.Notebook.RetryDelay <= 0 {
		c.Notebook.RetryDelay = defaultNotebookRetryDelay
	}
	if c.Notebook.RequestTimeout <= 0 {
		c.Notebook.RequestTimeout = defaultNotebookTimeout
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.ItemDelaySeconds < 0 {
		c.Pipeline.ItemDelaySeconds = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}
