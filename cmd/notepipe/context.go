package main

import (
	"log/slog"
	"strings"
	"sync"

	"notepipe/internal/config"
	"notepipe/internal/logging"
	"notepipe/internal/pipeline"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	pipelineOnce sync.Once
	pipeline     *pipeline.Pipeline
	pipelineErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensurePipeline() (*pipeline.Pipeline, error) {
	c.pipelineOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.pipelineErr = err
			return
		}
		logger, err := c.buildLogger(cfg)
		if err != nil {
			c.pipelineErr = err
			return
		}
		c.pipeline = pipeline.New(cfg, logger)
	})
	return c.pipeline, c.pipelineErr
}

func (c *commandContext) buildLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.NewFromConfig(cfg)
}
