package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"notepipe/internal/pipeline"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the Gemini CLI and Open Notebook connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.ensurePipeline()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			failed := false

			for _, check := range healthChecks(p) {
				if err := check.run(cmd); err != nil {
					failed = true
					fmt.Fprintln(out, renderStatusLine(check.label, statusError, err.Error(), colorize))
					continue
				}
				fmt.Fprintln(out, renderStatusLine(check.label, statusOK, "", colorize))
			}

			if failed {
				return errors.New("one or more health checks failed")
			}
			return nil
		},
	}
}

type healthCheck struct {
	label string
	run   func(*cobra.Command) error
}

func healthChecks(p *pipeline.Pipeline) []healthCheck {
	return []healthCheck{
		{label: "Gemini CLI", run: func(cmd *cobra.Command) error { return p.AnalyzerHealth(cmd.Context()) }},
		{label: "Open Notebook", run: func(cmd *cobra.Command) error { return p.UploaderHealth(cmd.Context()) }},
	}
}
