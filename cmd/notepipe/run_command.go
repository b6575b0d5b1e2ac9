package main

import (
	"github.com/spf13/cobra"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Analyze then upload in one pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.ensurePipeline()
			if err != nil {
				return err
			}

			analyzeStats, uploadStats, err := p.Run(cmd.Context(), force)
			printAnalyzeStats(cmd, analyzeStats)
			printUploadStats(cmd, uploadStats, false)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Readmit previously failed transcripts")
	return cmd
}
