package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"notepipe/internal/pipeline"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run eligible transcripts through the model and stage them for review",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.ensurePipeline()
			if err != nil {
				return err
			}

			stats, err := p.Analyze(cmd.Context(), force)
			printAnalyzeStats(cmd, stats)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Readmit previously failed transcripts")
	return cmd
}

func printAnalyzeStats(cmd *cobra.Command, stats pipeline.AnalyzeStats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Analyzed %d transcript(s), %d failed (%d scanned, %d admitted)\n",
		stats.Analyzed, stats.Failed, stats.Discovery.TotalScanned, stats.Discovery.Ready)
}
