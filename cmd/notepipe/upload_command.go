package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"notepipe/internal/pipeline"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Push approved transcripts to Open Notebook",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.ensurePipeline()
			if err != nil {
				return err
			}

			stats, err := p.Upload(cmd.Context(), dryRun)
			printUploadStats(cmd, stats, dryRun)
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be uploaded without calling the API")
	return cmd
}

func printUploadStats(cmd *cobra.Command, stats pipeline.UploadStats, dryRun bool) {
	out := cmd.OutOrStdout()
	if dryRun {
		fmt.Fprintf(out, "Would upload %d transcript(s) (%d scanned)\n", stats.WouldUpload, stats.Scanned)
		return
	}
	fmt.Fprintf(out, "Uploaded %d transcript(s), %d failed (%d scanned, %d awaiting review, %d previously failed)\n",
		stats.Uploaded, stats.Failed, stats.Scanned, stats.SkippedPending, stats.SkippedFailed)
	if stats.Restored > 0 {
		fmt.Fprintf(out, "Re-filed %d transcript(s) whose upload had already completed\n", stats.Restored)
	}
}
