package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"notepipe/internal/pipeline"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Count transcripts in each pipeline stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.ensurePipeline()
			if err != nil {
				return err
			}

			report, err := p.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Pipeline status", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusTable(report))

			if warnings := statusWarnings(report); len(warnings) > 0 {
				for _, warning := range warnings {
					fmt.Fprintln(out, renderStatusLine("Attention", statusWarn, warning, colorize))
				}
			}
			return nil
		},
	}
}

func renderStatusTable(report pipeline.StatusReport) string {
	rows := [][]string{
		statusRow("transcripts", report.Transcripts),
		statusRow("pending", report.PendingDir),
		statusRow("approved", report.ApprovedDir),
	}
	return renderTable(
		[]string{"Location", "New", "Pending", "Approved", "Uploaded", "Failed", "Other", "Total"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}

func statusRow(label string, counts pipeline.StageCounts) []string {
	return []string{
		label,
		strconv.Itoa(counts.New),
		strconv.Itoa(counts.Pending),
		strconv.Itoa(counts.Approved),
		strconv.Itoa(counts.Uploaded),
		strconv.Itoa(counts.Failed),
		strconv.Itoa(counts.Unknown + counts.Corrupt),
		strconv.Itoa(counts.Total()),
	}
}

func statusWarnings(report pipeline.StatusReport) []string {
	var warnings []string
	corrupt := report.Transcripts.Corrupt + report.PendingDir.Corrupt + report.ApprovedDir.Corrupt
	if corrupt > 0 {
		warnings = append(warnings, fmt.Sprintf("%d file(s) have unreadable frontmatter", corrupt))
	}
	failed := report.Transcripts.Failed + report.PendingDir.Failed
	if failed > 0 {
		warnings = append(warnings, fmt.Sprintf("%d file(s) failed; rerun with --force to retry them", failed))
	}
	return warnings
}
