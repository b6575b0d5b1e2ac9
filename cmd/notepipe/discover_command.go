package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newDiscoverCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Scan the transcripts directory and list files ready for analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.ensurePipeline()
			if err != nil {
				return err
			}

			candidates, stats, err := p.Discover(cmd.Context(), force)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(candidates) == 0 {
				fmt.Fprintln(out, "No transcripts ready for analysis.")
			} else {
				rows := make([][]string, 0, len(candidates))
				for _, candidate := range candidates {
					rows = append(rows, []string{
						candidate.Channel,
						candidate.Title,
						strconv.Itoa(candidate.WordCount),
						candidate.Path,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Channel", "Title", "Words", "Path"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				))
			}

			fmt.Fprintf(out, "Scanned %d file(s): %d ready, %d already processed, %d below word count, %d outside channel whitelist\n",
				stats.TotalScanned, stats.Ready, stats.FilteredByStatus, stats.FilteredByWordCount, stats.FilteredByChannel)
			if stats.Unreadable > 0 || stats.ParseFailed > 0 {
				fmt.Fprintf(out, "Warnings: %d unreadable, %d with malformed frontmatter\n", stats.Unreadable, stats.ParseFailed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Readmit previously failed transcripts")
	return cmd
}
