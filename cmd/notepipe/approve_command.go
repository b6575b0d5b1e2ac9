package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"notepipe/internal/config"
)

func newApproveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <file>...",
		Short: "Mark analyzed transcripts as approved for upload",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := ctx.ensurePipeline()
			if err != nil {
				return err
			}

			paths := make([]string, 0, len(args))
			for _, arg := range args {
				expanded, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				paths = append(paths, expanded)
			}

			approved, err := p.Approve(cmd.Context(), paths)
			fmt.Fprintf(cmd.OutOrStdout(), "Approved %d transcript(s)\n", approved)
			return err
		},
	}
}
