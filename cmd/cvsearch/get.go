package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one candidate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail := c.api().GetCandidate(cmd.Context(), args[0])

			if c.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), detail)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:      %s\n", detail.ID)
			fmt.Fprintf(out, "name:    %s\n", orDash(detail.Name))
			fmt.Fprintf(out, "email:   %s\n", orDash(detail.Email))
			fmt.Fprintf(out, "phone:   %s\n", orDash(detail.Phone))
			fmt.Fprintf(out, "score:   %.2f\n", detail.Score)
			if detail.Summary != "" {
				fmt.Fprintf(out, "summary: %s\n", detail.Summary)
			}
			fmt.Fprintf(out, "pdf:     %s\n", detail.PdfURL)
			return nil
		},
	}
}
