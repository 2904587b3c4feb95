package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the web proxy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.rest().HealthCheck(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (upstream %s) at %s\n", res.Status, res.Upstream, res.Timestamp)
			return nil
		},
	}
}
