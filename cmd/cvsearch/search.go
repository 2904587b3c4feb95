package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"alfredoptarigan/cv-search/internal/client"
	"alfredoptarigan/cv-search/internal/models"
)

func newSearchCmd(c *cli) *cobra.Command {
	var (
		limit   int
		offset  int
		filters client.Filters
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search eligible candidates",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := models.SearchRequest{
				Q:        strings.Join(args, " "),
				K:        limit,
				Skills:   filters.Skills,
				Sector:   filters.Sector,
				Location: filters.Location,
			}
			if cmd.Flags().Changed("offset") {
				req.Offset = &offset
				filters.Offset = &offset
			}
			if err := req.Validate(); err != nil {
				return err
			}

			res, err := c.api().SearchEligible(cmd.Context(), req.Q, limit, &filters)
			if err != nil {
				return err
			}

			if c.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return printCandidates(cmd, res)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&limit, "limit", "k", 10, "number of results (1-100)")
	f.IntVar(&offset, "offset", 0, "result offset, as returned in nextOffset")
	f.StringVar(&filters.Skills, "skills", "", "comma separated skills")
	f.StringVar(&filters.Sector, "sector", "", "sector filter")
	f.StringVar(&filters.Location, "location", "", "location filter")
	return cmd
}

func printCandidates(cmd *cobra.Command, res *models.SearchResponse) error {
	out := cmd.OutOrStdout()
	if len(res.Candidates) == 0 {
		_, err := fmt.Fprintln(out, "No candidates found.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tNAME\tEMAIL\tSKILLS\tID")
	for _, cand := range res.Candidates {
		fmt.Fprintf(tw, "%.2f\t%s\t%s\t%s\t%s\n",
			cand.Score,
			orDash(cand.Name),
			orDash(cand.Email),
			orDash(strings.Join(cand.Skills, ", ")),
			cand.ID,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if res.Total != nil {
		fmt.Fprintf(out, "\ntotal: %d\n", int(*res.Total))
	}
	if res.HasMore() {
		fmt.Fprintf(out, "more results: --offset %d\n", int(*res.NextOffset))
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
