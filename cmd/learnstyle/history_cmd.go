package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"learnstyle/internal/common"
)

func historyCmd(rootConfig *rootCmdConfig) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded predictions",
		Long:  `Print the most recent entries of the prediction journal, newest first`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := rootConfig.openJournal()
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("no journal configured: set %s", common.EnvDataPath)
			}
			defer store.Close()

			entries, err := store.Recent(limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(rootConfig.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tSOURCE\tOUTCOME\tVOTES\tLATENCY")
			for _, e := range entries {
				outcome := e.Label
				if !e.Succeeded() {
					outcome = "error: " + e.Error
				}
				votes := "-"
				if len(e.Votes) > 0 {
					votes = fmt.Sprintf("%d/%d", e.Votes.Count(e.Label), e.Votes.Total())
				} else if e.VoteError != "" {
					votes = "failed"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Format(time.DateTime), e.Source, outcome, votes, e.Latency.Round(time.Millisecond))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show, 0 for all")
	return cmd
}
