package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"syncer/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var batchID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently dispatched batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				stdout := cmd.OutOrStdout()
				if id := strings.TrimSpace(batchID); id != "" {
					resp, err := client.History(ipc.HistoryRequest{BatchID: id})
					if err != nil {
						return err
					}
					if len(resp.Units) == 0 {
						fmt.Fprintf(stdout, "No units recorded for batch %s\n", id)
						return nil
					}
					fmt.Fprintln(stdout, renderTable(
						[]string{"Kind", "User", "Target", "Peer", "Outcome", "Seconds", "Error"},
						unitRows(resp.Units),
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
					))
					return nil
				}

				resp, err := client.History(ipc.HistoryRequest{Limit: limit})
				if err != nil {
					return err
				}
				if len(resp.Batches) == 0 {
					fmt.Fprintln(stdout, "No batches dispatched yet")
					return nil
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Batch", "Started", "Events", "Builds", "Invokes", "Replications", "Failures"},
					batchRows(resp.Batches),
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
				))
				fmt.Fprintf(stdout, "%s batches, %s events, %s units, %s failures in total\n",
					formatCount(resp.TotalBatches), formatCount(resp.TotalEvents),
					formatCount(resp.TotalUnits), formatCount(resp.TotalFailures))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of batches to show")
	cmd.Flags().StringVar(&batchID, "batch", "", "Show the units of one batch")
	return cmd
}

func batchRows(batches []ipc.BatchSummary) [][]string {
	rows := make([][]string, 0, len(batches))
	for _, b := range batches {
		events := formatCount(int64(b.Events))
		if b.Skipped > 0 {
			events += fmt.Sprintf(" (%d skipped)", b.Skipped)
		}
		rows = append(rows, []string{
			b.ID,
			formatTimestamp(b.StartedAt),
			events,
			formatCount(int64(b.Builds)),
			formatCount(int64(b.Invokes)),
			formatCount(int64(b.Replications)),
			formatCount(int64(b.Failures)),
		})
	}
	return rows
}

func unitRows(units []ipc.UnitSummary) [][]string {
	rows := make([][]string, 0, len(units))
	for _, u := range units {
		rows = append(rows, []string{
			u.Kind,
			u.User,
			u.Target,
			u.Peer,
			u.Outcome,
			formatSeconds(u.Seconds),
			u.Error,
		})
	}
	return rows
}
