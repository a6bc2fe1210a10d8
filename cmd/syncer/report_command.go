package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"syncer/internal/ipc"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var summary bool
	var limit int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the profiler call tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Report(ipc.ReportRequest{Summary: summary, Limit: limit})
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if !summary {
					if resp.Text == "" {
						fmt.Fprintln(stdout, "No samples recorded yet")
						return nil
					}
					fmt.Fprint(stdout, resp.Text)
					return nil
				}
				if len(resp.Frames) == 0 {
					fmt.Fprintln(stdout, "No samples recorded yet")
					return nil
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Symbol", "Location", "Samples", "Self (s)", "Total (s)", "Per call (s)"},
					frameRows(resp.Frames),
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "Show a table of the frames with the most self time")
	cmd.Flags().IntVarP(&limit, "limit", "n", 15, "Number of frames in the summary")
	return cmd
}

func frameRows(frames []ipc.FrameSummary) [][]string {
	rows := make([][]string, 0, len(frames))
	for _, f := range frames {
		rows = append(rows, []string{
			f.Symbol,
			f.Unit + ":" + strconv.Itoa(f.Line),
			formatCount(f.Count),
			formatSeconds(f.SelfSeconds),
			formatSeconds(f.TotalSeconds),
			formatSeconds(f.PerCallSeconds),
		})
	}
	return rows
}
