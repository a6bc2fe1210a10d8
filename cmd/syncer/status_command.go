package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"syncer/internal/deps"
	"syncer/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dispatch and task status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, line := range daemonStatusLines(status, time.Now(), colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Tasks", colorize) {
					fmt.Fprintln(stdout, line)
				}
				if len(status.Tasks) == 0 {
					fmt.Fprintln(stdout, "No tasks registered")
				} else {
					fmt.Fprintln(stdout, renderTable(
						[]string{"Task", "Thread", "Running", "Restarts", "Last error"},
						taskRows(status.Tasks),
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
					))
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Dependencies", colorize) {
					fmt.Fprintln(stdout, line)
				}
				statuses := deps.CheckBinaries(deps.DovecotRequirements(ctx.currentConfig()))
				for _, line := range dependencyLines(statuses, colorize) {
					fmt.Fprintln(stdout, line)
				}
				return nil
			})
		},
	}
}
