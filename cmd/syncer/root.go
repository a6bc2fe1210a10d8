package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "syncer",
		Short:         "Control the dovecot syncer daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipsConfig(cmd) {
				return nil
			}
			_, err := ctx.loadConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&ctx.socketOverride, "socket", "", "Path to the syncer daemon socket")
	flags.StringVarP(&ctx.configFile, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(
		newStartCommand(ctx),
		newStopCommand(ctx),
		newStatusCommand(ctx),
		newReportCommand(ctx),
		newHistoryCommand(ctx),
		newLogsCommand(ctx),
		newEmitCommand(ctx),
		newConfigCommand(ctx),
	)
	return rootCmd
}
