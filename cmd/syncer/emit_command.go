package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"syncer/internal/dovecot"
	"syncer/internal/events"
	"syncer/internal/logging"
)

func newEmitCommand(ctx *commandContext) *cobra.Command {
	var change, guid, pipe string

	cmd := &cobra.Command{
		Use:   "emit <user> <mailbox>",
		Short: "Write one change event into the daemon pipe",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.currentConfig()
			path := strings.TrimSpace(pipe)
			if path == "" {
				path = strings.TrimSpace(cfg.Syncer.PipePath)
			}
			if path == "" {
				resolved, err := resolvePipe(cmd.Context(), dovecot.NewRunner(cfg, logging.NewNop()))
				if err != nil {
					return err
				}
				path = resolved
			}

			ev := events.Event{
				ChangeType:  change,
				UserName:    args[0],
				MailboxName: args[1],
				MailboxGUID: guid,
			}
			if err := events.WriteEvent(path, ev); err != nil {
				if errors.Is(err, events.ErrNoReader) {
					return fmt.Errorf("pipe %s has no reader; is the daemon running?", path)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", ev.Line())
			return nil
		},
	}
	cmd.Flags().StringVar(&change, "change", "mailbox_create", "Change type (chng_type)")
	cmd.Flags().StringVar(&guid, "guid", "", "Mailbox GUID (mbox_guid)")
	cmd.Flags().StringVar(&pipe, "pipe", "", "Pipe path (defaults to syncer.pipe_path)")
	return cmd
}

func resolvePipe(ctx context.Context, runner dovecot.Runner) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	path, err := dovecot.NewConf(runner).SyncerPipe(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve pipe path: %w", err)
	}
	return path, nil
}
