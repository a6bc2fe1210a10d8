package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"syncer/internal/daemonctl"
)

const (
	startTimeout = 10 * time.Second
	stopGrace    = 5 * time.Second
)

func newStartCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Launch syncerd in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			daemonPath, err := daemonctl.ResolveDaemonBinary(exe)
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(ctx.socketPath(), daemonPath, daemonctl.LaunchOptions{
				ConfigPath: strings.TrimSpace(ctx.configFile),
				LogLevel:   logLevel,
			}, startTimeout)
			if err != nil {
				return err
			}

			verb := "started"
			if result.State == daemonctl.StartStateAlreadyRunning {
				verb = "already running"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Daemon %s (pid %d)\n", verb, result.PID)
			return nil
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level for the daemon")
	return cmd
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the syncer daemon, killing it if it does not exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfg := *ctx.currentConfig()
			cfg.Paths.SocketPath = ctx.socketPath()

			result, err := daemonctl.StopAndTerminate(&cfg, stopGrace)
			switch {
			case errors.Is(err, daemonctl.ErrDaemonNotRunning):
				fmt.Fprintln(out, "Daemon is not running")
				return nil
			case err != nil:
				return err
			case result.ForcedKill && result.PID > 0:
				fmt.Fprintf(out, "Daemon did not exit within %s; killed pid %d\n", stopGrace, result.PID)
			case !result.StopAcknowledged:
				fmt.Fprintln(out, "Stop request sent; daemon exited")
			default:
				fmt.Fprintln(out, "Daemon stopped")
			}
			return nil
		},
	}
}
