package sieve

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"syncer/internal/dovecot"
	"syncer/internal/logging"
)

// Invoker applies a user's active sieve script to one mailbox.
type Invoker struct {
	runner dovecot.Runner
	conf   *dovecot.Conf
	logger *slog.Logger
}

// NewInvoker constructs an Invoker.
func NewInvoker(runner dovecot.Runner, logger *slog.Logger) *Invoker {
	return &Invoker{
		runner: runner,
		conf:   dovecot.NewConf(runner),
		logger: logging.NewComponentLogger(logger, "sieve"),
	}
}

// InvokeFilters runs sieve-filter over mailbox when the user has an active
// script. A user without one is skipped silently.
func (i *Invoker) InvokeFilters(ctx context.Context, user, mailbox string) error {
	script, err := i.conf.SieveActive(ctx, user)
	if err != nil {
		return err
	}
	info, err := os.Stat(script)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			i.logger.Debug("sieve filter skipped, no active script",
				logging.String(logging.FieldUser, user),
				logging.String("script", script),
			)
			return nil
		}
		return err
	}
	if !info.Mode().IsRegular() {
		i.logger.Debug("sieve filter skipped, active script is not a file",
			logging.String(logging.FieldUser, user),
			logging.String("script", script),
		)
		return nil
	}
	i.logger.Debug("sieve filter",
		logging.String(logging.FieldUser, user),
		logging.String(logging.FieldMailbox, mailbox),
		logging.String("script", script),
	)
	_, err = i.runner.Run(ctx, dovecot.Command{
		Name: dovecot.SieveFilter,
		Args: []string{"-e", "-W", "-u", user, script, mailbox},
	})
	return err
}
