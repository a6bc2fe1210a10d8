package sieve

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"syncer/internal/config"
	"syncer/internal/dovecot"
	"syncer/internal/fileutil"
	"syncer/internal/logging"
	"syncer/internal/services"
)

const (
	buildDirName    = "sys"
	mailboxListFile = "a_mailbox_list.txt"
	includeListFile = "a_include_list.txt"
)

// Builder regenerates and uploads a user's filters.
type Builder struct {
	runner dovecot.Runner
	conf   *dovecot.Conf
	arkon  string
	logger *slog.Logger
}

// NewBuilder constructs a Builder.
func NewBuilder(cfg *config.Config, runner dovecot.Runner, logger *slog.Logger) *Builder {
	return &Builder{
		runner: runner,
		conf:   dovecot.NewConf(runner),
		arkon:  cfg.Sieve.Arkon,
		logger: logging.NewComponentLogger(logger, "sieve"),
	}
}

// BuildFilters rebuilds <sieve_dir>/sys for user from the current mailbox
// list and uploads every base script followed by the root script.
func (b *Builder) BuildFilters(ctx context.Context, user string) error {
	b.logger.Debug("sieve build", logging.String(logging.FieldUser, user))

	sieveDir, err := b.conf.SieveDir(ctx, user)
	if err != nil {
		return err
	}
	buildDir := filepath.Join(sieveDir, buildDirName)
	if err := os.RemoveAll(buildDir); err != nil {
		return services.Wrap(services.ErrTransient, "sieve", "build", "reset build dir", err)
	}
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "sieve", "build", "create build dir", err)
	}

	mailboxes, err := dovecot.MailboxList(ctx, b.runner, user)
	if err != nil {
		return err
	}
	if err := writeList(filepath.Join(buildDir, mailboxListFile), mailboxes); err != nil {
		return err
	}

	gen := Generate(b.arkon, mailboxes)
	if err := writeList(filepath.Join(buildDir, includeListFile), gen.BaseNames()); err != nil {
		return err
	}
	for _, script := range gen.Scripts() {
		if err := fileutil.WriteFileAtomic(filepath.Join(buildDir, script.File()), []byte(script.Text), 0o644); err != nil {
			return services.Wrap(services.ErrTransient, "sieve", "build", "write "+script.File(), err)
		}
	}
	for _, script := range gen.Scripts() {
		if err := dovecot.SievePut(ctx, b.runner, user, script.Name, script.Text); err != nil {
			return err
		}
	}
	b.logger.Debug("sieve build complete",
		logging.String(logging.FieldUser, user),
		logging.Int("mailboxes", len(mailboxes)),
		logging.Int("scripts", len(gen.Bases)+1),
	)
	return nil
}

func writeList(path string, lines []string) error {
	text := strings.Join(lines, "\n")
	if text != "" {
		text += "\n"
	}
	if err := fileutil.WriteFileAtomic(path, []byte(text), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "sieve", "build", fmt.Sprintf("write %s", filepath.Base(path)), err)
	}
	return nil
}
