package dovecot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"syncer/internal/config"
	"syncer/internal/logging"
	"syncer/internal/services"
)

// Tool names.
const (
	Doveconf    = "doveconf"
	Doveadm     = "doveadm"
	SieveFilter = "sieve-filter"
)

// Command is one tool invocation. Args exclude the -c config option.
type Command struct {
	Name  string
	Args  []string
	Stdin string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes dovecot tools and returns trimmed stdout.
type Runner interface {
	Run(ctx context.Context, cmd Command) (string, error)
}

// CommandError reports a tool that exited unsuccessfully.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: exit %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// Is classifies command failures as external tool errors.
func (e *CommandError) Is(target error) bool {
	return target == services.ErrExternalTool
}

// ExecRunner runs tools as child processes.
type ExecRunner struct {
	configFile string
	binDir     string
	timeout    time.Duration
	logger     *slog.Logger
}

// NewRunner builds an ExecRunner from the dovecot config section.
func NewRunner(cfg *config.Config, logger *slog.Logger) *ExecRunner {
	return &ExecRunner{
		configFile: cfg.Dovecot.ConfigFile,
		binDir:     cfg.Dovecot.BinDir,
		timeout:    cfg.CommandTimeout(),
		logger:     logging.NewComponentLogger(logger, "dovecot"),
	}
}

// Run executes cmd with the configured dovecot.conf.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (string, error) {
	binary := cmd.Name
	if r.binDir != "" {
		binary = filepath.Join(r.binDir, cmd.Name)
	}
	args := make([]string, 0, len(cmd.Args)+2)
	if r.configFile != "" {
		args = append(args, "-c", r.configFile)
	}
	args = append(args, cmd.Args...)

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	proc := exec.CommandContext(runCtx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr
	if cmd.Stdin != "" {
		proc.Stdin = strings.NewReader(cmd.Stdin)
	}

	started := time.Now()
	err := proc.Run()
	r.logger.Debug("dovecot command",
		logging.String("command", cmd.String()),
		logging.Duration("elapsed", time.Since(started)),
		logging.Bool("ok", err == nil),
	)
	if err != nil {
		if runCtx.Err() != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, "dovecot", cmd.Name, fmt.Sprintf("timed out after %s", r.timeout), err)
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return "", &CommandError{
			Command:  cmd.String(),
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}
	return strings.TrimSpace(stdout.String()), nil
}
