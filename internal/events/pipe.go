package events

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"syncer/internal/logging"
)

const (
	pipeMode       = 0o660
	defaultBackoff = time.Second
	maxRecordBytes = 1 << 20
)

// ErrNoReader reports that nothing holds the pipe open for reading.
var ErrNoReader = errors.New("no reader on event pipe")

// MakePipe recreates the notification FIFO at path. The parent directory is
// made setgid and handed to owner:group so the dovecot plugin can write to
// it. Unknown accounts are logged and skipped.
func MakePipe(path, owner, group string, logger *slog.Logger) error {
	logger = logging.NewComponentLogger(logger, "pipe")
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create pipe dir: %w", err)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove stale pipe: %w", err)
	}
	if err := unix.Mkfifo(path, pipeMode); err != nil {
		return fmt.Errorf("mkfifo %s: %w", path, err)
	}
	// mkfifo honours the umask.
	if err := os.Chmod(path, pipeMode); err != nil {
		return fmt.Errorf("chmod pipe: %w", err)
	}
	if err := os.Chmod(dir, os.ModeSetgid|0o770); err != nil {
		return fmt.Errorf("chmod pipe dir: %w", err)
	}

	uid, gid := lookupOwner(owner, group, logger)
	if uid < 0 && gid < 0 {
		return nil
	}
	for _, target := range []string{dir, path} {
		if err := os.Lchown(target, uid, gid); err != nil {
			logging.WarnWithContext(logger, "pipe chown failed", "pipe_chown_failed",
				logging.String("path", target),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run the daemon as root or pre-create the pipe directory"),
				logging.String(logging.FieldImpact, "the notification plugin may be unable to write events"),
			)
		}
	}
	return nil
}

// lookupOwner resolves owner and group to ids; -1 leaves an id unchanged.
func lookupOwner(owner, group string, logger *slog.Logger) (int, int) {
	uid, gid := -1, -1
	if owner = strings.TrimSpace(owner); owner != "" {
		if u, err := user.Lookup(owner); err != nil {
			logger.Debug("pipe owner not found", logging.String("owner", owner), logging.Error(err))
		} else if id, err := strconv.Atoi(u.Uid); err == nil {
			uid = id
		}
	}
	if group = strings.TrimSpace(group); group != "" {
		if g, err := user.LookupGroup(group); err != nil {
			logger.Debug("pipe group not found", logging.String("group", group), logging.Error(err))
		} else if id, err := strconv.Atoi(g.Gid); err == nil {
			gid = id
		}
	}
	return uid, gid
}

// Reactor receives each raw record read from the pipe.
type Reactor func(line string)

// Producer reads records from a named pipe forever, reopening it after
// any failure.
type Producer struct {
	path    string
	reactor Reactor
	backoff time.Duration
	logger  *slog.Logger
}

// ProducerOption customises a Producer.
type ProducerOption func(*Producer)

// WithReactor replaces the default queue push.
func WithReactor(reactor Reactor) ProducerOption {
	return func(p *Producer) { p.reactor = reactor }
}

// WithBackoff sets the delay before reopening after a failure.
func WithBackoff(d time.Duration) ProducerOption {
	return func(p *Producer) { p.backoff = d }
}

// NewProducer constructs a producer feeding queue from the pipe at path.
func NewProducer(path string, queue *Queue, logger *slog.Logger, opts ...ProducerOption) *Producer {
	p := &Producer{
		path:    path,
		backoff: defaultBackoff,
		logger:  logging.NewComponentLogger(logger, "producer"),
	}
	if queue != nil {
		p.reactor = queue.Push
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.reactor == nil {
		p.reactor = func(line string) { p.logger.Debug("event", logging.String("line", line)) }
	}
	return p
}

// Run reads until ctx is cancelled. Open and read failures are logged and
// retried after the backoff; Run only returns once ctx is done.
func (p *Producer) Run(ctx context.Context) error {
	p.logger.Debug("producer setup", logging.String("pipe_path", p.path))
	for {
		if ctx.Err() != nil {
			return nil
		}
		err := p.readSession(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			logging.WarnWithContext(p.logger, "pipe read failure", "pipe_read_failed",
				logging.String("pipe_path", p.path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the pipe exists and is readable"),
				logging.String(logging.FieldImpact, "events are not received until the pipe reopens"),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.backoff):
		}
	}
}

// readSession opens the pipe read-write so that writers coming and going
// never produce end-of-file, then forwards lines until failure or cancel.
func (p *Producer) readSession(ctx context.Context) error {
	file, err := os.OpenFile(p.path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("open pipe: %w", err)
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		_ = file.Close()
	}()

	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > maxRecordBytes {
			p.logger.Warn("oversized event record dropped", logging.Int("bytes", len(line)))
			line = ""
		}
		if record := strings.TrimRight(line, "\r\n"); record != "" {
			p.react(record)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("pipe closed: %w", err)
			}
			return err
		}
	}
}

func (p *Producer) react(line string) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warn("pipe react failure", logging.Any("panic", r))
		}
	}()
	p.reactor(line)
}

// WriteEvent writes one record to the pipe at path without waiting for a
// reader. It returns ErrNoReader when the daemon is not listening.
func WriteEvent(path string, event Event) error {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			return ErrNoReader
		}
		return fmt.Errorf("open pipe %s: %w", path, err)
	}
	file := os.NewFile(uintptr(fd), path)
	defer file.Close()
	if _, err := io.WriteString(file, event.Line()+"\n"); err != nil {
		return fmt.Errorf("write pipe %s: %w", path, err)
	}
	return nil
}
