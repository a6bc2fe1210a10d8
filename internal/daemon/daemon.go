package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"syncer/internal/config"
	"syncer/internal/dispatch"
	"syncer/internal/dovecot"
	"syncer/internal/events"
	"syncer/internal/history"
	"syncer/internal/logging"
	"syncer/internal/peers"
	"syncer/internal/profiler"
	"syncer/internal/sieve"
	"syncer/internal/workflow"
)

// ErrAlreadyRunning reports that another daemon holds the lock.
var ErrAlreadyRunning = errors.New("another syncer daemon instance is already running")

// Thread names for the supervised loops.
const (
	threadProducer = "syncer-producer"
	threadConsumer = "syncer-consumer"
)

// Daemon owns the event flow from the pipe to the dispatcher.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	runner  dovecot.Runner
	history *history.Store

	lockPath string
	lock     *flock.Flock

	queue      *events.Queue
	consumer   *events.Consumer
	dispatcher *dispatch.Dispatcher
	mesh       *peers.Mesh
	profiler   *profiler.Profiler
	reporter   *profiler.Reporter
	workflow   *workflow.Manager

	pipeMu   sync.RWMutex
	pipePath string

	running   atomic.Bool
	startedAt atomic.Pointer[time.Time]
	cancel    context.CancelFunc

	stopOnce sync.Once
	done     chan struct{}
}

// Option customises a Daemon.
type Option func(*Daemon)

// WithRunner replaces the dovecot command runner.
func WithRunner(runner dovecot.Runner) Option {
	return func(d *Daemon) { d.runner = runner }
}

// WithWorkflow replaces the task manager.
func WithWorkflow(manager *workflow.Manager) Option {
	return func(d *Daemon) { d.workflow = manager }
}

// New constructs a daemon. store may be nil when history is disabled.
func New(cfg *config.Config, store *history.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		history:  store,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
		pipePath: strings.TrimSpace(cfg.Syncer.PipePath),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.runner == nil {
		d.runner = dovecot.NewRunner(cfg, logger)
	}
	if d.workflow == nil {
		d.workflow = workflow.NewManager(cfg, logger)
	}

	patterns, err := dispatch.PatternsFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("compile patterns: %w", err)
	}
	conf := dovecot.NewConf(d.runner)
	d.mesh = peers.NewMesh(cfg, conf, logger)
	collab := dispatch.Collaborators{
		Builder:    sieve.NewBuilder(cfg, d.runner, logger),
		Invoker:    sieve.NewInvoker(d.runner, logger),
		Replicator: dovecot.NewReplicator(cfg, d.runner),
		Peers:      d.mesh,
	}
	if store != nil {
		collab.Recorder = store
	}
	d.dispatcher = dispatch.New(patterns, collab, logger)
	d.queue = events.NewQueue(logger)
	d.consumer = events.NewConsumer(d.queue, d.dispatcher, cfg.Syncer.TimerLimit, cfg.TimerDelay(), logger)

	if cfg.Profiler.Enable {
		d.profiler = profiler.New(profiler.NewStore(), logger)
		d.reporter = profiler.NewReporter(d.profiler.Store(), cfg.ReportFile(cfg.Profiler.Session), cfg.ProfilerPeriod(), logger)
	}

	if err := d.registerTasks(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Daemon) registerTasks() error {
	tasks := []workflow.Task{
		{Name: "producer", Thread: threadProducer, Run: d.runProducer},
		{Name: "consumer", Thread: threadConsumer, Run: d.runConsumer},
	}
	if d.reporter != nil {
		tasks = append(tasks, workflow.Task{Name: "profiler-report", Run: d.reporter.Run})
	}
	for _, task := range tasks {
		if err := d.workflow.Register(task); err != nil {
			return fmt.Errorf("register %s task: %w", task.Name, err)
		}
	}
	return nil
}

func (d *Daemon) runProducer(ctx context.Context) error {
	ctx = d.activate(ctx)
	defer d.deactivate(ctx)
	return events.NewProducer(d.PipePath(), d.queue, d.logger).Run(ctx)
}

func (d *Daemon) runConsumer(ctx context.Context) error {
	ctx = d.activate(ctx)
	defer d.deactivate(ctx)
	return d.consumer.Run(ctx)
}

func (d *Daemon) activate(ctx context.Context) context.Context {
	if d.profiler == nil {
		return ctx
	}
	return d.profiler.Activate(ctx, d.cfg.ProfilerInterval())
}

func (d *Daemon) deactivate(ctx context.Context) {
	if d.profiler != nil {
		d.profiler.Deactivate(ctx)
	}
}

// Start acquires the lock, prepares the pipe and launches the tasks.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}

	if err := d.preparePipe(ctx); err != nil {
		_ = d.lock.Unlock()
		return err
	}
	d.pruneHistory(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.workflow.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start workflow: %w", err)
	}
	d.cancel = cancel
	now := time.Now()
	d.startedAt.Store(&now)
	d.running.Store(true)
	d.logger.Info("syncer daemon started",
		logging.String("lock", d.lockPath),
		logging.String("pipe", d.PipePath()),
		logging.Bool("profiler", d.profiler != nil),
		logging.Bool("history", d.history != nil),
	)
	return nil
}

func (d *Daemon) preparePipe(ctx context.Context) error {
	path := d.PipePath()
	if path == "" {
		resolved, err := dovecot.NewConf(d.runner).SyncerPipe(ctx)
		if err != nil {
			return fmt.Errorf("resolve pipe path: %w", err)
		}
		path = resolved
		d.pipeMu.Lock()
		d.pipePath = path
		d.pipeMu.Unlock()
	}
	if err := events.MakePipe(path, d.cfg.Syncer.PipeOwner, d.cfg.Syncer.PipeGroup, d.logger); err != nil {
		return fmt.Errorf("create pipe: %w", err)
	}
	return nil
}

func (d *Daemon) pruneHistory(ctx context.Context) {
	if d.history == nil || d.cfg.History.RetentionDays <= 0 {
		return
	}
	cutoff := time.Now().Add(-time.Duration(d.cfg.History.RetentionDays) * 24 * time.Hour)
	removed, err := d.history.Prune(ctx, cutoff)
	if err != nil {
		logging.WarnWithContext(d.logger, "history prune failed", "history_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the history database"),
			logging.String(logging.FieldImpact, "old dispatch history is kept"),
		)
		return
	}
	if removed > 0 {
		d.logger.Info("history pruned", logging.Int64("batches", removed))
	}
}

// Stop stops the tasks, flushes the profiler report and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if d.profiler != nil {
		d.profiler.Close()
		if err := d.reporter.WriteReport(); err != nil {
			d.logger.Warn("final profiler report failed", logging.Error(err))
		}
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("syncer daemon stopped")
}

// RequestShutdown asks the hosting process to exit. It is safe to call
// more than once.
func (d *Daemon) RequestShutdown() {
	d.stopOnce.Do(func() { close(d.done) })
}

// Done is closed once shutdown has been requested over IPC.
func (d *Daemon) Done() <-chan struct{} {
	return d.done
}

// Close stops the daemon. The history store is owned by the caller.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// PipePath returns the resolved pipe location.
func (d *Daemon) PipePath() string {
	d.pipeMu.RLock()
	defer d.pipeMu.RUnlock()
	return d.pipePath
}

// Queue exposes the event queue.
func (d *Daemon) Queue() *events.Queue {
	return d.queue
}
