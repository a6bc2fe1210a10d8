package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"syncer/internal/config"
	"syncer/internal/logging"
)

// Task is one supervised loop.
type Task struct {
	Name   string
	Run    func(ctx context.Context) error
	Thread string // optional OS thread name
}

// Manager starts registered tasks and keeps them alive until stopped.
type Manager struct {
	logger     *slog.Logger
	retryDelay time.Duration

	mu      sync.RWMutex
	tasks   []*taskState
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type taskState struct {
	task      Task
	running   bool
	restarts  int
	lastErr   error
	lastStart time.Time
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithRetryDelay overrides the restart backoff from the configuration.
func WithRetryDelay(delay time.Duration) ManagerOption {
	return func(m *Manager) {
		if delay > 0 {
			m.retryDelay = delay
		}
	}
}

// NewManager constructs a manager using the workflow retry interval.
func NewManager(cfg *config.Config, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		logger:     logging.NewComponentLogger(logger, "workflow"),
		retryDelay: time.Second,
	}
	if cfg != nil && cfg.ErrorRetryInterval() > 0 {
		m.retryDelay = cfg.ErrorRetryInterval()
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register adds a task. Tasks must be registered before Start.
func (m *Manager) Register(task Task) error {
	task.Name = strings.TrimSpace(task.Name)
	if task.Name == "" {
		return errors.New("task name is required")
	}
	if task.Run == nil {
		return errors.New("task " + task.Name + " has no body")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("workflow already running")
	}
	for _, existing := range m.tasks {
		if existing.task.Name == task.Name {
			return errors.New("task " + task.Name + " already registered")
		}
	}
	m.tasks = append(m.tasks, &taskState{task: task})
	return nil
}
