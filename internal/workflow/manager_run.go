package workflow

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"syncer/internal/logging"
	"syncer/internal/procname"
)

// Start launches every registered task.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	if len(m.tasks) == 0 {
		m.mu.Unlock()
		return errors.New("workflow tasks not configured")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	tasks := append([]*taskState(nil), m.tasks...)
	m.wg.Add(len(tasks))
	m.mu.Unlock()

	for _, state := range tasks {
		go m.supervise(runCtx, state)
	}
	return nil
}

// Stop cancels every task and waits for them to return.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) supervise(ctx context.Context, state *taskState) {
	defer m.wg.Done()
	logger := m.logger.With(logging.String(logging.FieldTask, state.task.Name))
	if state.task.Thread != "" {
		defer procname.Pin(state.task.Thread, logger)()
	}

	for {
		m.markStarted(state)
		err := runTask(ctx, state.task)
		m.markStopped(state, err)

		if ctx.Err() != nil {
			logger.Debug("task stopped")
			return
		}
		if err == nil {
			logger.Info("task finished")
			return
		}

		logging.WarnWithContext(logger, "task failed; restarting", "task_restart",
			logging.Error(err),
			logging.Duration("retry_in", m.retryDelay),
			logging.String(logging.FieldErrorHint, "inspect the preceding log entries for the task"),
			logging.String(logging.FieldImpact, "task paused until restart"),
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.retryDelay):
		}
		m.mu.Lock()
		state.restarts++
		m.mu.Unlock()
	}
}

func runTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v\n%s", task.Name, r, debug.Stack())
		}
	}()
	return task.Run(ctx)
}

func (m *Manager) markStarted(state *taskState) {
	m.mu.Lock()
	state.running = true
	state.lastStart = time.Now()
	m.mu.Unlock()
}

func (m *Manager) markStopped(state *taskState, err error) {
	m.mu.Lock()
	state.running = false
	if err != nil && !errors.Is(err, context.Canceled) {
		state.lastErr = err
	}
	m.mu.Unlock()
}

