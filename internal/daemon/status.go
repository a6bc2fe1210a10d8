package daemon

import (
	"context"
	"errors"
	"os"
	"time"

	"syncer/internal/dispatch"
	"syncer/internal/history"
	"syncer/internal/profiler"
	"syncer/internal/workflow"
)

// ErrProfilerDisabled is returned by report calls when profiling is off.
var ErrProfilerDisabled = errors.New("profiler disabled")

// ErrHistoryDisabled is returned by history calls when no store is open.
var ErrHistoryDisabled = errors.New("dispatch history disabled")

// ProfilerStatus summarises the sampling profiler.
type ProfilerStatus struct {
	Enabled    bool
	Samples    int64
	Frames     int
	ReportPath string
	LastReport time.Time
	Nodes      int
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	PID            int
	StartedAt      time.Time
	PipePath       string
	LockFilePath   string
	HistoryPath    string
	QueueLength    int
	QueueHighWater int
	Workflow       workflow.StatusSummary
	Dispatch       dispatch.Stats
	Profiler       ProfilerStatus
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:        d.running.Load(),
		PID:            os.Getpid(),
		PipePath:       d.PipePath(),
		LockFilePath:   d.lockPath,
		QueueLength:    d.queue.Len(),
		QueueHighWater: d.queue.HighWater(),
		Workflow:       d.workflow.Status(),
		Dispatch:       d.dispatcher.Stats(),
	}
	if started := d.startedAt.Load(); started != nil {
		status.StartedAt = *started
	}
	if d.history != nil {
		status.HistoryPath = d.history.Path()
	}
	if d.profiler != nil {
		store := d.profiler.Store()
		last, nodes := d.reporter.LastReport()
		status.Profiler = ProfilerStatus{
			Enabled:    true,
			Samples:    store.Samples(),
			Frames:     store.Len(),
			ReportPath: d.reporter.Path(),
			LastReport: last,
			Nodes:      nodes,
		}
	}
	return status
}

// Report rebuilds the call tree and renders it.
func (d *Daemon) Report() (string, error) {
	if d.profiler == nil {
		return "", ErrProfilerDisabled
	}
	return profiler.Build(d.profiler.Store()).Render(), nil
}

// ReportSummary returns up to limit frames with the most self time.
func (d *Daemon) ReportSummary(limit int) ([]*profiler.Node, error) {
	if d.profiler == nil {
		return nil, ErrProfilerDisabled
	}
	return profiler.Build(d.profiler.Store()).Hottest(limit), nil
}

// History returns the most recent dispatched batches.
func (d *Daemon) History(ctx context.Context, limit int) ([]history.Batch, error) {
	if d.history == nil {
		return nil, ErrHistoryDisabled
	}
	return d.history.RecentBatches(ctx, limit)
}

// HistoryUnits returns the units recorded for one batch.
func (d *Daemon) HistoryUnits(ctx context.Context, batchID string) ([]history.Unit, error) {
	if d.history == nil {
		return nil, ErrHistoryDisabled
	}
	return d.history.BatchUnits(ctx, batchID)
}

// HistoryStats aggregates the stored history.
func (d *Daemon) HistoryStats(ctx context.Context) (history.Stats, error) {
	if d.history == nil {
		return history.Stats{}, ErrHistoryDisabled
	}
	return d.history.Stats(ctx)
}
