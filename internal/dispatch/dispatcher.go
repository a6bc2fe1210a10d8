package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"syncer/internal/events"
	"syncer/internal/history"
	"syncer/internal/logging"
	"syncer/internal/peers"
	"syncer/internal/services"
)

// FilterBuilder regenerates a user's filters from the mailbox layout.
type FilterBuilder interface {
	BuildFilters(ctx context.Context, user string) error
}

// FilterInvoker applies a user's filters to one mailbox.
type FilterInvoker interface {
	InvokeFilters(ctx context.Context, user, mailbox string) error
}

// Replicator synchronises one mailbox to one peer.
type Replicator interface {
	Replicate(ctx context.Context, user, guid, addr string, port int) error
}

// PeerIterator calls fn per reachable peer, logging and swallowing
// per-peer failures.
type PeerIterator interface {
	EachPeer(ctx context.Context, fn func(ctx context.Context, peer peers.Peer) error)
}

// Recorder persists batch and unit outcomes.
type Recorder interface {
	BeginBatch(ctx context.Context, batch history.Batch) error
	RecordUnit(ctx context.Context, unit history.Unit) error
	FinishBatch(ctx context.Context, batch history.Batch) error
}

// Collaborators groups the dispatcher's dependencies. Recorder may be nil.
type Collaborators struct {
	Builder    FilterBuilder
	Invoker    FilterInvoker
	Replicator Replicator
	Peers      PeerIterator
	Recorder   Recorder
}

// Stats are cumulative dispatcher counters.
type Stats struct {
	Batches     int64
	Events      int64
	Skipped     int64
	Units       int64
	Failures    int64
	LastBatchID string
	LastBatch   time.Time
}

// Dispatcher folds batches into work sets and runs each unit of work once.
// It implements events.Handler.
type Dispatcher struct {
	patterns Patterns
	collab   Collaborators
	logger   *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// New constructs a Dispatcher.
func New(patterns Patterns, collab Collaborators, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		patterns: patterns,
		collab:   collab,
		logger:   logging.NewComponentLogger(logger, "dispatch"),
	}
}

// Stats returns a copy of the cumulative counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Plan parses the batch and classifies its events. Malformed records are
// logged and counted, the rest of the batch is kept.
func (d *Dispatcher) Plan(logger *slog.Logger, lines []string) (WorkSets, int) {
	sets := NewWorkSets()
	skipped := 0
	for _, line := range lines {
		ev, err := events.ParseEvent(line)
		if err != nil {
			skipped++
			logging.WarnWithContext(logger, "malformed event skipped", "event_malformed",
				logging.String("record", line),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the notification plugin output format"),
				logging.String(logging.FieldImpact, "this record was not dispatched"),
			)
			continue
		}
		sets.Add(d.patterns, ev)
	}
	return sets, skipped
}

// HandleBatch dispatches one batch. Unit failures are logged and recorded;
// HandleBatch itself only fails when nothing could be attempted.
func (d *Dispatcher) HandleBatch(ctx context.Context, batch events.Batch) error {
	logger := logging.WithContext(ctx, d.logger)
	started := time.Now()

	sets, skipped := d.Plan(logger, batch.Lines)
	logger.Debug("dispatch request",
		logging.Int("event_list", len(batch.Lines)),
		logging.Int("skipped", skipped),
		logging.Int("filter_build", sets.BuildCount()),
		logging.Int("filter_invoke", sets.InvokeCount()),
		logging.Int("replicate_task", sets.ReplicateCount()),
	)

	record := history.Batch{
		ID:        batch.ID,
		Events:    len(batch.Lines),
		Skipped:   skipped,
		Builds:    sets.BuildCount(),
		Invokes:   sets.InvokeCount(),
		StartedAt: started,
	}
	d.persist(logger, "begin batch", func() error { return d.collab.Recorder.BeginBatch(ctx, record) })

	run := &batchRun{d: d, logger: logger, batchID: batch.ID}

	for _, user := range sortedKeys(sets.Build) {
		run.unit(ctx, history.Unit{Kind: history.KindBuild, User: user}, func(ctx context.Context) error {
			return d.collab.Builder.BuildFilters(ctx, user)
		})
	}

	for _, user := range sortedKeys(sets.Invoke) {
		for _, mailbox := range sortedKeys(sets.Invoke[user]) {
			run.unit(ctx, history.Unit{Kind: history.KindInvoke, User: user, Target: mailbox}, func(ctx context.Context) error {
				return d.collab.Invoker.InvokeFilters(ctx, user, mailbox)
			})
		}
	}

	replications := 0
	for _, user := range sortedKeys(sets.Replicate) {
		for _, guid := range sortedKeys(sets.Replicate[user]) {
			if ctx.Err() != nil {
				break
			}
			d.collab.Peers.EachPeer(ctx, func(ctx context.Context, peer peers.Peer) error {
				replications++
				unit := history.Unit{
					Kind:   history.KindReplicate,
					User:   user,
					Target: guid,
					Peer:   fmt.Sprintf("%s:%d", peer.Addr, peer.Port),
				}
				run.unit(ctx, unit, func(ctx context.Context) error {
					return d.collab.Replicator.Replicate(ctx, user, guid, peer.Addr, peer.Port)
				})
				return nil
			})
		}
	}

	record.Replications = replications
	record.Failures = run.failures
	record.FinishedAt = time.Now()
	d.persist(logger, "finish batch", func() error { return d.collab.Recorder.FinishBatch(ctx, record) })

	d.mu.Lock()
	d.stats.Batches++
	d.stats.Events += int64(len(batch.Lines))
	d.stats.Skipped += int64(skipped)
	d.stats.Units += int64(run.units)
	d.stats.Failures += int64(run.failures)
	d.stats.LastBatchID = batch.ID
	d.stats.LastBatch = record.FinishedAt
	d.mu.Unlock()

	logger.Info("batch dispatched",
		logging.Int("events", len(batch.Lines)),
		logging.Int("units", run.units),
		logging.Int("failures", run.failures),
		logging.Duration("elapsed", record.FinishedAt.Sub(started)),
	)
	if ctx.Err() != nil {
		return fmt.Errorf("batch %s interrupted: %w", batch.ID, ctx.Err())
	}
	return nil
}

func (d *Dispatcher) persist(logger *slog.Logger, what string, fn func() error) {
	if d.collab.Recorder == nil {
		return
	}
	if err := fn(); err != nil {
		logger.Debug("history write failed", logging.String("operation", what), logging.Error(err))
	}
}

// batchRun tracks the units of one batch.
type batchRun struct {
	d        *Dispatcher
	logger   *slog.Logger
	batchID  string
	units    int
	failures int
}

// unit runs fn in isolation: errors and panics are logged with the unit's
// identity and recorded, never propagated.
func (r *batchRun) unit(ctx context.Context, u history.Unit, fn func(ctx context.Context) error) {
	if ctx.Err() != nil {
		return
	}
	r.units++
	started := time.Now()
	err := safeCall(ctx, fn)
	u.BatchID = r.batchID
	u.Duration = time.Since(started)
	u.Outcome = services.FailureKind(err)
	if err != nil {
		r.failures++
		u.Error = err.Error()
		attrs := []logging.Attr{
			logging.String(logging.FieldUser, u.User),
			logging.Error(err),
			logging.String("error_kind", u.Outcome),
		}
		switch u.Kind {
		case history.KindInvoke:
			attrs = append(attrs, logging.String(logging.FieldMailbox, u.Target))
		case history.KindReplicate:
			attrs = append(attrs,
				logging.String(logging.FieldMailboxGUID, u.Target),
				logging.String(logging.FieldPeer, u.Peer),
			)
		}
		logging.WarnWithContext(r.logger, failureMessage(u.Kind), "unit_failed", attrs...)
	} else {
		r.logger.Debug("unit complete",
			logging.String("kind", string(u.Kind)),
			logging.String(logging.FieldUser, u.User),
			logging.String("target", u.Target),
			logging.String("peer", u.Peer),
			logging.Duration("elapsed", u.Duration),
		)
	}
	r.d.persist(r.logger, "record unit", func() error { return r.d.collab.Recorder.RecordUnit(ctx, u) })
}

func failureMessage(kind history.UnitKind) string {
	switch kind {
	case history.KindBuild:
		return "sieve build failure"
	case history.KindInvoke:
		return "sieve invoke failure"
	default:
		return "replicate failure"
	}
}

func safeCall(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
