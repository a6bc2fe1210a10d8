package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"syncer/internal/logging"
)

const failureDelay = time.Second

// Batch is a group of raw records collected during one burst.
type Batch struct {
	ID        string
	Lines     []string
	Collected time.Time
}

// Handler processes one batch. Errors are logged by the consumer and never
// stop it.
type Handler interface {
	HandleBatch(ctx context.Context, batch Batch) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, batch Batch) error

// HandleBatch calls f.
func (f HandlerFunc) HandleBatch(ctx context.Context, batch Batch) error { return f(ctx, batch) }

// Consumer assembles quiet-period batches from a Queue.
type Consumer struct {
	queue   *Queue
	handler Handler
	limit   int
	delay   time.Duration
	logger  *slog.Logger
}

// NewConsumer constructs a consumer. A batch closes once the queue has been
// seen empty limit consecutive times, delay apart.
func NewConsumer(queue *Queue, handler Handler, limit int, delay time.Duration, logger *slog.Logger) *Consumer {
	if limit < 1 {
		limit = 1
	}
	return &Consumer{
		queue:   queue,
		handler: handler,
		limit:   limit,
		delay:   delay,
		logger:  logging.NewComponentLogger(logger, "consumer"),
	}
}

// Run collects and dispatches batches until ctx is cancelled. A batch that
// is pending at cancellation is still dispatched. Failures inside a batch
// are logged and followed by a short pause.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Debug("consumer setup",
		logging.Int("timer_limit", c.limit),
		logging.Duration("timer_delay", c.delay),
	)
	for {
		lines, complete := c.collect(ctx)
		if len(lines) > 0 {
			dispatchCtx := ctx
			if !complete {
				dispatchCtx = context.WithoutCancel(ctx)
			}
			if err := c.dispatch(dispatchCtx, lines); err != nil {
				logging.WarnWithContext(c.logger, "batch dispatch failure", "batch_failed",
					logging.Error(err),
					logging.Int("events", len(lines)),
					logging.String(logging.FieldImpact, "events in this batch may not have been applied"),
				)
				if !sleepContext(ctx, failureDelay) {
					return nil
				}
			}
		}
		if !complete {
			return nil
		}
	}
}

// collect drains the queue until it has stayed empty for limit polls after
// the first record arrived. It reports false when ctx ended first.
func (c *Consumer) collect(ctx context.Context) ([]string, bool) {
	var lines []string
	streak := 0
	for {
		if line, ok := c.queue.TryPop(); ok {
			lines = append(lines, line)
			streak = 0
			continue
		}
		if !sleepContext(ctx, c.delay) {
			return lines, false
		}
		if len(lines) > 0 {
			streak++
		}
		if streak >= c.limit {
			return lines, true
		}
	}
}

func (c *Consumer) dispatch(ctx context.Context, lines []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("batch handler panic: %v", r)
		}
	}()
	batch := Batch{
		ID:        uuid.NewString(),
		Lines:     lines,
		Collected: time.Now(),
	}
	ctx = logging.WithBatchID(ctx, batch.ID)
	return c.handler.HandleBatch(ctx, batch)
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
