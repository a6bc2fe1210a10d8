package events

import (
	"log/slog"
	"sync"

	"syncer/internal/logging"
)

// Queue is an unbounded FIFO of raw event records. Push never blocks.
// Every TryPop samples the queue length and logs a new high-water mark
// whenever it strictly exceeds the previous one.
type Queue struct {
	mu        sync.Mutex
	items     []string
	highWater int
	logger    *slog.Logger
}

// NewQueue returns an empty queue.
func NewQueue(logger *slog.Logger) *Queue {
	return &Queue{logger: logging.NewComponentLogger(logger, "queue")}
}

// Push appends a record.
func (q *Queue) Push(line string) {
	q.mu.Lock()
	q.items = append(q.items, line)
	q.mu.Unlock()
}

// TryPop removes the oldest record without blocking.
func (q *Queue) TryPop() (string, bool) {
	q.mu.Lock()
	size := len(q.items)
	raised := size > q.highWater
	if raised {
		q.highWater = size
	}
	var (
		line string
		ok   bool
	)
	if size > 0 {
		line = q.items[0]
		q.items[0] = ""
		q.items = q.items[1:]
		if len(q.items) == 0 {
			q.items = nil
		}
		ok = true
	}
	q.mu.Unlock()

	if raised {
		q.logger.Info("event queue high-water mark",
			logging.String(logging.FieldEventType, "queue_high_water"),
			logging.Int("queue_size_max", size),
		)
	}
	return line, ok
}

// Len returns the current number of queued records.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// HighWater returns the largest length observed by TryPop.
func (q *Queue) HighWater() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.highWater
}
