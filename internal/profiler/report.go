package profiler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"syncer/internal/fileutil"
	"syncer/internal/logging"
)

// Reporter periodically renders the call tree of a Store to a text file.
type Reporter struct {
	store  *Store
	path   string
	period time.Duration
	logger *slog.Logger

	mu         sync.Mutex
	lastReport time.Time
	lastNodes  int
}

// NewReporter constructs a reporter writing to path every period.
func NewReporter(store *Store, path string, period time.Duration, logger *slog.Logger) *Reporter {
	if period <= 0 {
		period = 3 * time.Second
	}
	return &Reporter{
		store:  store,
		path:   path,
		period: period,
		logger: logging.NewComponentLogger(logger, "profiler"),
	}
}

// Path returns the report file location.
func (r *Reporter) Path() string {
	return r.path
}

// Run writes a report every period until ctx is cancelled. A failed write
// is returned so the supervisor can log it and restart the loop.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.WriteReport(); err != nil {
				return err
			}
		}
	}
}

// WriteReport rebuilds the tree and replaces the report file.
func (r *Reporter) WriteReport() error {
	tree := Build(r.store)
	text := tree.Render()
	if err := fileutil.WriteFileAtomic(r.path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write profiler report: %w", err)
	}
	r.mu.Lock()
	r.lastReport = time.Now()
	r.lastNodes = tree.Len()
	r.mu.Unlock()
	r.logger.Debug("profiler report written",
		logging.String("path", r.path),
		logging.Int("nodes", tree.Len()),
	)
	return nil
}

// LastReport returns when the report was last written and how many nodes
// it held.
func (r *Reporter) LastReport() (time.Time, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastReport, r.lastNodes
}
