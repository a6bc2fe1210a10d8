package history

import "time"

// UnitKind names the three kinds of dispatched work.
type UnitKind string

const (
	KindBuild     UnitKind = "build"
	KindInvoke    UnitKind = "invoke"
	KindReplicate UnitKind = "replicate"
)

// OutcomeOK marks a unit that completed without error.
const OutcomeOK = "ok"

// Batch summarises one dispatched batch.
type Batch struct {
	ID           string
	Events       int
	Skipped      int
	Builds       int
	Invokes      int
	Replications int
	Failures     int
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns how long the batch took, or zero while unfinished.
func (b Batch) Duration() time.Duration {
	if b.FinishedAt.IsZero() {
		return 0
	}
	return b.FinishedAt.Sub(b.StartedAt)
}

// Unit is one unit of work attempted within a batch.
type Unit struct {
	ID         int64
	BatchID    string
	Kind       UnitKind
	User       string
	Target     string // mailbox name or GUID
	Peer       string // addr:port for replication
	Outcome    string
	Error      string
	Duration   time.Duration
	RecordedAt time.Time
}

// Stats aggregates the whole history.
type Stats struct {
	Batches   int64
	Events    int64
	Skipped   int64
	Units     int64
	Failures  int64
	LastBatch time.Time
}
