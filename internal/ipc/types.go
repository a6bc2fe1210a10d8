package ipc

import "time"

// StopRequest asks the daemon process to exit.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// TaskState describes one supervised loop.
type TaskState struct {
	Name      string    `json:"name"`
	Thread    string    `json:"thread"`
	Running   bool      `json:"running"`
	Restarts  int       `json:"restarts"`
	LastError string    `json:"last_error"`
	LastStart time.Time `json:"last_start"`
}

// DispatchStats are cumulative dispatcher counters.
type DispatchStats struct {
	Batches     int64     `json:"batches"`
	Events      int64     `json:"events"`
	Skipped     int64     `json:"skipped"`
	Units       int64     `json:"units"`
	Failures    int64     `json:"failures"`
	LastBatchID string    `json:"last_batch_id"`
	LastBatch   time.Time `json:"last_batch"`
}

// ProfilerState summarises the sampling profiler.
type ProfilerState struct {
	Enabled    bool      `json:"enabled"`
	Samples    int64     `json:"samples"`
	Frames     int       `json:"frames"`
	Nodes      int       `json:"nodes"`
	ReportPath string    `json:"report_path"`
	LastReport time.Time `json:"last_report"`
}

// StatusResponse represents combined daemon information.
type StatusResponse struct {
	Running        bool          `json:"running"`
	PID            int           `json:"pid"`
	StartedAt      time.Time     `json:"started_at"`
	PipePath       string        `json:"pipe_path"`
	LockPath       string        `json:"lock_path"`
	HistoryPath    string        `json:"history_path"`
	QueueLength    int           `json:"queue_length"`
	QueueHighWater int           `json:"queue_high_water"`
	Tasks          []TaskState   `json:"tasks"`
	Dispatch       DispatchStats `json:"dispatch"`
	Profiler       ProfilerState `json:"profiler"`
}

// ReportRequest fetches the profiler call tree.
type ReportRequest struct {
	Summary bool `json:"summary"`
	Limit   int  `json:"limit"`
}

// FrameSummary is one call site of the profiler tree.
type FrameSummary struct {
	Symbol         string  `json:"symbol"`
	Unit           string  `json:"unit"`
	Line           int     `json:"line"`
	Count          int64   `json:"count"`
	SelfSeconds    float64 `json:"self_seconds"`
	TotalSeconds   float64 `json:"total_seconds"`
	PerCallSeconds float64 `json:"per_call_seconds"`
}

// ReportResponse carries the rendered tree or the hottest frames.
type ReportResponse struct {
	Text   string         `json:"text"`
	Frames []FrameSummary `json:"frames"`
}

// HistoryRequest lists recent batches, or the units of one batch.
type HistoryRequest struct {
	Limit   int    `json:"limit"`
	BatchID string `json:"batch_id"`
}

// BatchSummary is one dispatched batch.
type BatchSummary struct {
	ID           string    `json:"id"`
	Events       int       `json:"events"`
	Skipped      int       `json:"skipped"`
	Builds       int       `json:"builds"`
	Invokes      int       `json:"invokes"`
	Replications int       `json:"replications"`
	Failures     int       `json:"failures"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// UnitSummary is one unit of work within a batch.
type UnitSummary struct {
	Kind    string  `json:"kind"`
	User    string  `json:"user"`
	Target  string  `json:"target"`
	Peer    string  `json:"peer"`
	Outcome string  `json:"outcome"`
	Error   string  `json:"error"`
	Seconds float64 `json:"seconds"`
}

// HistoryResponse contains batches or units plus store totals.
type HistoryResponse struct {
	Batches       []BatchSummary `json:"batches"`
	Units         []UnitSummary  `json:"units"`
	TotalBatches  int64          `json:"total_batches"`
	TotalEvents   int64          `json:"total_events"`
	TotalUnits    int64          `json:"total_units"`
	TotalFailures int64          `json:"total_failures"`
}
