package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldTask is the standardized key for supervised task names.
	FieldTask = "task"
	// FieldBatchID is the standardized key for dispatch batch identifiers.
	FieldBatchID = "batch_id"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step for an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldUser is the mail user a unit of work belongs to.
	FieldUser = "user_name"
	// FieldMailbox is the mailbox name a unit of work targets.
	FieldMailbox = "mbox_name"
	// FieldMailboxGUID is the mailbox GUID a replication targets.
	FieldMailboxGUID = "mbox_guid"
	// FieldPeer is the mesh peer address.
	FieldPeer = "peer_addr"
)

type batchIDKey struct{}

// WithBatchID returns a context carrying the dispatch batch identifier.
func WithBatchID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, batchIDKey{}, id)
}

// BatchIDFromContext extracts the batch identifier, if any.
func BatchIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(batchIDKey{}).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if id, ok := BatchIDFromContext(ctx); ok {
		return []slog.Attr{slog.String(FieldBatchID, id)}
	}
	return nil
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
