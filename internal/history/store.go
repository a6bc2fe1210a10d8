package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"syncer/internal/config"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store manages dispatch history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.HistoryPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginBatch inserts a batch row. StartedAt defaults to now.
func (s *Store) BeginBatch(ctx context.Context, batch Batch) error {
	if batch.ID == "" {
		return errors.New("batch id required")
	}
	if batch.StartedAt.IsZero() {
		batch.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batches (id, events, skipped, builds, invokes, replications, failures, started_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		batch.ID, batch.Events, batch.Skipped, batch.Builds, batch.Invokes, batch.Replications, batch.Failures,
		formatTime(batch.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// FinishBatch stores the final counters of a batch. FinishedAt defaults to now.
func (s *Store) FinishBatch(ctx context.Context, batch Batch) error {
	if batch.FinishedAt.IsZero() {
		batch.FinishedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE batches
         SET events = ?, skipped = ?, builds = ?, invokes = ?, replications = ?, failures = ?, finished_at = ?
         WHERE id = ?`,
		batch.Events, batch.Skipped, batch.Builds, batch.Invokes, batch.Replications, batch.Failures,
		formatTime(batch.FinishedAt), batch.ID,
	)
	if err != nil {
		return fmt.Errorf("finish batch: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish batch: unknown batch %s", batch.ID)
	}
	return nil
}

// RecordUnit appends one unit outcome to a batch.
func (s *Store) RecordUnit(ctx context.Context, unit Unit) error {
	if unit.RecordedAt.IsZero() {
		unit.RecordedAt = time.Now()
	}
	if unit.Outcome == "" {
		unit.Outcome = OutcomeOK
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO units (batch_id, kind, user_name, target, peer, outcome, error_message, duration_ms, recorded_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		unit.BatchID, string(unit.Kind), unit.User, unit.Target, unit.Peer, unit.Outcome,
		nullableString(unit.Error), unit.Duration.Milliseconds(), formatTime(unit.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert unit: %w", err)
	}
	return nil
}

// RecentBatches returns up to limit batches, newest first.
func (s *Store) RecentBatches(ctx context.Context, limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, events, skipped, builds, invokes, replications, failures, started_at, finished_at
         FROM batches ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query batches: %w", err)
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		var (
			b        Batch
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.Events, &b.Skipped, &b.Builds, &b.Invokes, &b.Replications, &b.Failures, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		b.StartedAt = parseTime(started)
		if finished.Valid {
			b.FinishedAt = parseTime(finished.String)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BatchUnits returns the units recorded for a batch in insertion order.
func (s *Store) BatchUnits(ctx context.Context, batchID string) ([]Unit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, batch_id, kind, user_name, target, peer, outcome, error_message, duration_ms, recorded_at
         FROM units WHERE batch_id = ? ORDER BY id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	var out []Unit
	for rows.Next() {
		var (
			u        Unit
			kind     string
			errMsg   sql.NullString
			duration int64
			recorded string
		)
		if err := rows.Scan(&u.ID, &u.BatchID, &kind, &u.User, &u.Target, &u.Peer, &u.Outcome, &errMsg, &duration, &recorded); err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		u.Kind = UnitKind(kind)
		u.Error = errMsg.String
		u.Duration = time.Duration(duration) * time.Millisecond
		u.RecordedAt = parseTime(recorded)
		out = append(out, u)
	}
	return out, rows.Err()
}

// Stats aggregates counters over every stored batch.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var (
		st   Stats
		last sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1), COALESCE(SUM(events), 0), COALESCE(SUM(skipped), 0),
                COALESCE(SUM(builds + invokes + replications), 0), COALESCE(SUM(failures), 0),
                MAX(started_at)
         FROM batches`).Scan(&st.Batches, &st.Events, &st.Skipped, &st.Units, &st.Failures, &last)
	if err != nil {
		return Stats{}, fmt.Errorf("history stats: %w", err)
	}
	if last.Valid {
		st.LastBatch = parseTime(last.String)
	}
	return st, nil
}

// Prune deletes batches (and their units) started before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE started_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return n, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
