// Package history persists a record of dispatched batches in SQLite.
//
// Each batch row carries the event count, the number of malformed records
// skipped and the sizes of the three work sets; each unit row records one
// filter build, filter invoke or replication with its outcome. The store is
// observational: dispatch never depends on it succeeding.
//
// The schema is embedded and versioned. A database created by a different
// schema version is rejected with ErrSchemaMismatch; delete it to start over.
package history
