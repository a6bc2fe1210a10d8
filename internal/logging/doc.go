// Package logging assembles structured slog loggers and formatting helpers used
// across the syncer daemon and CLI.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so dispatch code can tag log
// lines with batch identifiers and supervised task names. The package also
// provides a no-op logger for tests and wiring code that cannot fail, plus
// retention pruning for the daemon log directory.
package logging
