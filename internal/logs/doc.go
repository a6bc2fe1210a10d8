// Package logs tails the daemon log file for `syncer logs`.
//
// Reads are bounded: the last N lines come from a ring buffer and follow
// mode polls from a byte offset, so large logs never load into memory.
// A rotated or truncated file restarts reading from the beginning.
package logs
