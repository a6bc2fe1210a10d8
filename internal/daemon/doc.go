// Package daemon coordinates the long-running syncer process.
//
// It wires configuration, the event pipe, the debounced consumer, the
// dispatcher and its dovecot collaborators, the sampling profiler and the
// dispatch history into a single lifecycle, with flock-based locking to
// prevent multiple instances. Individual steps live in their own packages;
// the daemon focuses on startup, shutdown and the status snapshot served
// over IPC.
package daemon
