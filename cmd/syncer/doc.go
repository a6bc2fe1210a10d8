// Command syncer is the operator CLI for the syncer daemon: it starts and
// stops syncerd, shows status, the profiler call tree and dispatch history
// over the daemon socket, tails the daemon log, and can inject test events
// into the pipe.
package main
