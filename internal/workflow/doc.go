// Package workflow supervises the daemon's long-lived loops.
//
// Each Task is a named body started once by the Manager in its own
// goroutine. A body that fails or panics is logged and restarted after the
// configured retry interval, so a single bad batch or a broken pipe never
// takes a loop down for good. Cancelling the Manager's context (Stop) is the
// only way a healthy task ends; a body that returns nil before that is
// considered finished and is not restarted.
//
// Tasks that set Thread run locked to an OS thread carrying that name, which
// keeps them identifiable in ps -L and /proc/<pid>/task.
package workflow
