// Package procname names the OS threads that carry long-lived loops so
// they can be told apart in top, ps -L and /proc/<pid>/task.
package procname

import (
	"log/slog"
	"runtime"

	"syncer/internal/logging"
)

// MaxLen is the longest thread name the kernel keeps, excluding the NUL.
const MaxLen = 15

// Truncate shortens name to MaxLen bytes.
func Truncate(name string) string {
	if len(name) > MaxLen {
		return name[:MaxLen]
	}
	return name
}

// Pin locks the calling goroutine to its OS thread and names the thread.
// The returned function unlocks the goroutine. Naming failures are logged
// at debug level only.
func Pin(name string, logger *slog.Logger) func() {
	runtime.LockOSThread()
	if err := Set(name); err != nil && logger != nil {
		logger.Debug("thread naming failed", logging.String("name", name), logging.Error(err))
	}
	return runtime.UnlockOSThread
}
