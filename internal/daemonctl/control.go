// Package daemonctl launches, probes and stops the syncer daemon on behalf
// of the CLI.
package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"syncer/internal/config"
	"syncer/internal/fileutil"
	"syncer/internal/ipc"
)

// DaemonBinary is the executable launched by Launch.
const DaemonBinary = "syncerd"

const pollInterval = 200 * time.Millisecond

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions are passed to syncerd as flags.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

func (o LaunchOptions) args() []string {
	var args []string
	if path := strings.TrimSpace(o.ConfigPath); path != "" {
		args = append(args, "--config", path)
	}
	if level := strings.TrimSpace(o.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}
	return args
}

type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State StartState
	PID   int
}

// StopResult captures daemon stop/termination outcome.
type StopResult struct {
	StopAcknowledged bool
	ForcedKill       bool
	PID              int
}

// ResolveDaemonBinary prefers a syncerd next to the running executable and
// falls back to PATH.
func ResolveDaemonBinary(executablePath string) (string, error) {
	if executablePath != "" {
		sibling := filepath.Join(filepath.Dir(executablePath), DaemonBinary)
		if info, err := os.Stat(sibling); err == nil && !info.IsDir() {
			return sibling, nil
		}
	}
	path, err := exec.LookPath(DaemonBinary)
	if err != nil {
		return "", fmt.Errorf("locate %s: %w", DaemonBinary, err)
	}
	return path, nil
}

// Launch starts a detached daemon in its own session. The returned channel
// receives the exit error if the process ends.
func Launch(daemonPath string, opts LaunchOptions) (<-chan error, error) {
	if strings.TrimSpace(daemonPath) == "" {
		return nil, errors.New("launch daemon: executable path is empty")
	}
	proc := exec.Command(daemonPath, opts.args()...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return nil, fmt.Errorf("launch daemon: %w", err)
	}
	exited := make(chan error, 1)
	go func() { exited <- proc.Wait() }()
	return exited, nil
}

// EnsureStarted launches the daemon unless it already answers on
// socketPath, then waits up to timeout for its socket.
func EnsureStarted(socketPath, daemonPath string, opts LaunchOptions, timeout time.Duration) (StartResult, error) {
	if running, pid, err := ProcessInfo(socketPath); err == nil && running {
		return StartResult{State: StartStateAlreadyRunning, PID: pid}, nil
	}
	exited, err := Launch(daemonPath, opts)
	if err != nil {
		return StartResult{}, err
	}

	var status *ipc.StatusResponse
	err = poll(timeout, func() (bool, error) {
		select {
		case exitErr := <-exited:
			if exitErr == nil {
				exitErr = errors.New("exited with status 0")
			}
			return false, fmt.Errorf("daemon exited during startup (%v); see the log in paths.log_dir", exitErr)
		default:
		}
		client, dialErr := ipc.Dial(socketPath)
		if dialErr != nil {
			return false, nil
		}
		defer client.Close()
		status, _ = client.Status()
		return true, nil
	})
	if err != nil {
		return StartResult{}, fmt.Errorf("daemon failed to start: %w", err)
	}
	result := StartResult{State: StartStateStarted}
	if status != nil {
		result.PID = status.PID
	}
	return result, nil
}

// ProcessInfo returns whether daemon IPC is reachable and the daemon PID when available.
func ProcessInfo(socketPath string) (bool, int, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()
	status, err := client.Status()
	if err != nil {
		return true, 0, err
	}
	return true, status.PID, nil
}

// StopAndTerminate asks the daemon to exit and kills it when the socket is
// still answering after grace.
func StopAndTerminate(cfg *config.Config, grace time.Duration) (StopResult, error) {
	socketPath := cfg.Paths.SocketPath
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}
	var result StopResult
	if status, statusErr := client.Status(); statusErr == nil {
		result.PID = status.PID
	}
	resp, err := client.Stop()
	_ = client.Close()
	if err != nil {
		return result, err
	}
	result.StopAcknowledged = resp.Stopped

	stopped := poll(grace, func() (bool, error) {
		probe, dialErr := ipc.Dial(socketPath)
		if dialErr != nil {
			return isDaemonUnavailable(dialErr), nil
		}
		_ = probe.Close()
		return false, nil
	})
	if stopped == nil {
		return result, nil
	}

	killed, err := ForceKillProcess(cfg.PIDPath(), cfg.LockPath(), result.PID)
	if err != nil {
		return result, fmt.Errorf("daemon ignored stop request: %w", err)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	result.PID = killed
	return result, nil
}

// ForceKillProcess sends SIGKILL to the pid recorded in pidPath, or to
// fallbackPID when the file is missing, and removes the pid and lock files.
func ForceKillProcess(pidPath, lockPath string, fallbackPID int) (int, error) {
	pid, err := fileutil.ReadPID(pidPath)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		pid = fallbackPID
	default:
		return 0, err
	}
	if pid <= 0 {
		return 0, fmt.Errorf("unable to determine daemon pid (pid file: %s)", pidPath)
	}
	if pid == os.Getpid() {
		return 0, fmt.Errorf("refusing to kill current process (pid %d)", pid)
	}
	if err := syscall.Kill(pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return 0, fmt.Errorf("kill daemon process %d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("remove pid file %q: %w", pidPath, err)
	}
	if lockPath != "" {
		_ = os.Remove(lockPath)
	}
	return pid, nil
}

// poll calls check every pollInterval until it reports done, fails, or
// timeout passes. check always runs at least once.
func poll(timeout time.Duration, check func() (bool, error)) error {
	deadline := time.Now().Add(timeout)
	for {
		done, err := check()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("gave up after %s", timeout)
		}
		time.Sleep(pollInterval)
	}
}

func isDaemonUnavailable(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED)
}
