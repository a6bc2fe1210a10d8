package daemonctl_test

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"syncer/internal/daemonctl"
	"syncer/internal/testsupport"
)

func TestProcessInfoWithoutSocket(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	running, pid, err := daemonctl.ProcessInfo(cfg.Paths.SocketPath)
	if err != nil {
		t.Fatalf("ProcessInfo: %v", err)
	}
	if running || pid != 0 {
		t.Fatalf("expected no daemon, got running=%v pid=%d", running, pid)
	}
}

func TestStopWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemonctl.StopAndTerminate(cfg, 0); !errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestForceKillRefusesCurrentProcess(t *testing.T) {
	dir := t.TempDir()
	pidPath := filepath.Join(dir, "syncerd.pid")
	testsupport.WriteFile(t, pidPath, strconv.Itoa(os.Getpid())+"\n")
	if _, err := daemonctl.ForceKillProcess(pidPath, "", 0); err == nil {
		t.Fatal("expected refusal to kill the test process")
	}
	if _, err := os.Stat(pidPath); err != nil {
		t.Fatalf("pid file should remain: %v", err)
	}
}

func TestResolveDaemonBinaryPrefersSibling(t *testing.T) {
	dir := t.TempDir()
	sibling := filepath.Join(dir, daemonctl.DaemonBinary)
	testsupport.WriteFile(t, sibling, "#!/bin/sh\n")
	got, err := daemonctl.ResolveDaemonBinary(filepath.Join(dir, "syncer"))
	if err != nil {
		t.Fatalf("ResolveDaemonBinary: %v", err)
	}
	if got != sibling {
		t.Fatalf("expected %s, got %s", sibling, got)
	}
}

func TestEnsureStartedReportsEarlyExit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	daemonPath := filepath.Join(t.TempDir(), daemonctl.DaemonBinary)
	testsupport.WriteFile(t, daemonPath, "#!/bin/sh\nexit 3\n")
	if err := os.Chmod(daemonPath, 0o755); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	_, err := daemonctl.EnsureStarted(cfg.Paths.SocketPath, daemonPath, daemonctl.LaunchOptions{}, 5*time.Second)
	if err == nil {
		t.Fatal("expected startup failure")
	}
	if !strings.Contains(err.Error(), "exited during startup") {
		t.Fatalf("unexpected error: %v", err)
	}
}
