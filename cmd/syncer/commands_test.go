package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "[OK] pid")
	requireContains(t, out, env.cfg.Syncer.PipePath)
	requireContains(t, out, "Producer")
	requireContains(t, out, "syncer-consumer")
}

func TestEmitThenHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	var out string
	var err error
	waitFor(t, 5*time.Second, func() bool {
		out, _, err = runCLI(t, []string{"emit", "a@b", "Inbox", "--guid", "1"}, env.socketPath, env.configPath)
		return err == nil
	})
	requireContains(t, out, "user_name=a@b")

	waitFor(t, 5*time.Second, func() bool { return env.daemon.Status().Dispatch.Batches > 0 })

	out, _, err = runCLI(t, []string{"history", "--limit", "5"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "Replications")
	requireContains(t, out, "1 batches, 1 events, 1 units, 0 failures in total")

	out, _, err = runCLI(t, []string{"report", "--summary"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("report --summary: %v", err)
	}
	if out == "" {
		t.Fatal("expected report summary output")
	}
}

func TestStopCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"stop"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon stopped")

	out, _, err = runCLI(t, []string{"stop"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("second stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func TestStatusWithoutDaemon(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SYNCER_CONFIG", "")
	socket := filepath.Join(t.TempDir(), "missing.sock")
	_, _, err := runCLI(t, []string{"status"}, socket, "")
	if err == nil {
		t.Fatal("expected dial error")
	}
	requireContains(t, err.Error(), "syncer start")
}

func TestConfigInitAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "show"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "# source: "+env.configPath)
	requireContains(t, out, "[syncer]")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.socketPath, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, env.socketPath, ""); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
}

func TestLogsCommandTailsDaemonLog(t *testing.T) {
	env := setupCLITestEnv(t)

	logPath := filepath.Join(env.cfg.Paths.LogDir, "syncer.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	content := "INFO batch dispatched\nWARN replicate failure\nINFO batch dispatched\n"
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "INFO batch dispatched\n" {
		t.Fatalf("unexpected tail output %q", out)
	}

	out, _, err = runCLI(t, []string{"logs", "--grep", "WARN"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs --grep: %v", err)
	}
	requireContains(t, out, "replicate failure")
}

func TestConfigCheckReportsInvalidFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SYNCER_CONFIG", "")
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[syncer]\ntimer_limit = 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	socket := filepath.Join(t.TempDir(), "unused.sock")

	_, _, err := runCLI(t, []string{"config", "check"}, socket, path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	requireContains(t, err.Error(), "configuration invalid")
}
