package main

import (
	"strings"
	"testing"
	"time"

	"syncer/internal/deps"
	"syncer/internal/ipc"
)

func TestFormatCountGroupsThousands(t *testing.T) {
	if got := formatCount(1234567); got != "1,234,567" {
		t.Fatalf("unexpected grouping %q", got)
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{5*time.Minute + 3*time.Second, "5m03s"},
		{3*time.Hour + 7*time.Minute, "3h07m"},
		{72 * time.Hour, "3d"},
	}
	for _, tc := range cases {
		if got := formatAge(now.Add(-tc.ago), now); got != tc.want {
			t.Errorf("formatAge(%s) = %q, want %q", tc.ago, got, tc.want)
		}
	}
}

func TestTaskRowsTrimsMultilineErrors(t *testing.T) {
	rows := taskRows([]ipc.TaskState{{
		Name:      "consumer",
		Thread:    "syncer-consumer",
		Running:   true,
		Restarts:  2,
		LastError: "task consumer panicked: boom\ngoroutine 7",
	}})
	want := []string{"Consumer", "syncer-consumer", "yes", "2", "task consumer panicked: boom"}
	if strings.Join(rows[0], "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected row %q", rows[0])
	}
}

func TestDaemonStatusLinesFlagFailures(t *testing.T) {
	now := time.Now()
	status := &ipc.StatusResponse{
		Running:   true,
		PID:       42,
		StartedAt: now.Add(-time.Minute),
		PipePath:  "/run/syncer/pipe",
		Dispatch:  ipc.DispatchStats{Batches: 3, Events: 1200, Units: 9, Failures: 1},
	}
	lines := daemonStatusLines(status, now, false)
	joined := strings.Join(lines, "\n")
	for _, want := range []string{"[OK] pid 42, up 1m00s", "[WARN] 3 batches, 1,200 events, 9 units, 1 failures", "Profiler:", "[INFO] disabled"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in:\n%s", want, joined)
		}
	}
}

func TestDependencyLinesMarkMissingTools(t *testing.T) {
	lines := dependencyLines([]deps.Status{
		{Name: "doveadm", Command: "/usr/bin/doveadm", Available: true},
		{Name: "sieve-filter", Command: "sieve-filter", Detail: `binary "sieve-filter" not found`},
	}, false)
	if len(lines) != 2 {
		t.Fatalf("expected two lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[OK] /usr/bin/doveadm") {
		t.Fatalf("unexpected available line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[ERROR] binary") {
		t.Fatalf("unexpected missing line %q", lines[1])
	}
}

func TestRenderTableKeepsHeaderCase(t *testing.T) {
	out := renderTable(
		[]string{"Batch", "Replications"},
		[][]string{{"b1", ""}},
		[]columnAlignment{alignLeft, alignRight},
	)
	if !strings.Contains(out, "Replications") {
		t.Fatalf("expected header case preserved, got:\n%s", out)
	}
	if strings.Contains(out, "REPLICATIONS") {
		t.Fatalf("header was upper-cased:\n%s", out)
	}
	if !strings.Contains(out, "- │") {
		t.Fatalf("expected empty cell placeholder, got:\n%s", out)
	}
}
