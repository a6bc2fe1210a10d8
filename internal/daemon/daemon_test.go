package daemon_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"syncer/internal/daemon"
	"syncer/internal/dovecot"
	"syncer/internal/events"
	"syncer/internal/history"
	"syncer/internal/logging"
	"syncer/internal/testsupport"
)

type recordingRunner struct {
	mu       sync.Mutex
	commands []string
	settings map[string]string
}

func (r *recordingRunner) Run(_ context.Context, cmd dovecot.Command) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, cmd.String())
	if cmd.Name == dovecot.Doveconf && len(cmd.Args) == 2 {
		return r.settings[cmd.Args[1]], nil
	}
	return "", nil
}

func (r *recordingRunner) ran(prefix string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.commands {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestDaemonDispatchesPipeEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	runner := &recordingRunner{settings: map[string]string{
		dovecot.SettingMailHome:    filepath.Join(testsupport.BaseDir(cfg), "mail", "%d", "%n"),
		dovecot.SettingSieveActive: "~/.dovecot.sieve",
	}}
	d, err := daemon.New(cfg, store, logging.NewNop(), daemon.WithRunner(runner))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	ev := events.Event{ChangeType: "mailbox_create", UserName: "a@b", MailboxName: "Inbox", MailboxGUID: "1"}
	waitFor(t, "pipe reader", func() bool {
		return events.WriteEvent(d.PipePath(), ev) == nil
	})
	waitFor(t, "batch dispatch", func() bool { return d.Status().Dispatch.Batches >= 1 })

	if !runner.ran("doveconf -h plugin/sieve") {
		t.Fatal("expected filter invoke lookup")
	}
	if got := d.Status().Dispatch; got.Units != 1 || got.Failures != 0 {
		t.Fatalf("unexpected dispatch stats: %+v", got)
	}

	status := d.Status()
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.PipePath != cfg.Syncer.PipePath {
		t.Fatalf("unexpected pipe path %q", status.PipePath)
	}
	if len(status.Workflow.Tasks) != 3 {
		t.Fatalf("expected producer, consumer and report tasks, got %+v", status.Workflow.Tasks)
	}
	if !status.Profiler.Enabled {
		t.Fatal("expected profiler enabled")
	}

	batches, err := d.History(ctx, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(batches) == 0 || batches[0].Events < 1 {
		t.Fatalf("expected recorded batch, got %+v", batches)
	}

	if _, err := d.Report(); err != nil {
		t.Fatalf("Report: %v", err)
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
	if _, err := os.Stat(cfg.ReportFile(cfg.Profiler.Session)); err != nil {
		t.Fatalf("expected final report: %v", err)
	}
}

func TestDaemonLockIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithProfilerDisabled())
	runner := &recordingRunner{}

	first, err := daemon.New(cfg, nil, logging.NewNop(), daemon.WithRunner(runner))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { first.Close() })
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	second, err := daemon.New(cfg, nil, logging.NewNop(), daemon.WithRunner(runner))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	if _, err := first.Report(); !errors.Is(err, daemon.ErrProfilerDisabled) {
		t.Fatalf("expected ErrProfilerDisabled, got %v", err)
	}
	if _, err := first.History(context.Background(), 5); !errors.Is(err, daemon.ErrHistoryDisabled) {
		t.Fatalf("expected ErrHistoryDisabled, got %v", err)
	}
}

func TestDaemonResolvesPipeFromDoveconf(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithProfilerDisabled())
	pipe := cfg.Syncer.PipePath
	cfg.Syncer.PipePath = ""
	runner := &recordingRunner{settings: map[string]string{dovecot.SettingSyncerPipe: pipe}}

	d, err := daemon.New(cfg, nil, logging.NewNop(), daemon.WithRunner(runner))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if d.PipePath() != pipe {
		t.Fatalf("expected pipe %q, got %q", pipe, d.PipePath())
	}
}

func TestDaemonRequestShutdownClosesDone(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithProfilerDisabled())
	d, err := daemon.New(cfg, nil, logging.NewNop(), daemon.WithRunner(&recordingRunner{}))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	d.RequestShutdown()
	d.RequestShutdown()
	select {
	case <-d.Done():
	default:
		t.Fatal("expected done channel closed")
	}
}
