package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"syncer/internal/config"
	"syncer/internal/dispatch"
	"syncer/internal/events"
	"syncer/internal/history"
	"syncer/internal/logging"
	"syncer/internal/peers"
	"syncer/internal/services"
	"syncer/internal/testsupport"
)

func defaultPatterns(t *testing.T) dispatch.Patterns {
	t.Helper()
	cfg := config.Default()
	p, err := dispatch.PatternsFromConfig(&cfg)
	if err != nil {
		t.Fatalf("compile default patterns: %v", err)
	}
	return p
}

func line(change, user, mailbox, guid string) string {
	return events.Event{ChangeType: change, UserName: user, MailboxName: mailbox, MailboxGUID: guid}.Line()
}

func TestClassifyDeduplicatesRepeatedEvents(t *testing.T) {
	p := defaultPatterns(t)
	ev := events.Event{ChangeType: "mailbox_create", UserName: "a@b", MailboxName: "Inbox", MailboxGUID: "1"}

	sets := dispatch.Classify(p, []events.Event{ev, ev})

	testsupport.Diff(t, "build", map[string]struct{}{}, sets.Build)
	testsupport.Diff(t, "invoke", map[string]map[string]struct{}{"a@b": {"Inbox": {}}}, sets.Invoke)
	testsupport.Diff(t, "replicate", map[string]map[string]struct{}{"a@b": {"1": {}}}, sets.Replicate)
	if sets.InvokeCount() != 1 || sets.ReplicateCount() != 1 {
		t.Fatalf("unexpected counts invoke=%d replicate=%d", sets.InvokeCount(), sets.ReplicateCount())
	}
}

func TestClassifyBuildNeedsChangeAndDefine(t *testing.T) {
	p := defaultPatterns(t)
	evs := []events.Event{
		{ChangeType: "mailbox_create", UserName: "u1@x", MailboxName: "Filters/Work [x] boss@corp", MailboxGUID: "g1"},
		{ChangeType: "mailbox_subscribe", UserName: "u2@x", MailboxName: "Filters/Work [x] boss@corp", MailboxGUID: "g2"},
		{ChangeType: "mailbox_rename", UserName: "u3@x", MailboxName: "Archive", MailboxGUID: "g3"},
	}

	sets := dispatch.Classify(p, evs)

	testsupport.Diff(t, "build", map[string]struct{}{"u1@x": {}}, sets.Build)
	if sets.InvokeCount() != 0 {
		t.Fatalf("expected no invokes, got %v", sets.Invoke)
	}
	if sets.ReplicateCount() != 3 {
		t.Fatalf("expected every mailbox replicated, got %v", sets.Replicate)
	}
}

func TestPatternsAnchorAtStartOnly(t *testing.T) {
	p, err := dispatch.CompilePatterns("mailbox_", "x", "inbox", ".*")
	if err != nil {
		t.Fatalf("CompilePatterns: %v", err)
	}
	if !p.Invoke.MatchString("INBOX.old") {
		t.Fatal("expected case-insensitive prefix match for invoke pattern")
	}
	if p.Invoke.MatchString("old.inbox") {
		t.Fatal("invoke pattern must be anchored at the start")
	}
	if !p.Change.MatchString("mailbox_create") {
		t.Fatal("expected change pattern prefix match")
	}
	if p.Change.MatchString("MAILBOX_create") {
		t.Fatal("change pattern must be case sensitive")
	}
}

func TestCompilePatternsRejectsInvalidExpression(t *testing.T) {
	if _, err := dispatch.CompilePatterns("(", "x", "x", "x"); err == nil {
		t.Fatal("expected compile error")
	}
}

type call struct {
	Kind   string
	User   string
	Target string
	Peer   string
}

type fakeWork struct {
	mu         sync.Mutex
	calls      []call
	failBuild  map[string]bool
	panicGUID  string
	failPeer   string
	peers      []peers.Peer
	unitsSeen  []history.Unit
	batchesOut []history.Batch
}

func (f *fakeWork) add(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeWork) BuildFilters(_ context.Context, user string) error {
	f.add(call{Kind: "build", User: user})
	if f.failBuild[user] {
		return services.Wrap(services.ErrExternalTool, "sieve", "build", "compile failed", errors.New("exit 1"))
	}
	return nil
}

func (f *fakeWork) InvokeFilters(_ context.Context, user, mailbox string) error {
	f.add(call{Kind: "invoke", User: user, Target: mailbox})
	return nil
}

func (f *fakeWork) Replicate(_ context.Context, user, guid, addr string, port int) error {
	peer := fmt.Sprintf("%s:%d", addr, port)
	f.add(call{Kind: "replicate", User: user, Target: guid, Peer: peer})
	if guid == f.panicGUID {
		panic("replicator exploded")
	}
	if peer == f.failPeer {
		return services.Wrap(services.ErrTimeout, "dovecot", "sync", "timed out", context.DeadlineExceeded)
	}
	return nil
}

func (f *fakeWork) EachPeer(ctx context.Context, fn func(ctx context.Context, peer peers.Peer) error) {
	for _, peer := range f.peers {
		_ = fn(ctx, peer)
	}
}

func (f *fakeWork) BeginBatch(context.Context, history.Batch) error { return nil }

func (f *fakeWork) RecordUnit(_ context.Context, unit history.Unit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unitsSeen = append(f.unitsSeen, unit)
	return nil
}

func (f *fakeWork) FinishBatch(_ context.Context, batch history.Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchesOut = append(f.batchesOut, batch)
	return nil
}

func newDispatcher(t *testing.T, work *fakeWork) *dispatch.Dispatcher {
	t.Helper()
	return dispatch.New(defaultPatterns(t), dispatch.Collaborators{
		Builder:    work,
		Invoker:    work,
		Replicator: work,
		Peers:      work,
		Recorder:   work,
	}, logging.NewNop())
}

func TestHandleBatchIsolatesUnitFailures(t *testing.T) {
	work := &fakeWork{
		failBuild: map[string]bool{"a@x": true},
		panicGUID: "g-a",
		failPeer:  "10.0.0.2:12345",
		peers: []peers.Peer{
			{Name: "one", Addr: "10.0.0.1", Port: 12345},
			{Name: "two", Addr: "10.0.0.2", Port: 12345},
		},
	}
	d := newDispatcher(t, work)

	batch := events.Batch{ID: "batch-1", Lines: []string{
		line("mailbox_create", "b@x", "Filters/Team [t] lead@corp", "g-b"),
		line("mailbox_create", "a@x", "Filters/Work [w] boss@corp", "g-a"),
		line("mailbox_create", "a@x", "INBOX", "g-a"),
	}}
	if err := d.HandleBatch(context.Background(), batch); err != nil {
		t.Fatalf("HandleBatch: %v", err)
	}

	want := []call{
		{Kind: "build", User: "a@x"},
		{Kind: "build", User: "b@x"},
		{Kind: "invoke", User: "a@x", Target: "INBOX"},
		{Kind: "replicate", User: "a@x", Target: "g-a", Peer: "10.0.0.1:12345"},
		{Kind: "replicate", User: "a@x", Target: "g-a", Peer: "10.0.0.2:12345"},
		{Kind: "replicate", User: "b@x", Target: "g-b", Peer: "10.0.0.1:12345"},
		{Kind: "replicate", User: "b@x", Target: "g-b", Peer: "10.0.0.2:12345"},
	}
	testsupport.Diff(t, "calls", want, work.calls)

	outcomes := make(map[string]string)
	for _, u := range work.unitsSeen {
		if u.BatchID != "batch-1" {
			t.Fatalf("unit recorded under batch %q", u.BatchID)
		}
		outcomes[string(u.Kind)+" "+u.User+" "+u.Target+" "+u.Peer] = u.Outcome
	}
	testsupport.Diff(t, "outcomes", map[string]string{
		"build a@x  ":                      "external_tool",
		"build b@x  ":                      "ok",
		"invoke a@x INBOX ":                "ok",
		"replicate a@x g-a 10.0.0.1:12345": "transient",
		"replicate a@x g-a 10.0.0.2:12345": "transient",
		"replicate b@x g-b 10.0.0.1:12345": "ok",
		"replicate b@x g-b 10.0.0.2:12345": "timeout",
	}, outcomes)

	if len(work.batchesOut) != 1 {
		t.Fatalf("expected one finished batch, got %d", len(work.batchesOut))
	}
	finished := work.batchesOut[0]
	if finished.Builds != 2 || finished.Invokes != 1 || finished.Replications != 4 || finished.Failures != 4 {
		t.Fatalf("unexpected batch summary: %+v", finished)
	}

	stats := d.Stats()
	if stats.Batches != 1 || stats.Events != 3 || stats.Units != 7 || stats.Failures != 4 || stats.LastBatchID != "batch-1" {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestHandleBatchSkipsMalformedRecords(t *testing.T) {
	work := &fakeWork{peers: []peers.Peer{{Name: "one", Addr: "10.0.0.1", Port: 1}}}
	d := newDispatcher(t, work)

	batch := events.Batch{ID: "batch-2", Lines: []string{
		"garbage without fields",
		line("mailbox_create", "a@b", "Inbox", "1"),
	}}
	if err := d.HandleBatch(context.Background(), batch); err != nil {
		t.Fatalf("HandleBatch: %v", err)
	}

	if len(work.calls) != 2 {
		t.Fatalf("expected invoke and replicate calls, got %+v", work.calls)
	}
	if got := work.batchesOut[0].Skipped; got != 1 {
		t.Fatalf("expected one skipped record, got %d", got)
	}
	if d.Stats().Skipped != 1 {
		t.Fatalf("expected skipped counter 1, got %d", d.Stats().Skipped)
	}
}

func TestHandleBatchWithoutRecorder(t *testing.T) {
	work := &fakeWork{}
	d := dispatch.New(defaultPatterns(t), dispatch.Collaborators{
		Builder:    work,
		Invoker:    work,
		Replicator: work,
		Peers:      work,
	}, logging.NewNop())

	if err := d.HandleBatch(context.Background(), events.Batch{ID: "b", Lines: []string{line("mailbox_create", "a@b", "Inbox", "1")}}); err != nil {
		t.Fatalf("HandleBatch: %v", err)
	}
	if len(work.unitsSeen) != 0 {
		t.Fatalf("no recorder configured, got %d units", len(work.unitsSeen))
	}
}
