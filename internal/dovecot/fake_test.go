package dovecot_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"syncer/internal/dovecot"
)

// fakeRunner answers commands from a table keyed by "name args...".
type fakeRunner struct {
	mu       sync.Mutex
	replies  map[string]string
	failures map[string]error
	calls    []dovecot.Command
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{replies: map[string]string{}, failures: map[string]error{}}
}

func (f *fakeRunner) Run(_ context.Context, cmd dovecot.Command) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)
	key := cmd.String()
	if err, ok := f.failures[key]; ok {
		return "", err
	}
	if reply, ok := f.replies[key]; ok {
		return reply, nil
	}
	if strings.HasPrefix(key, "doveconf -h ") {
		return "", nil
	}
	return "", fmt.Errorf("unexpected command %q", key)
}

func (f *fakeRunner) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.String())
	}
	return out
}
