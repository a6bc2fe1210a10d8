package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"syncer/internal/logs"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func TestTailLastLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syncer.log")
	writeLog(t, path, "a\nb\nc\n")

	result, err := logs.Tail(path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[0] != "b" || result.Lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
	if result.Offset != 6 {
		t.Fatalf("expected offset at end of file, got %d", result.Offset)
	}
}

func TestTailResumesAndHoldsPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syncer.log")
	writeLog(t, path, "one\n")

	first, err := logs.Tail(path, logs.TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}

	appendLog(t, path, "two\nthr")
	second, err := logs.Tail(path, logs.TailOptions{Offset: first.Offset})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if len(second.Lines) != 1 || second.Lines[0] != "two" {
		t.Fatalf("unexpected resumed lines: %#v", second.Lines)
	}

	appendLog(t, path, "ee\n")
	third, err := logs.Tail(path, logs.TailOptions{Offset: second.Offset})
	if err != nil {
		t.Fatalf("resume partial: %v", err)
	}
	if len(third.Lines) != 1 || third.Lines[0] != "three" {
		t.Fatalf("expected completed partial line, got %#v", third.Lines)
	}
}

func TestTailMatchFiltersLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syncer.log")
	writeLog(t, path, "INFO batch dispatched\nWARN replicate failure\nINFO batch dispatched\n")

	result, err := logs.Tail(path, logs.TailOptions{Offset: -1, Limit: 5, Match: "WARN"})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "WARN replicate failure" {
		t.Fatalf("unexpected filtered lines: %#v", result.Lines)
	}
}

func TestTailMissingAndTruncatedFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syncer.log")
	result, err := logs.Tail(path, logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil || len(result.Lines) != 0 {
		t.Fatalf("expected empty result for missing file, got %#v, %v", result, err)
	}

	writeLog(t, path, "fresh\n")
	result, err = logs.Tail(path, logs.TailOptions{Offset: 4096})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 1 || result.Lines[0] != "fresh" {
		t.Fatalf("expected restart after truncation, got %#v", result.Lines)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syncer.log")
	writeLog(t, path, "start\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, logs.TailOptions{Limit: 1}, func(line string) {
			mu.Lock()
			seen = append(seen, line)
			mu.Unlock()
		})
	}()

	time.Sleep(100 * time.Millisecond)
	appendLog(t, path, "later\n")

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n >= 2 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("follow: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != "start" || seen[1] != "later" {
		t.Fatalf("unexpected followed lines: %#v", seen)
	}
}
