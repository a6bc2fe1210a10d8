package events_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"syncer/internal/events"
)

func TestQueuePreservesOrder(t *testing.T) {
	q := events.NewQueue(nil)
	q.Push("a")
	q.Push("b")
	q.Push("c")

	var got []string
	for {
		line, ok := q.TryPop()
		if !ok {
			break
		}
		got = append(got, line)
	}
	if strings.Join(got, ",") != "a,b,c" {
		t.Fatalf("order = %v", got)
	}
	if q.Len() != 0 {
		t.Fatalf("len = %d, want 0", q.Len())
	}
}

func TestQueueHighWaterLogsOnlyOnIncrease(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	q := events.NewQueue(logger)

	q.Push("1")
	q.Push("2")
	q.TryPop() // observes 2: new maximum
	q.TryPop() // observes 1
	q.TryPop() // observes 0
	q.Push("3")
	q.Push("4")
	q.TryPop() // observes 2: tie
	q.Push("5")
	q.Push("6")
	q.TryPop() // observes 3: new maximum

	if q.HighWater() != 3 {
		t.Fatalf("high water = %d, want 3", q.HighWater())
	}
	if got := strings.Count(buf.String(), "high-water"); got != 2 {
		t.Fatalf("expected 2 high-water logs, got %d:\n%s", got, buf.String())
	}
}
