package logging_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"syncer/internal/config"
	"syncer/internal/logging"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("daemon ready", logging.String(logging.FieldComponent, "daemon"))

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "[daemon] – daemon ready") {
		t.Fatalf("unexpected log content: %q", content)
	}
}

func TestConsoleLoggerRendersSubjectAndFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithBatchID(context.Background(), "0123456789abcdef")
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "dispatch")).Info("batch dispatched",
		logging.String(logging.FieldTask, "syncer-consumer"),
		logging.Int("events", 3),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "INFO [dispatch] syncer-consumer · batch 01234567 – batch dispatched") {
		t.Fatalf("unexpected header: %q", text)
	}
	if !strings.Contains(text, "    - events: 3") {
		t.Fatalf("expected field line, got %q", text)
	}
	if strings.Contains(text, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", text)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("queue grew", logging.Int("queue_size_max", 4))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, want := range []string{`"ts":`, `"level":"warn"`, `"msg":"queue grew"`, `"queue_size_max":4`} {
		if !bytes.Contains(content, []byte(want)) {
			t.Fatalf("expected %s in %q", want, content)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestPruneLogsKeepsActiveFile(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-72 * time.Hour)
	for _, name := range []string{"syncer.log", "syncer.log.1", "notes.txt"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := os.Chtimes(path, old, old); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
	}

	removed := logging.PruneLogs(logging.NewNop(), dir, 24*time.Hour, filepath.Join(dir, "syncer.log"))
	if removed != 1 {
		t.Fatalf("expected one pruned file, got %d", removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "syncer.log")); err != nil {
		t.Fatalf("active log removed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "notes.txt")); err != nil {
		t.Fatalf("non-log file removed: %v", err)
	}
}

func TestWarnWithContextFillsMissingFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "warn.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "replicate failure", "replicate_failed",
		logging.String(logging.FieldImpact, "peer misses this mailbox until the next change"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, want := range []string{
		`"event_type":"replicate_failed"`,
		`"error_hint":"check logs for details"`,
		`"impact":"peer misses this mailbox until the next change"`,
	} {
		if !bytes.Contains(content, []byte(want)) {
			t.Fatalf("expected %s in %q", want, content)
		}
	}
	if bytes.Count(content, []byte(`"impact"`)) != 1 {
		t.Fatalf("caller impact must replace the default, got %q", content)
	}
}

func TestParseLevelAliases(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")
	logger, err := logging.New(logging.Options{Level: "warning", Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if bytes.Contains(content, []byte("hidden")) || !bytes.Contains(content, []byte("shown")) {
		t.Fatalf("unexpected level filtering: %q", content)
	}
}
