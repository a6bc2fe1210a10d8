package daemonrun

import (
	"path/filepath"
	"testing"

	"syncer/internal/logging"
	"syncer/internal/testsupport"
)

func TestEnsureCurrentLogPointerReplacesLink(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "syncer-1.log")
	second := filepath.Join(dir, "syncer-2.log")
	testsupport.WriteFile(t, first, "one\n")
	testsupport.WriteFile(t, second, "two\n")

	if err := ensureCurrentLogPointer(dir, first); err != nil {
		t.Fatalf("first pointer: %v", err)
	}
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("second pointer: %v", err)
	}
	if got := testsupport.ReadFile(t, filepath.Join(dir, logging.LogFileName)); got != "two\n" {
		t.Fatalf("pointer resolves to %q", got)
	}
}
