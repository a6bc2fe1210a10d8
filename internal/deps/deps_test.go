package deps_test

import (
	"os"
	"path/filepath"
	"testing"

	"syncer/internal/config"
	"syncer/internal/deps"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []deps.Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  ", Optional: true},
	}

	results := deps.CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary with detail, got %#v", results[1])
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for blank command: %q", results[2].Detail)
	}

	missing := deps.Missing(results)
	if len(missing) != 1 || missing[0] != "Missing" {
		t.Fatalf("optional tools must not count as missing: %v", missing)
	}
}

func TestDovecotRequirementsHonourBinDir(t *testing.T) {
	binDir := t.TempDir()
	for _, name := range []string{"doveconf", "doveadm"} {
		if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatalf("write stub: %v", err)
		}
	}
	cfg := config.Default()
	cfg.Dovecot.BinDir = binDir

	results := deps.CheckBinaries(deps.DovecotRequirements(&cfg))
	if len(results) != 3 {
		t.Fatalf("expected three requirements, got %d", len(results))
	}
	if !results[0].Available || !results[1].Available {
		t.Fatalf("expected doveconf and doveadm from bin dir, got %#v", results)
	}
	if results[2].Available {
		t.Fatalf("expected sieve-filter missing, got %#v", results[2])
	}
	if missing := deps.Missing(results); len(missing) != 1 || missing[0] != "sieve-filter" {
		t.Fatalf("unexpected missing tools: %v", missing)
	}
}
