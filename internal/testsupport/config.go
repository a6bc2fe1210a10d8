package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"syncer/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Timers are shortened so debounce tests finish quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.SocketPath = filepath.Join(base, "state", "syncer.sock")
	cfgVal.Syncer.PipePath = filepath.Join(base, "run", "pipe")
	cfgVal.Syncer.PipeOwner = ""
	cfgVal.Syncer.PipeGroup = ""
	cfgVal.Syncer.TimerLimit = 2
	cfgVal.Syncer.TimerDelay = 0.01
	cfgVal.Syncer.ProfilerPeriod = 0.05
	cfgVal.Profiler.ReportDir = filepath.Join(base, "profiler")
	cfgVal.Profiler.Interval = 0.005
	cfgVal.Dovecot.ConfigFile = filepath.Join(base, "dovecot", "dovecot.conf")
	cfgVal.Tinker.EtcDir = filepath.Join(base, "tinc")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTimers overrides the debounce limit and delay (seconds).
func WithTimers(limit int, delay float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Syncer.TimerLimit = limit
		b.cfg.Syncer.TimerDelay = delay
	}
}

// WithProfilerDisabled turns off sampling.
func WithProfilerDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Profiler.Enable = false
	}
}

// WithHistoryDisabled turns off the dispatch history store.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// WithPeers writes a tinc layout naming self and one node file per peer
// (name -> address) under the config's tinker directory.
func WithPeers(self string, peers map[string]string) ConfigOption {
	return func(b *configBuilder) {
		netDir := filepath.Join(b.cfg.Tinker.EtcDir, b.cfg.Tinker.NetName)
		nodeDir := filepath.Join(netDir, b.cfg.Tinker.NodeBase)
		if err := os.MkdirAll(nodeDir, 0o755); err != nil {
			b.t.Fatalf("mkdir node dir: %v", err)
		}
		WriteFile(b.t, filepath.Join(netDir, b.cfg.Tinker.ConfFile), "Name = "+self+"\n")
		for name, addr := range peers {
			WriteFile(b.t, filepath.Join(nodeDir, name), "Node_Addr = "+addr+"\n")
		}
	}
}

// WithStubbedBinaries writes stub executables for the provided names into a
// temp bin directory and points the dovecot bin dir at it. Each stub prints
// its arguments on one line and exits 0.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"doveconf", "doveadm", "sieve-filter"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\necho \"$@\"\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.cfg.Dovecot.BinDir = binDir
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
