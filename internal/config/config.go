package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and socket configuration.
type Paths struct {
	LogDir     string `toml:"log_dir"`
	StateDir   string `toml:"state_dir"`
	SocketPath string `toml:"socket_path"`
}

// Syncer contains event pipeline configuration.
type Syncer struct {
	// PipePath is the FIFO the dovecot plugin writes to. When empty the
	// daemon asks doveconf for plugin/syncer_pipe.
	PipePath       string  `toml:"pipe_path"`
	PipeOwner      string  `toml:"pipe_owner"`
	PipeGroup      string  `toml:"pipe_group"`
	TimerLimit     int     `toml:"timer_limit"`
	TimerDelay     float64 `toml:"timer_delay"`
	RegexChange    string  `toml:"regex_change"`
	RegexDefine    string  `toml:"regex_define"`
	RegexInvoke    string  `toml:"regex_invoke"`
	RegexReplicate string  `toml:"regex_replicate"`
	ProfilerPeriod float64 `toml:"profiler_period"`
}

// Profiler contains sampling profiler configuration.
type Profiler struct {
	Enable    bool    `toml:"enable"`
	Interval  float64 `toml:"interval"`
	ReportDir string  `toml:"report_dir"`
	Session   string  `toml:"session"`
}

// Dovecot contains settings for the dovecot command line tools.
type Dovecot struct {
	ConfigFile     string `toml:"config_file"`
	BinDir         string `toml:"bin_dir"`
	CommandTimeout int    `toml:"command_timeout"`
}

// Replicate contains doveadm sync settings.
type Replicate struct {
	LockTime int    `toml:"lock_time"`
	Protocol string `toml:"protocol"`
}

// Sieve contains filter generation settings.
type Sieve struct {
	Arkon string `toml:"arkon"`
}

// Tinker contains mesh network (tinc) layout settings.
type Tinker struct {
	EtcDir   string   `toml:"etc_dir"`
	NetName  string   `toml:"net_name"`
	ConfFile string   `toml:"conf_file"`
	NodeBase string   `toml:"node_base"`
	SkipList []string `toml:"skip_list"`
}

// Workflow contains supervised task timing.
type Workflow struct {
	ErrorRetryInterval int `toml:"error_retry_interval"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// History contains dispatch history retention settings.
type History struct {
	Enabled       bool `toml:"enabled"`
	RetentionDays int  `toml:"retention_days"`
}

// Config encapsulates all configuration values for the syncer daemon.
//
// Configuration sections by subsystem:
//   - Paths: log, state and socket locations
//   - Syncer: pipe location, debounce timers and dispatch patterns
//   - Profiler: sampling interval and report location
//   - Dovecot: doveconf/doveadm/sieve-filter invocation
//   - Replicate: doveadm sync lock and protocol
//   - Sieve: generated filter naming
//   - Tinker: mesh peer discovery layout
//   - Workflow: supervised task restart backoff
//   - Logging: log format, level, and retention
//   - History: dispatch history database
type Config struct {
	Paths     Paths     `toml:"paths"`
	Syncer    Syncer    `toml:"syncer"`
	Profiler  Profiler  `toml:"profiler"`
	Dovecot   Dovecot   `toml:"dovecot"`
	Replicate Replicate `toml:"replicate"`
	Sieve     Sieve     `toml:"sieve"`
	Tinker    Tinker    `toml:"tinker"`
	Workflow  Workflow  `toml:"workflow"`
	Logging   Logging   `toml:"logging"`
	History   History   `toml:"history"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and environment overrides applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if strings.TrimSpace(path) == "" {
		if value, ok := os.LookupEnv("SYNCER_CONFIG"); ok {
			path = strings.TrimSpace(value)
		}
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("syncer.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// The profiler report directory is only created when profiling is enabled.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Profiler.Enable {
		if err := os.MkdirAll(c.Profiler.ReportDir, 0o755); err != nil {
			return fmt.Errorf("create profiler report directory %q: %w", c.Profiler.ReportDir, err)
		}
	}
	return nil
}

// TimerDelay returns the debounce poll delay.
func (c *Config) TimerDelay() time.Duration {
	return seconds(c.Syncer.TimerDelay)
}

// ProfilerPeriod returns the interval between profiler reports.
func (c *Config) ProfilerPeriod() time.Duration {
	return seconds(c.Syncer.ProfilerPeriod)
}

// ProfilerInterval returns the sampling interval.
func (c *Config) ProfilerInterval() time.Duration {
	return seconds(c.Profiler.Interval)
}

// ErrorRetryInterval returns the supervised task restart backoff.
func (c *Config) ErrorRetryInterval() time.Duration {
	return time.Duration(c.Workflow.ErrorRetryInterval) * time.Second
}

// CommandTimeout returns the per-invocation limit for dovecot tools.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Dovecot.CommandTimeout) * time.Second
}

// ReportFile returns the profiler report path for a session.
func (c *Config) ReportFile(session string) string {
	return filepath.Join(c.Profiler.ReportDir, session+".txt")
}

// HistoryPath returns the dispatch history database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "syncerd.lock")
}

// PIDPath returns the pid file the daemon writes while running.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.StateDir, "syncerd.pid")
}

// TinkerNetDir returns the mesh network settings directory.
func (c *Config) TinkerNetDir() string {
	return filepath.Join(c.Tinker.EtcDir, c.Tinker.NetName)
}

// TinkerNodeDir returns the directory holding live node files.
func (c *Config) TinkerNodeDir() string {
	return filepath.Join(c.TinkerNetDir(), c.Tinker.NodeBase)
}

// TinkerConfFile returns the mesh network settings file.
func (c *Config) TinkerConfFile() string {
	return filepath.Join(c.TinkerNetDir(), c.Tinker.ConfFile)
}

func seconds(value float64) time.Duration {
	return time.Duration(value * float64(time.Second))
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	var buf strings.Builder
	encoder := toml.NewEncoder(&buf)
	encoder.SetIndentTables(true)
	if err := encoder.Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return buf.String(), nil
}
