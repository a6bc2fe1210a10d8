package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSyncer(); err != nil {
		return err
	}
	if err := c.normalizeProfiler(); err != nil {
		return err
	}
	c.normalizeDovecot()
	c.normalizeTinker()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) == "" {
		c.Paths.SocketPath = filepath.Join(c.Paths.StateDir, defaultSocketName)
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeSyncer() error {
	c.Syncer.PipePath = strings.TrimSpace(c.Syncer.PipePath)
	if c.Syncer.PipePath != "" {
		var err error
		if c.Syncer.PipePath, err = expandPath(c.Syncer.PipePath); err != nil {
			return fmt.Errorf("syncer.pipe_path: %w", err)
		}
	}
	c.Syncer.PipeOwner = strings.TrimSpace(c.Syncer.PipeOwner)
	c.Syncer.PipeGroup = strings.TrimSpace(c.Syncer.PipeGroup)
	if strings.TrimSpace(c.Syncer.RegexChange) == "" {
		c.Syncer.RegexChange = defaultRegexChange
	}
	if strings.TrimSpace(c.Syncer.RegexDefine) == "" {
		c.Syncer.RegexDefine = defaultRegexDefine
	}
	if strings.TrimSpace(c.Syncer.RegexInvoke) == "" {
		c.Syncer.RegexInvoke = defaultRegexInvoke
	}
	if strings.TrimSpace(c.Syncer.RegexReplicate) == "" {
		c.Syncer.RegexReplicate = defaultRegexReplicate
	}
	return nil
}

func (c *Config) normalizeProfiler() error {
	if strings.TrimSpace(c.Profiler.ReportDir) == "" {
		c.Profiler.ReportDir = defaultProfilerReportDir
	}
	var err error
	if c.Profiler.ReportDir, err = expandPath(c.Profiler.ReportDir); err != nil {
		return fmt.Errorf("profiler.report_dir: %w", err)
	}
	c.Profiler.Session = strings.TrimSpace(c.Profiler.Session)
	if c.Profiler.Session == "" {
		c.Profiler.Session = defaultProfilerSession
	}
	return nil
}

func (c *Config) normalizeDovecot() {
	c.Dovecot.ConfigFile = strings.TrimSpace(c.Dovecot.ConfigFile)
	if c.Dovecot.ConfigFile == "" {
		c.Dovecot.ConfigFile = defaultDovecotConfigFile
	}
	c.Dovecot.BinDir = strings.TrimSpace(c.Dovecot.BinDir)
	c.Replicate.Protocol = strings.TrimSpace(c.Replicate.Protocol)
	if c.Replicate.Protocol == "" {
		c.Replicate.Protocol = defaultReplicateProtocol
	}
	c.Sieve.Arkon = strings.TrimSpace(c.Sieve.Arkon)
	if c.Sieve.Arkon == "" {
		c.Sieve.Arkon = defaultSieveArkon
	}
}

func (c *Config) normalizeTinker() {
	if strings.TrimSpace(c.Tinker.EtcDir) == "" {
		c.Tinker.EtcDir = defaultTinkerEtcDir
	}
	if strings.TrimSpace(c.Tinker.NetName) == "" {
		c.Tinker.NetName = defaultTinkerNetName
	}
	if strings.TrimSpace(c.Tinker.ConfFile) == "" {
		c.Tinker.ConfFile = defaultTinkerConfFile
	}
	if strings.TrimSpace(c.Tinker.NodeBase) == "" {
		c.Tinker.NodeBase = defaultTinkerNodeBase
	}
	skip := c.Tinker.SkipList[:0]
	for _, name := range c.Tinker.SkipList {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			skip = append(skip, trimmed)
		}
	}
	c.Tinker.SkipList = skip
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
