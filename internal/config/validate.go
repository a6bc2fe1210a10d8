package config

import (
	"errors"
	"fmt"
	"regexp"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSyncer(); err != nil {
		return err
	}
	if err := c.validateProfiler(); err != nil {
		return err
	}
	if err := c.validateDovecot(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSyncer() error {
	if c.Syncer.TimerLimit < 1 {
		return errors.New("syncer.timer_limit must be at least 1")
	}
	if c.Syncer.TimerDelay <= 0 {
		return errors.New("syncer.timer_delay must be positive")
	}
	if c.Syncer.ProfilerPeriod <= 0 {
		return errors.New("syncer.profiler_period must be positive")
	}
	patterns := []struct {
		key   string
		value string
	}{
		{"syncer.regex_change", c.Syncer.RegexChange},
		{"syncer.regex_define", c.Syncer.RegexDefine},
		{"syncer.regex_invoke", c.Syncer.RegexInvoke},
		{"syncer.regex_replicate", c.Syncer.RegexReplicate},
	}
	for _, p := range patterns {
		if _, err := regexp.Compile(p.value); err != nil {
			return fmt.Errorf("%s: %w", p.key, err)
		}
	}
	return nil
}

func (c *Config) validateProfiler() error {
	if !c.Profiler.Enable {
		return nil
	}
	if c.Profiler.Interval <= 0 {
		return errors.New("profiler.interval must be positive")
	}
	return nil
}

func (c *Config) validateDovecot() error {
	if c.Dovecot.CommandTimeout <= 0 {
		return errors.New("dovecot.command_timeout must be positive")
	}
	if c.Replicate.LockTime <= 0 {
		return errors.New("replicate.lock_time must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.ErrorRetryInterval <= 0 {
		return errors.New("workflow.error_retry_interval must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}
