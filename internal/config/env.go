package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// applyEnv overlays the environment variables the mail service deployment
// has always used. Environment values take precedence over the file.
func (c *Config) applyEnv() error {
	stringVars := map[string]*string{
		"SYNCER_PIPE":            &c.Syncer.PipePath,
		"SYNCER_REGEX_CHANGE":    &c.Syncer.RegexChange,
		"SYNCER_REGEX_DEFINE":    &c.Syncer.RegexDefine,
		"SYNCER_REGEX_INVOKE":    &c.Syncer.RegexInvoke,
		"SYNCER_REGEX_REPLICATE": &c.Syncer.RegexReplicate,
		"PROFILER_REPORT_DIR":    &c.Profiler.ReportDir,
		"DOVECOT_CONFIG":         &c.Dovecot.ConfigFile,
		"REPLICATE_PROTOCOL":     &c.Replicate.Protocol,
		"SIEVE_ARKON":            &c.Sieve.Arkon,
		"TINKER_ETC_DIR":         &c.Tinker.EtcDir,
		"TINKER_NET_NAME":        &c.Tinker.NetName,
		"TINKER_CONF_FILE":       &c.Tinker.ConfFile,
		"TINKER_NODE_BASE":       &c.Tinker.NodeBase,
		"LOGGING_LEVEL":          &c.Logging.Level,
	}
	for key, target := range stringVars {
		if value, ok := os.LookupEnv(key); ok {
			*target = value
		}
	}

	intVars := map[string]*int{
		"SYNCER_TIMER_LIMIT":  &c.Syncer.TimerLimit,
		"REPLICATE_LOCK_TIME": &c.Replicate.LockTime,
	}
	for key, target := range intVars {
		value, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%s: invalid integer %q", key, value)
		}
		*target = parsed
	}

	floatVars := map[string]*float64{
		"SYNCER_TIMER_DELAY":     &c.Syncer.TimerDelay,
		"SYNCER_PROFILER_PERIOD": &c.Syncer.ProfilerPeriod,
		"PROFILER_INTERVAL":      &c.Profiler.Interval,
	}
	for key, target := range floatVars {
		value, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("%s: invalid number %q", key, value)
		}
		*target = parsed
	}

	if value, ok := os.LookupEnv("PROFILER_ENABLE"); ok {
		c.Profiler.Enable = parseBool(value)
	}

	if value, ok := os.LookupEnv("TINKER_SKIP_LIST"); ok {
		words, err := SplitWords(value)
		if err != nil {
			return fmt.Errorf("TINKER_SKIP_LIST: %w", err)
		}
		c.Tinker.SkipList = words
	}
	return nil
}

// parseBool accepts the loose spellings used in service environment files.
func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "on", "t", "1":
		return true
	default:
		return false
	}
}
