package config

const (
	defaultConfigPath            = "~/.config/syncer/config.toml"
	defaultLogDir                = "~/.local/share/syncer/logs"
	defaultStateDir              = "~/.local/share/syncer"
	defaultSocketName            = "syncer.sock"
	defaultPipeOwner             = "service"
	defaultPipeGroup             = "dovecot"
	defaultTimerLimit            = 3
	defaultTimerDelay            = 1.0
	defaultRegexChange           = `^mailbox_(create|delete|rename)$`
	defaultRegexDefine           = `^(.+)([^/]+)@([^/]+)$`
	defaultRegexInvoke           = `^(inbox)$`
	defaultRegexReplicate        = `^(.+)$`
	defaultProfilerPeriod        = 15.0
	defaultProfilerEnable        = true
	defaultProfilerInterval      = 0.01
	defaultProfilerReportDir     = "/var/lib/syncer/profiler"
	defaultProfilerSession       = "syncer-service"
	defaultDovecotConfigFile     = "/etc/dovecot/dovecot.conf"
	defaultDovecotCommandTimeout = 300
	defaultReplicateLockTime     = 3
	defaultReplicateProtocol     = "tcp"
	defaultSieveArkon            = "A_R_K_O_N"
	defaultTinkerEtcDir          = "/etc/tinc"
	defaultTinkerNetName         = "mail"
	defaultTinkerConfFile        = "tinc.conf"
	defaultTinkerNodeBase        = "nodes"
	defaultWorkflowErrorRetry    = 1
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultLogRetentionDays      = 30
	defaultHistoryEnabled        = true
	defaultHistoryRetentionDays  = 14
)

var defaultTinkerSkipList = []string{"readme.md", "readme.txt", "readme.rst"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Syncer: Syncer{
			PipeOwner:      defaultPipeOwner,
			PipeGroup:      defaultPipeGroup,
			TimerLimit:     defaultTimerLimit,
			TimerDelay:     defaultTimerDelay,
			RegexChange:    defaultRegexChange,
			RegexDefine:    defaultRegexDefine,
			RegexInvoke:    defaultRegexInvoke,
			RegexReplicate: defaultRegexReplicate,
			ProfilerPeriod: defaultProfilerPeriod,
		},
		Profiler: Profiler{
			Enable:    defaultProfilerEnable,
			Interval:  defaultProfilerInterval,
			ReportDir: defaultProfilerReportDir,
			Session:   defaultProfilerSession,
		},
		Dovecot: Dovecot{
			ConfigFile:     defaultDovecotConfigFile,
			CommandTimeout: defaultDovecotCommandTimeout,
		},
		Replicate: Replicate{
			LockTime: defaultReplicateLockTime,
			Protocol: defaultReplicateProtocol,
		},
		Sieve: Sieve{
			Arkon: defaultSieveArkon,
		},
		Tinker: Tinker{
			EtcDir:   defaultTinkerEtcDir,
			NetName:  defaultTinkerNetName,
			ConfFile: defaultTinkerConfFile,
			NodeBase: defaultTinkerNodeBase,
			SkipList: append([]string(nil), defaultTinkerSkipList...),
		},
		Workflow: Workflow{
			ErrorRetryInterval: defaultWorkflowErrorRetry,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		History: History{
			Enabled:       defaultHistoryEnabled,
			RetentionDays: defaultHistoryRetentionDays,
		},
	}
}
