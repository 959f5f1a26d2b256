package config

const (
	defaultConfigPath         = "~/.config/postboxd/config.toml"
	defaultStateDir           = "~/.local/share/postboxd"
	defaultDatabaseName       = "postboxd.db"
	defaultLogDir             = "~/.local/share/postboxd/logs"
	defaultLockName           = "monitor.lock"
	defaultAutoApplyThreshold = 0.8
	defaultReviewFloor        = 0.3
	defaultBatchWorkers       = 4
	defaultBatchMinDelayMs    = 250
	defaultWindowDays         = 7
	defaultMinimumCountGuard  = 3
	defaultMaxRunAgeDays      = 1
	defaultSpikePercent       = 100
	defaultSpikeMinimumDelta  = 10
	defaultTier               = "standard"
	defaultMonitorInterval    = 3600
	defaultNotifyTimeout      = 10
	defaultNotifyDedupWindow  = 600
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogMaxSizeMB       = 50
	defaultLogMaxBackups      = 5
	defaultLogMaxAgeDays      = 60
)

// DefaultTiers returns the built-in anomaly tiers.
func DefaultTiers() map[string]Tier {
	return map[string]Tier{
		"scrutinized": {DropPercent: -30},
		"standard":    {DropPercent: -50},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Matching: Matching{
			AutoApplyThreshold: defaultAutoApplyThreshold,
			ReviewFloor:        defaultReviewFloor,
		},
		Batch: Batch{
			Workers:        defaultBatchWorkers,
			MinDelayMillis: defaultBatchMinDelayMs,
		},
		Anomaly: Anomaly{
			WindowDays:        defaultWindowDays,
			MinimumCountGuard: defaultMinimumCountGuard,
			MaxRunAgeDays:     defaultMaxRunAgeDays,
			SpikePercent:      defaultSpikePercent,
			SpikeMinimumDelta: defaultSpikeMinimumDelta,
			DefaultTier:       defaultTier,
			Tiers:             DefaultTiers(),
			Sources:           map[string]string{},
		},
		Monitor: Monitor{
			IntervalSeconds: defaultMonitorInterval,
		},
		Notifications: Notifications{
			RequestTimeout:     defaultNotifyTimeout,
			Anomalies:          true,
			Review:             true,
			Merges:             false,
			DedupWindowSeconds: defaultNotifyDedupWindow,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}
