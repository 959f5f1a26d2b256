package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMatching()
	c.normalizeBatch()
	c.normalizeAnomaly()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if value, ok := os.LookupEnv("POSTBOXD_DB_PATH"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DatabasePath = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		c.Paths.DatabasePath = filepath.Join(c.Paths.StateDir, defaultDatabaseName)
	}
	if c.Paths.DatabasePath, err = expandPath(c.Paths.DatabasePath); err != nil {
		return fmt.Errorf("paths.database_path: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Monitor.LockPath) == "" {
		c.Monitor.LockPath = filepath.Join(c.Paths.StateDir, defaultLockName)
	}
	if c.Monitor.LockPath, err = expandPath(c.Monitor.LockPath); err != nil {
		return fmt.Errorf("monitor.lock_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeMatching() {
	if c.Matching.AutoApplyThreshold == 0 {
		c.Matching.AutoApplyThreshold = defaultAutoApplyThreshold
	}
	if c.Matching.ReviewFloor == 0 {
		c.Matching.ReviewFloor = defaultReviewFloor
	}
}

func (c *Config) normalizeBatch() {
	if c.Batch.Workers <= 0 {
		c.Batch.Workers = defaultBatchWorkers
	}
	if c.Batch.MinDelayMillis < 0 {
		c.Batch.MinDelayMillis = 0
	}
}

func (c *Config) normalizeAnomaly() {
	if c.Anomaly.WindowDays <= 0 {
		c.Anomaly.WindowDays = defaultWindowDays
	}
	if c.Anomaly.MinimumCountGuard < 0 {
		c.Anomaly.MinimumCountGuard = 0
	}
	if c.Anomaly.MaxRunAgeDays <= 0 {
		c.Anomaly.MaxRunAgeDays = defaultMaxRunAgeDays
	}
	if c.Anomaly.SpikePercent <= 0 {
		c.Anomaly.SpikePercent = defaultSpikePercent
	}
	if c.Anomaly.SpikeMinimumDelta < 0 {
		c.Anomaly.SpikeMinimumDelta = 0
	}

	tiers := DefaultTiers()
	for name, tier := range c.Anomaly.Tiers {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		tiers[name] = tier
	}
	c.Anomaly.Tiers = tiers

	c.Anomaly.DefaultTier = strings.ToLower(strings.TrimSpace(c.Anomaly.DefaultTier))
	if c.Anomaly.DefaultTier == "" {
		c.Anomaly.DefaultTier = defaultTier
	}

	sources := make(map[string]string, len(c.Anomaly.Sources))
	for id, tier := range c.Anomaly.Sources {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		tier = strings.ToLower(strings.TrimSpace(tier))
		if tier == "" {
			tier = c.Anomaly.DefaultTier
		}
		sources[id] = tier
	}
	c.Anomaly.Sources = sources

	if c.Monitor.IntervalSeconds <= 0 {
		c.Monitor.IntervalSeconds = defaultMonitorInterval
	}
}

func (c *Config) normalizeNotifications() {
	if value, ok := os.LookupEnv("POSTBOXD_NTFY_TOPIC"); ok && strings.TrimSpace(value) != "" {
		c.Notifications.NtfyTopic = value
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "console", "json", "auto":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = defaultLogMaxSizeMB
	}
	if c.Logging.MaxBackups < 0 {
		c.Logging.MaxBackups = 0
	}
	if c.Logging.MaxAgeDays < 0 {
		c.Logging.MaxAgeDays = 0
	}
}
