package config

import (
	"errors"
	"fmt"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateAnomaly(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"batch.workers":                 c.Batch.Workers,
		"monitor.interval_seconds":      c.Monitor.IntervalSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Notifications.DedupWindowSeconds < 0 {
		return errors.New("notifications.dedup_window_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateMatching() error {
	m := c.Matching
	if m.AutoApplyThreshold <= 0 || m.AutoApplyThreshold > 1 {
		return errors.New("matching.auto_apply_threshold must be in (0, 1]")
	}
	if m.ReviewFloor < 0 || m.ReviewFloor >= m.AutoApplyThreshold {
		return errors.New("matching.review_floor must be >= 0 and below matching.auto_apply_threshold")
	}
	return nil
}

func (c *Config) validateAnomaly() error {
	names := make([]string, 0, len(c.Anomaly.Tiers))
	for name := range c.Anomaly.Tiers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		drop := c.Anomaly.Tiers[name].DropPercent
		if drop >= 0 || drop < -100 {
			return fmt.Errorf("anomaly.tiers.%s.drop_percent must be in [-100, 0)", name)
		}
	}
	if _, ok := c.Anomaly.Tiers[c.Anomaly.DefaultTier]; !ok {
		return fmt.Errorf("anomaly.default_tier %q is not a configured tier", c.Anomaly.DefaultTier)
	}
	for _, id := range c.MonitoredSources() {
		tier := c.Anomaly.Sources[id]
		if _, ok := c.Anomaly.Tiers[tier]; !ok {
			return fmt.Errorf("anomaly.sources.%s: unknown tier %q", id, tier)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
