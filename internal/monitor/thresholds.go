package monitor

import (
	"strings"

	"github.com/jamesbarge/postboxd-sub001/internal/anomaly"
	"github.com/jamesbarge/postboxd-sub001/internal/config"
)

// DetectorFromConfig builds an anomaly detector from the [anomaly] section.
func DetectorFromConfig(cfg *config.Config) *anomaly.Detector {
	tiers := make(map[string]anomaly.TierConfig, len(cfg.Anomaly.Tiers))
	for name, tier := range cfg.Anomaly.Tiers {
		tiers[strings.ToLower(strings.TrimSpace(name))] = anomaly.TierConfig{DropPercent: tier.DropPercent}
	}
	return anomaly.NewDetector(anomaly.Thresholds{
		Tiers:             tiers,
		DefaultTier:       cfg.Anomaly.DefaultTier,
		SpikePercent:      cfg.Anomaly.SpikePercent,
		SpikeMinimumDelta: cfg.Anomaly.SpikeMinimumDelta,
	})
}

// ChecksFromConfig lists every monitored source with its tier.
func ChecksFromConfig(cfg *config.Config) []anomaly.SourceCheck {
	sources := cfg.MonitoredSources()
	checks := make([]anomaly.SourceCheck, 0, len(sources))
	for _, id := range sources {
		checks = append(checks, anomaly.SourceCheck{SourceID: id, Tier: cfg.TierFor(id)})
	}
	return checks
}

// BaselineOptionsFromConfig returns the baseline window settings.
func BaselineOptionsFromConfig(cfg *config.Config) anomaly.BaselineOptions {
	return anomaly.BaselineOptions{
		WindowDays:        cfg.Anomaly.WindowDays,
		MinimumCountGuard: cfg.Anomaly.MinimumCountGuard,
		MaxRunAgeDays:     cfg.Anomaly.MaxRunAgeDays,
	}
}
