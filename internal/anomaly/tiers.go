package anomaly

import "strings"

const (
	TierScrutinized = "scrutinized"
	TierStandard    = "standard"
)

// TierConfig is the drop threshold applied to sources in one tier.
// DropPercent is negative; a percent change below it is flagged.
type TierConfig struct {
	DropPercent float64
}

// Thresholds holds every tunable the detector applies.
type Thresholds struct {
	Tiers       map[string]TierConfig
	DefaultTier string
	// SpikePercent and SpikeMinimumDelta must both be exceeded to flag a spike.
	SpikePercent      float64
	SpikeMinimumDelta float64
}

// DefaultThresholds returns the built-in tiers and spike rule.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Tiers: map[string]TierConfig{
			TierScrutinized: {DropPercent: -30},
			TierStandard:    {DropPercent: -50},
		},
		DefaultTier:       TierStandard,
		SpikePercent:      100,
		SpikeMinimumDelta: 10,
	}
}

func (t Thresholds) normalized() Thresholds {
	defaults := DefaultThresholds()
	tiers := make(map[string]TierConfig, len(defaults.Tiers)+len(t.Tiers))
	for name, cfg := range defaults.Tiers {
		tiers[name] = cfg
	}
	for name, cfg := range t.Tiers {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || cfg.DropPercent >= 0 {
			continue
		}
		tiers[name] = cfg
	}
	t.Tiers = tiers
	t.DefaultTier = strings.ToLower(strings.TrimSpace(t.DefaultTier))
	if _, ok := tiers[t.DefaultTier]; !ok {
		t.DefaultTier = defaults.DefaultTier
	}
	if t.SpikePercent <= 0 {
		t.SpikePercent = defaults.SpikePercent
	}
	if t.SpikeMinimumDelta < 0 {
		t.SpikeMinimumDelta = 0
	}
	return t
}

// resolveTier maps a tier name to its configuration, falling back to the
// default tier for unknown names.
func (t Thresholds) resolveTier(name string) (string, TierConfig) {
	name = strings.ToLower(strings.TrimSpace(name))
	if cfg, ok := t.Tiers[name]; ok {
		return name, cfg
	}
	return t.DefaultTier, t.Tiers[t.DefaultTier]
}
