package anomaly

import (
	"fmt"
	"math"
)

const (
	reasonZeroObserved = "zero observed"
	reasonSpike        = "possible duplicate ingestion"
	reasonNoRecentRun  = "no run recorded since"
)

// Detector classifies observed counts against baselines. It holds no state
// beyond its thresholds and is safe for concurrent use.
type Detector struct {
	thresholds Thresholds
}

// NewDetector normalizes thresholds and returns a detector.
func NewDetector(thresholds Thresholds) *Detector {
	return &Detector{thresholds: thresholds.normalized()}
}

// Thresholds returns the normalized thresholds in effect.
func (d *Detector) Thresholds() Thresholds {
	return d.thresholds
}

// Evaluate compares observed against baseline using the drop threshold of
// tier. Rules fire independently; severity is the worst fired rule and
// reasons list each fired rule in order.
func (d *Detector) Evaluate(observed int, baseline Baseline, tier string) Report {
	if observed < 0 {
		observed = 0
	}
	average := baseline.Average
	if average < 0 || math.IsNaN(average) || math.IsInf(average, 0) {
		average = 0
	}
	tierName, tierCfg := d.thresholds.resolveTier(tier)

	report := Report{
		SourceID:        baseline.SourceID,
		Tier:            tierName,
		ObservedCount:   observed,
		BaselineAverage: average,
		PercentChange:   PercentChange(observed, average),
		Severity:        SeverityHealthy,
	}
	fire := func(severity Severity, reason string) {
		report.Severity = report.Severity.Max(severity)
		report.Reasons = append(report.Reasons, reason)
	}

	if observed == 0 && average > 0 {
		fire(SeverityError, reasonZeroObserved)
	}
	if average >= baseline.MinimumCountGuard && report.PercentChange < tierCfg.DropPercent {
		fire(SeverityError, fmt.Sprintf("drop of %.1f%% exceeds %s threshold of %.0f%%",
			-report.PercentChange, tierName, -tierCfg.DropPercent))
	}
	if report.PercentChange > d.thresholds.SpikePercent &&
		float64(observed) > average+d.thresholds.SpikeMinimumDelta {
		fire(SeverityWarning, reasonSpike)
	}
	return report
}

// PercentChange returns (observed-average)/average*100. A zero average yields
// +100 when anything was observed and 0 otherwise, so the result is always finite.
func PercentChange(observed int, average float64) float64 {
	if average <= 0 || math.IsNaN(average) || math.IsInf(average, 0) {
		if observed > 0 {
			return 100
		}
		return 0
	}
	change := (float64(observed) - average) * 100 / average
	if math.IsInf(change, 1) {
		return math.MaxFloat64
	}
	return change
}
