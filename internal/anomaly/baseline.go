package anomaly

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoHistory reports a source with no recorded runs.
var ErrNoHistory = errors.New("no recorded runs")

// BaselineOptions controls how a baseline is recomputed.
type BaselineOptions struct {
	WindowDays        int
	MinimumCountGuard float64
	Tier              string
	// MaxRunAgeDays is how many days the newest run may trail the evaluation
	// day before the source counts as having observed nothing.
	MaxRunAgeDays int
	Now           func() time.Time
}

func (o BaselineOptions) normalized() BaselineOptions {
	if o.WindowDays <= 0 {
		o.WindowDays = 7
	}
	if o.MinimumCountGuard < 0 {
		o.MinimumCountGuard = 0
	}
	if o.MaxRunAgeDays <= 0 {
		o.MaxRunAgeDays = 1
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// evaluationDay is the UTC calendar day of now.
func (o BaselineOptions) evaluationDay() time.Time {
	return startOfDay(o.Now())
}

// stale reports whether latest trails the evaluation day by more than
// MaxRunAgeDays.
func (o BaselineOptions) stale(latest DailyCount) bool {
	cutoff := o.evaluationDay().AddDate(0, 0, -o.MaxRunAgeDays)
	return startOfDay(latest.Date).Before(cutoff)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// RecomputeBaseline averages the trailing window of daily counts for
// sourceID. The most recent recorded day is the one under evaluation and is
// excluded from the average.
func RecomputeBaseline(ctx context.Context, history HistorySource, sourceID string, opts BaselineOptions) (Baseline, error) {
	return recomputeBaseline(ctx, history, sourceID, opts, true)
}

// recomputeBaseline averages the trailing window. With excludeLatest unset the
// newest recorded day is part of the window, which is the case when nothing
// was recorded for the evaluation day.
func recomputeBaseline(ctx context.Context, history HistorySource, sourceID string, opts BaselineOptions, excludeLatest bool) (Baseline, error) {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return Baseline{}, errors.New("recompute baseline: source id is required")
	}
	opts = opts.normalized()
	days := opts.WindowDays
	if excludeLatest {
		days++
	}
	counts, err := history.DailyCounts(ctx, sourceID, days)
	if err != nil {
		return Baseline{}, fmt.Errorf("recompute baseline for %s: %w", sourceID, err)
	}
	if excludeLatest && len(counts) > 0 {
		counts = counts[1:]
	}
	return Baseline{
		SourceID:          sourceID,
		WindowDays:        opts.WindowDays,
		Average:           Average(counts),
		MinimumCountGuard: opts.MinimumCountGuard,
		Tier:              opts.Tier,
		ComputedAt:        opts.Now().UTC(),
	}, nil
}

// LatestCount returns the most recent recorded day for sourceID.
func LatestCount(ctx context.Context, history HistorySource, sourceID string) (DailyCount, error) {
	counts, err := history.DailyCounts(ctx, sourceID, 1)
	if err != nil {
		return DailyCount{}, fmt.Errorf("latest count for %s: %w", sourceID, err)
	}
	if len(counts) == 0 {
		return DailyCount{}, fmt.Errorf("latest count for %s: %w", sourceID, ErrNoHistory)
	}
	return counts[0], nil
}

// Average is the mean of the counts; negative counts contribute zero.
func Average(counts []DailyCount) float64 {
	if len(counts) == 0 {
		return 0
	}
	var total float64
	for _, c := range counts {
		if c.Count > 0 {
			total += float64(c.Count)
		}
	}
	return total / float64(len(counts))
}
