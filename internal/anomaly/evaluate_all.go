package anomaly

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultParallelism = 4

// SourceCheck names one source to evaluate and its tier.
type SourceCheck struct {
	SourceID string
	Tier     string
}

// SourceResult is the evaluation of one source. Err is set when its history
// could not be read; Report then carries an error severity.
type SourceResult struct {
	Report   Report
	Baseline Baseline
	Observed DailyCount
	Err      error
}

// CombinedReport aggregates every evaluated source, in check order.
type CombinedReport struct {
	Results     []SourceResult
	Severity    Severity
	Counts      map[Severity]int
	EvaluatedAt time.Time
}

// Unhealthy returns the results whose severity is not healthy.
func (c CombinedReport) Unhealthy() []SourceResult {
	var out []SourceResult
	for _, r := range c.Results {
		if r.Report.Severity != SeverityHealthy {
			out = append(out, r)
		}
	}
	return out
}

// EvaluateAll recomputes each source's baseline and evaluates its latest
// recorded day, or a zero count when that day is older than
// opts.MaxRunAgeDays, running up to parallelism sources at once. The combined
// report is assembled only after every source has returned. A failing source
// is reported in place and does not stop the others.
func (d *Detector) EvaluateAll(ctx context.Context, history HistorySource, checks []SourceCheck, opts BaselineOptions, parallelism int) (CombinedReport, error) {
	opts = opts.normalized()
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	results := make([]SourceResult, len(checks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, check := range checks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = d.evaluateSource(gctx, history, check, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CombinedReport{}, err
	}

	combined := CombinedReport{
		Results:     results,
		Severity:    SeverityHealthy,
		Counts:      make(map[Severity]int, 3),
		EvaluatedAt: opts.Now().UTC(),
	}
	for _, r := range results {
		combined.Severity = combined.Severity.Max(r.Report.Severity)
		combined.Counts[r.Report.Severity]++
	}
	return combined, nil
}

func (d *Detector) evaluateSource(ctx context.Context, history HistorySource, check SourceCheck, opts BaselineOptions) SourceResult {
	tierName, _ := d.thresholds.resolveTier(check.Tier)
	opts.Tier = tierName

	failed := func(reason string, err error) SourceResult {
		return SourceResult{
			Report: Report{
				SourceID: check.SourceID,
				Tier:     tierName,
				Severity: SeverityError,
				Reasons:  []string{reason},
			},
			Err: err,
		}
	}

	latest, err := LatestCount(ctx, history, check.SourceID)
	if err != nil {
		if errors.Is(err, ErrNoHistory) {
			result := failed("no runs recorded", err)
			result.Report.Severity = SeverityWarning
			return result
		}
		return failed("history unavailable", err)
	}
	if opts.stale(latest) {
		return d.evaluateStale(ctx, history, check.SourceID, tierName, latest, opts)
	}
	baseline, err := RecomputeBaseline(ctx, history, check.SourceID, opts)
	if err != nil {
		return failed("history unavailable", err)
	}
	return SourceResult{
		Report:   d.Evaluate(latest.Count, baseline, tierName),
		Baseline: baseline,
		Observed: latest,
	}
}

// evaluateStale scores a source whose newest run is too old. The evaluation
// day observed nothing, and the recorded days all belong to the baseline.
func (d *Detector) evaluateStale(ctx context.Context, history HistorySource, sourceID, tier string, latest DailyCount, opts BaselineOptions) SourceResult {
	observed := DailyCount{Date: opts.evaluationDay(), Count: 0}
	reason := fmt.Sprintf("%s %s", reasonNoRecentRun, latest.Date.UTC().Format(time.DateOnly))

	baseline, err := recomputeBaseline(ctx, history, sourceID, opts, false)
	if err != nil {
		return SourceResult{
			Report: Report{
				SourceID: sourceID,
				Tier:     tier,
				Severity: SeverityError,
				Reasons:  []string{"history unavailable"},
			},
			Observed: observed,
			Err:      err,
		}
	}
	report := d.Evaluate(observed.Count, baseline, tier)
	report.Severity = report.Severity.Max(SeverityError)
	report.Reasons = append([]string{reason}, report.Reasons...)
	return SourceResult{
		Report:   report,
		Baseline: baseline,
		Observed: observed,
	}
}
