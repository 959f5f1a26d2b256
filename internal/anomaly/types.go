package anomaly

import (
	"context"
	"time"
)

// Severity orders health outcomes: healthy < warning < error.
type Severity string

const (
	SeverityHealthy Severity = "healthy"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

func (s Severity) rank() int {
	switch s {
	case SeverityError:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// Max returns the more severe of s and other.
func (s Severity) Max(other Severity) Severity {
	if other.rank() > s.rank() {
		return other
	}
	if s == "" {
		return SeverityHealthy
	}
	return s
}

// Baseline is the expected daily count for one source, recomputed out of
// band from a trailing window. Evaluation never mutates it.
type Baseline struct {
	SourceID          string
	WindowDays        int
	Average           float64
	MinimumCountGuard float64
	Tier              string
	ComputedAt        time.Time
}

// Report is the outcome of evaluating one observed count.
type Report struct {
	SourceID        string
	Tier            string
	ObservedCount   int
	BaselineAverage float64
	PercentChange   float64
	Severity        Severity
	Reasons         []string
}

// DailyCount is the number of listings a source produced on one day.
type DailyCount struct {
	Date  time.Time
	Count int
}

// HistorySource exposes recorded per-source daily counts.
type HistorySource interface {
	// DailyCounts returns up to windowDays of the most recent days that have
	// recorded runs, newest first.
	DailyCounts(ctx context.Context, sourceID string, windowDays int) ([]DailyCount, error)
}
