package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jamesbarge/postboxd-sub001/internal/anomaly"
	"github.com/jamesbarge/postboxd-sub001/internal/database"
)

// RecordScrapeRun appends one scraper run. The run is filed under the UTC
// calendar day of at; later runs on the same day replace earlier ones when
// daily counts are read back.
func (s *Store) RecordScrapeRun(ctx context.Context, sourceID string, count int, at time.Time) (string, error) {
	sourceID = strings.TrimSpace(sourceID)
	if sourceID == "" {
		return "", fmt.Errorf("%w: source id is required", ErrInvalidInput)
	}
	if count < 0 {
		return "", fmt.Errorf("%w: listing count must not be negative", ErrInvalidInput)
	}
	if at.IsZero() {
		at = s.now()
	}
	id := uuid.NewString()
	err := database.RetryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO scrape_runs (id, source_id, run_date, listing_count, recorded_at)
			 VALUES (?, ?, ?, ?, ?)`,
			id, sourceID, at.UTC().Format(database.DateLayout), count, database.FormatTime(at))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("record scrape run: %w", err)
	}
	return id, nil
}

// DailyCounts implements anomaly.HistorySource. Each day reports the count of
// its latest run.
func (s *Store) DailyCounts(ctx context.Context, sourceID string, windowDays int) ([]anomaly.DailyCount, error) {
	if windowDays <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_date, listing_count, MAX(recorded_at)
		 FROM scrape_runs
		 WHERE source_id = ?
		 GROUP BY run_date
		 ORDER BY run_date DESC
		 LIMIT ?`, strings.TrimSpace(sourceID), windowDays)
	if err != nil {
		return nil, fmt.Errorf("daily counts: %w", err)
	}
	defer rows.Close()

	var out []anomaly.DailyCount
	for rows.Next() {
		var (
			day, recorded string
			count         int
		)
		if err := rows.Scan(&day, &count, &recorded); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		date, err := time.Parse(database.DateLayout, day)
		if err != nil {
			return nil, fmt.Errorf("parse run date %q: %w", day, err)
		}
		out = append(out, anomaly.DailyCount{Date: date, Count: count})
	}
	return out, rows.Err()
}

// SaveBaseline replaces the stored baseline for the baseline's source.
func (s *Store) SaveBaseline(ctx context.Context, b anomaly.Baseline) error {
	if strings.TrimSpace(b.SourceID) == "" {
		return fmt.Errorf("%w: baseline source id is required", ErrInvalidInput)
	}
	if b.ComputedAt.IsZero() {
		b.ComputedAt = s.now()
	}
	return database.RetryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO source_baselines (source_id, window_days, average, minimum_count_guard, tier, computed_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(source_id) DO UPDATE SET
			   window_days = excluded.window_days,
			   average = excluded.average,
			   minimum_count_guard = excluded.minimum_count_guard,
			   tier = excluded.tier,
			   computed_at = excluded.computed_at`,
			b.SourceID, b.WindowDays, b.Average, b.MinimumCountGuard, b.Tier, database.FormatTime(b.ComputedAt))
		if err != nil {
			return fmt.Errorf("save baseline: %w", err)
		}
		return nil
	})
}

// LatestBaseline returns the stored baseline for sourceID, or nil when none
// has been computed yet.
func (s *Store) LatestBaseline(ctx context.Context, sourceID string) (*anomaly.Baseline, error) {
	var (
		b        anomaly.Baseline
		computed string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT source_id, window_days, average, minimum_count_guard, tier, computed_at
		 FROM source_baselines WHERE source_id = ?`, strings.TrimSpace(sourceID)).
		Scan(&b.SourceID, &b.WindowDays, &b.Average, &b.MinimumCountGuard, &b.Tier, &computed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load baseline: %w", err)
	}
	b.ComputedAt, _ = database.ParseTime(computed)
	return &b, nil
}
