package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"github.com/jamesbarge/postboxd-sub001/internal/anomaly"
	"github.com/jamesbarge/postboxd-sub001/internal/config"
	"github.com/jamesbarge/postboxd-sub001/internal/logging"
	"github.com/jamesbarge/postboxd-sub001/internal/notifications"
)

// ErrAlreadyRunning reports that another monitor holds the lock.
var ErrAlreadyRunning = errors.New("another postboxd monitor instance is already running")

// Store supplies run history and keeps computed baselines. *catalog.Store
// satisfies it.
type Store interface {
	anomaly.HistorySource
	SaveBaseline(ctx context.Context, b anomaly.Baseline) error
}

// Monitor evaluates source health on a schedule.
type Monitor struct {
	cfg      *config.Config
	store    Store
	detector *anomaly.Detector
	notifier notifications.Service
	logger   *slog.Logger
	interval time.Duration

	lockPath string
	lock     *flock.Flock
	running  atomic.Bool
	now      func() time.Time
}

// New constructs a monitor. A nil notifier disables alerts.
func New(cfg *config.Config, store Store, notifier notifications.Service, logger *slog.Logger) (*Monitor, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("monitor requires config and store")
	}
	if notifier == nil {
		notifier = notifications.NewService(&config.Config{})
	}
	interval := time.Duration(cfg.Monitor.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}
	return &Monitor{
		cfg:      cfg,
		store:    store,
		detector: DetectorFromConfig(cfg),
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "monitor"),
		interval: interval,
		lockPath: cfg.Monitor.LockPath,
		lock:     flock.New(cfg.Monitor.LockPath),
		now:      time.Now,
	}, nil
}

// CheckOnce evaluates every configured source once, saves the recomputed
// baselines, and alerts on unhealthy sources.
func (m *Monitor) CheckOnce(ctx context.Context) (anomaly.CombinedReport, error) {
	checks := ChecksFromConfig(m.cfg)
	opts := BaselineOptionsFromConfig(m.cfg)
	opts.Now = m.now

	report, err := m.detector.EvaluateAll(ctx, m.store, checks, opts, m.cfg.Batch.Workers)
	if err != nil {
		return anomaly.CombinedReport{}, fmt.Errorf("evaluate sources: %w", err)
	}

	for _, result := range report.Results {
		m.record(ctx, result)
	}

	m.logger.Info("health check complete",
		logging.String(logging.FieldEventType, "health_check_completed"),
		logging.Int("sources", len(report.Results)),
		logging.String("severity", string(report.Severity)),
		logging.Int("warnings", report.Counts[anomaly.SeverityWarning]),
		logging.Int("errors", report.Counts[anomaly.SeverityError]))
	return report, nil
}

func (m *Monitor) record(ctx context.Context, result anomaly.SourceResult) {
	rep := result.Report
	logger := m.logger.With(logging.String(logging.FieldSourceID, rep.SourceID))

	if result.Err == nil {
		if err := m.store.SaveBaseline(ctx, result.Baseline); err != nil {
			logging.WarnWithContext(logger, "baseline not saved", "baseline_save_failed",
				logging.String(logging.FieldErrorHint, "check database permissions and disk space"),
				logging.String(logging.FieldImpact, "the previous baseline stays on record"),
				logging.Error(err))
		}
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "source_evaluated"),
		logging.String("tier", rep.Tier),
		logging.Int("observed", rep.ObservedCount),
		logging.Score("baseline", rep.BaselineAverage),
		logging.Score("percent_change", rep.PercentChange),
		logging.String("severity", string(rep.Severity)),
	}
	if len(rep.Reasons) > 0 {
		attrs = append(attrs, logging.String("reasons", strings.Join(rep.Reasons, "; ")))
	}
	if result.Err != nil {
		attrs = append(attrs, logging.Error(result.Err))
	}

	switch rep.Severity {
	case anomaly.SeverityError:
		logging.ErrorWithContext(logger, "source unhealthy", "source_unhealthy",
			append(attrs, logging.Alert("scraper_health"),
				logging.String(logging.FieldErrorHint, "inspect the scraper for this source"))...)
	case anomaly.SeverityWarning:
		logging.WarnWithContext(logger, "source needs attention", "source_warning",
			append(attrs, logging.String(logging.FieldErrorHint, "inspect the scraper for this source"),
				logging.String(logging.FieldImpact, "listings from this source may be incomplete or duplicated"))...)
	default:
		logger.Info("source healthy", logging.Args(attrs...)...)
		return
	}

	if err := m.notifier.Publish(ctx, notifications.EventAnomalyDetected, notifications.Payload{
		"source":        rep.SourceID,
		"severity":      string(rep.Severity),
		"observed":      rep.ObservedCount,
		"baseline":      fmt.Sprintf("%.1f", rep.BaselineAverage),
		"percentChange": fmt.Sprintf("%+.1f", rep.PercentChange),
		"reasons":       strings.Join(rep.Reasons, "; "),
	}); err != nil {
		logger.Warn("anomaly alert failed",
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.Error(err))
	}
}

// Run holds the monitor lock and checks health immediately and then every
// interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return errors.New("monitor already running")
	}
	defer m.running.Store(false)

	ok, err := m.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := m.lock.Unlock(); err != nil {
			m.logger.Warn("failed to release monitor lock",
				logging.String(logging.FieldEventType, "lock_release_failed"),
				logging.Error(err))
		}
	}()

	m.logger.Info("monitor started",
		logging.String(logging.FieldEventType, "monitor_started"),
		logging.String("lock", m.lockPath),
		logging.Duration("interval", m.interval))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		if _, err := m.CheckOnce(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			logging.ErrorWithContext(m.logger, "health check failed", "health_check_failed",
				logging.String(logging.FieldErrorHint, "the next scheduled check will retry"),
				logging.Error(err))
			if pubErr := m.notifier.Publish(ctx, notifications.EventError, notifications.Payload{"context": "health check", "error": err.Error()}); pubErr != nil {
				m.logger.Warn("error alert failed", logging.String(logging.FieldEventType, "notification_failed"), logging.Error(pubErr))
			}
		}
		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped", logging.String(logging.FieldEventType, "monitor_stopped"))
			return nil
		case <-ticker.C:
		}
	}
	m.logger.Info("monitor stopped", logging.String(logging.FieldEventType, "monitor_stopped"))
	return nil
}

// Running reports whether Run is active in this process.
func (m *Monitor) Running() bool {
	return m.running.Load()
}
