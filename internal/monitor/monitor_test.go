package monitor_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/jamesbarge/postboxd-sub001/internal/anomaly"
	"github.com/jamesbarge/postboxd-sub001/internal/catalog"
	"github.com/jamesbarge/postboxd-sub001/internal/config"
	"github.com/jamesbarge/postboxd-sub001/internal/logging"
	"github.com/jamesbarge/postboxd-sub001/internal/monitor"
	"github.com/jamesbarge/postboxd-sub001/internal/notifications"
	"github.com/jamesbarge/postboxd-sub001/internal/testsupport"
)

// recordDays records one run per day so that the last count lands today.
func recordDays(t *testing.T, store *catalog.Store, source string, counts ...int) {
	t.Helper()
	start := time.Now().UTC().AddDate(0, 0, -(len(counts) - 1))
	for i, count := range counts {
		if _, err := store.RecordScrapeRun(context.Background(), source, count, start.AddDate(0, 0, i)); err != nil {
			t.Fatalf("RecordScrapeRun: %v", err)
		}
	}
}

func newAlertServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestCheckOnceEvaluatesConfiguredSources(t *testing.T) {
	server, alerts := newAlertServer(t)
	cfg := testsupport.NewConfig(t,
		testsupport.WithSourceTier("genesis", "scrutinized"),
		testsupport.WithSourceTier("bfi", "standard"),
		testsupport.WithSourceTier("rio", "standard"),
		testsupport.WithNtfyTopic(server.URL),
	)
	films, _ := testsupport.MustOpenStores(t, cfg)
	recordDays(t, films, "genesis", 40, 40, 40, 20) // -50%: error under scrutinized
	recordDays(t, films, "bfi", 40, 40, 40, 38)
	// rio has no runs yet.

	mon, err := monitor.New(cfg, films, notifications.NewService(cfg), logging.NewNop())
	if err != nil {
		t.Fatalf("monitor.New: %v", err)
	}
	report, err := mon.CheckOnce(context.Background())
	if err != nil {
		t.Fatalf("CheckOnce: %v", err)
	}

	if len(report.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(report.Results))
	}
	bySource := map[string]anomaly.SourceResult{}
	for _, r := range report.Results {
		bySource[r.Report.SourceID] = r
	}
	if got := bySource["genesis"].Report.Severity; got != anomaly.SeverityError {
		t.Fatalf("genesis severity = %s, want error", got)
	}
	if got := bySource["bfi"].Report.Severity; got != anomaly.SeverityHealthy {
		t.Fatalf("bfi severity = %s, want healthy", got)
	}
	if rio := bySource["rio"]; rio.Report.Severity != anomaly.SeverityWarning || !errors.Is(rio.Err, anomaly.ErrNoHistory) {
		t.Fatalf("rio result = %+v, want no-history warning", rio)
	}
	if report.Severity != anomaly.SeverityError {
		t.Fatalf("combined severity = %s", report.Severity)
	}
	if got := alerts.Load(); got != 2 {
		t.Fatalf("alerts sent = %d, want 2 (genesis, rio)", got)
	}

	saved, err := films.LatestBaseline(context.Background(), "genesis")
	if err != nil || saved == nil {
		t.Fatalf("LatestBaseline = %+v, %v", saved, err)
	}
	if saved.Average != 40 || saved.Tier != "scrutinized" {
		t.Fatalf("saved baseline = %+v", saved)
	}
	if none, _ := films.LatestBaseline(context.Background(), "rio"); none != nil {
		t.Fatalf("baseline saved for source without history: %+v", none)
	}
}

func TestDetectorFromConfigUsesConfiguredTiers(t *testing.T) {
	cfg := config.Default()
	cfg.Anomaly.Tiers["Strict"] = config.Tier{DropPercent: -10}
	detector := monitor.DetectorFromConfig(&cfg)

	baseline := anomaly.Baseline{SourceID: "x", Average: 100, MinimumCountGuard: 3}
	if got := detector.Evaluate(85, baseline, "strict").Severity; got != anomaly.SeverityError {
		t.Fatalf("strict tier severity = %s, want error", got)
	}
	if got := detector.Evaluate(85, baseline, "standard").Severity; got != anomaly.SeverityHealthy {
		t.Fatalf("standard tier severity = %s, want healthy", got)
	}
}

func TestRunRefusesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	films, _ := testsupport.MustOpenStores(t, cfg)

	other := flock.New(cfg.Monitor.LockPath)
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("TryLock = %v, %v", locked, err)
	}
	t.Cleanup(func() { _ = other.Unlock() })

	mon, err := monitor.New(cfg, films, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("monitor.New: %v", err)
	}
	if err := mon.Run(context.Background()); !errors.Is(err, monitor.ErrAlreadyRunning) {
		t.Fatalf("Run err = %v, want ErrAlreadyRunning", err)
	}
}

func TestRunChecksUntilCancelled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithSourceTier("bfi", "standard"))
	cfg.Monitor.IntervalSeconds = 3600
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	films, _ := testsupport.MustOpenStores(t, cfg)
	recordDays(t, films, "bfi", 10, 12, 11)

	mon, err := monitor.New(cfg, films, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("monitor.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mon.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		b, err := films.LatestBaseline(context.Background(), "bfi")
		if err != nil {
			t.Fatalf("LatestBaseline: %v", err)
		}
		if b != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first health check never saved a baseline")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
	if mon.Running() {
		t.Fatal("monitor still reports running")
	}
}
