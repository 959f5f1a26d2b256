package main

import (
	"strings"
	"testing"
	"time"

	"github.com/jamesbarge/postboxd-sub001/internal/testsupport"
)

func recordRuns(t *testing.T, env *cliTestEnv, source string, days []string, counts []string) {
	t.Helper()
	for i, day := range days {
		if _, stderr, err := runCLI(t, env.configPath, "runs", "record", source, counts[i], "--at", day); err != nil {
			t.Fatalf("runs record %s %s: %v\n%s", source, day, err, stderr)
		}
	}
}

// recentDays returns n consecutive dates ending today, oldest first.
func recentDays(n int) []string {
	today := time.Now().UTC()
	days := make([]string, n)
	for i := range days {
		days[i] = today.AddDate(0, 0, i-(n-1)).Format(time.DateOnly)
	}
	return days
}

func TestHealthReportsDropsPerTier(t *testing.T) {
	env := setupCLITestEnv(t,
		testsupport.WithSourceTier("bfi", "standard"),
		testsupport.WithSourceTier("curzon", "scrutinized"),
	)
	days := recentDays(4)
	recordRuns(t, env, "bfi", days, []string{"100", "100", "100", "10"})
	recordRuns(t, env, "curzon", days, []string{"50", "50", "50", "48"})

	out, _, err := runCLI(t, env.configPath, "health", "--json", "--strict")
	if err == nil {
		t.Fatal("expected --strict to fail while bfi is unhealthy")
	}
	var view healthView
	decodeJSON(t, out, &view)
	if view.Severity != "error" || view.Errors != 1 {
		t.Fatalf("unexpected overall health: %+v", view)
	}
	bySource := map[string]sourceHealthView{}
	for _, s := range view.Sources {
		bySource[s.SourceID] = s
	}
	bfi := bySource["bfi"]
	if bfi.Severity != "error" || bfi.Observed != 10 || bfi.Baseline != 100 {
		t.Fatalf("unexpected bfi report: %+v", bfi)
	}
	if bfi.PercentChange != -90 {
		t.Fatalf("bfi percent change = %v, want -90", bfi.PercentChange)
	}
	if curzon := bySource["curzon"]; curzon.Severity != "healthy" || curzon.Tier != "scrutinized" {
		t.Fatalf("unexpected curzon report: %+v", curzon)
	}

	var runs struct {
		SourceID string `json:"source_id"`
		Days     []struct {
			Date  string `json:"date"`
			Count int    `json:"count"`
		} `json:"days"`
		Baseline *struct {
			Average float64 `json:"Average"`
		} `json:"baseline"`
	}
	runJSON(t, env, &runs, "runs", "list", "bfi")
	if len(runs.Days) != 4 || runs.Days[0].Date != days[3] || runs.Days[0].Count != 10 {
		t.Fatalf("unexpected run history: %+v", runs.Days)
	}
	if runs.Baseline == nil || runs.Baseline.Average != 100 {
		t.Fatalf("expected stored baseline of 100, got %+v", runs.Baseline)
	}
}

func TestHealthFlagsSourceThatStoppedRecording(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithSourceTier("genesis", "standard"))
	lastRun := time.Now().UTC().AddDate(0, 0, -10)
	var days []string
	for i := 3; i >= 0; i-- {
		days = append(days, lastRun.AddDate(0, 0, -i).Format(time.DateOnly))
	}
	recordRuns(t, env, "genesis", days, []string{"20", "20", "20", "20"})

	var view healthView
	runJSON(t, env, &view, "health")
	if len(view.Sources) != 1 {
		t.Fatalf("unexpected sources: %+v", view.Sources)
	}
	genesis := view.Sources[0]
	if genesis.Severity != "error" || genesis.Observed != 0 || genesis.Baseline != 20 {
		t.Fatalf("unexpected genesis report: %+v", genesis)
	}
	if len(genesis.Reasons) == 0 || genesis.Reasons[0] != "no run recorded since "+days[3] {
		t.Fatalf("reasons = %v, want the last run day first", genesis.Reasons)
	}
}

func TestHealthTableWithoutSources(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	requireContains(t, out, "No monitored sources configured")
}

func TestRunsRecordValidatesCount(t *testing.T) {
	env := setupCLITestEnv(t)

	for _, count := range []string{"-1", "many"} {
		if _, _, err := runCLI(t, env.configPath, "runs", "record", "bfi", count); err == nil {
			t.Fatalf("expected count %q to be rejected", count)
		}
	}
	if _, _, err := runCLI(t, env.configPath, "runs", "record", "bfi", "5", "--at", "yesterday"); err == nil ||
		!strings.Contains(err.Error(), "invalid --at") {
		t.Fatalf("expected invalid --at error, got %v", err)
	}
}
