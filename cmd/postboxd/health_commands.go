package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesbarge/postboxd-sub001/internal/anomaly"
	"github.com/jamesbarge/postboxd-sub001/internal/monitor"
	"github.com/jamesbarge/postboxd-sub001/internal/notifications"
)

type sourceHealthView struct {
	SourceID      string   `json:"source_id"`
	Tier          string   `json:"tier"`
	Observed      int      `json:"observed"`
	Baseline      float64  `json:"baseline"`
	PercentChange float64  `json:"percent_change"`
	Severity      string   `json:"severity"`
	Reasons       []string `json:"reasons,omitempty"`
	Error         string   `json:"error,omitempty"`
}

type healthView struct {
	Severity    string             `json:"severity"`
	Warnings    int                `json:"warnings"`
	Errors      int                `json:"errors"`
	EvaluatedAt string             `json:"evaluated_at"`
	Sources     []sourceHealthView `json:"sources"`
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var notify, strict bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Evaluate every monitored source against its baseline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			films, _, err := ctx.stores(cmd.Context())
			if err != nil {
				return err
			}
			var notifier notifications.Service
			if notify {
				notifier = ctx.notifier()
			}
			m, err := monitor.New(cfg, films, notifier, ctx.loggerFor(cmd))
			if err != nil {
				return err
			}
			report, err := m.CheckOnce(cmd.Context())
			if err != nil {
				return err
			}

			view := toHealthView(report)
			if ctx.JSONMode() {
				if err := writeJSON(cmd, view); err != nil {
					return err
				}
			} else {
				renderHealth(cmd, view)
			}
			if strict && report.Severity != anomaly.SeverityHealthy {
				return fmt.Errorf("source health is %s", report.Severity)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&notify, "notify", false, "Send ntfy alerts for unhealthy sources")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero unless every source is healthy")
	return cmd
}

func toHealthView(report anomaly.CombinedReport) healthView {
	view := healthView{
		Severity:    string(report.Severity),
		Warnings:    report.Counts[anomaly.SeverityWarning],
		Errors:      report.Counts[anomaly.SeverityError],
		EvaluatedAt: report.EvaluatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Sources:     make([]sourceHealthView, 0, len(report.Results)),
	}
	for _, result := range report.Results {
		rep := result.Report
		view.Sources = append(view.Sources, sourceHealthView{
			SourceID:      rep.SourceID,
			Tier:          rep.Tier,
			Observed:      rep.ObservedCount,
			Baseline:      rep.BaselineAverage,
			PercentChange: rep.PercentChange,
			Severity:      string(rep.Severity),
			Reasons:       rep.Reasons,
			Error:         errorText(result.Err),
		})
	}
	return view
}

func renderHealth(cmd *cobra.Command, view healthView) {
	out := cmd.OutOrStdout()
	if len(view.Sources) == 0 {
		fmt.Fprintln(out, "No monitored sources configured (see [anomaly.sources])")
		return
	}
	rows := make([][]string, 0, len(view.Sources))
	for _, s := range view.Sources {
		rows = append(rows, []string{
			s.SourceID,
			s.Tier,
			strconv.Itoa(s.Observed),
			fmt.Sprintf("%.1f", s.Baseline),
			fmt.Sprintf("%+.1f%%", s.PercentChange),
			s.Severity,
			dash(strings.Join(s.Reasons, "; ")),
		})
	}
	renderTable(out,
		[]string{"Source", "Tier", "Observed", "Baseline", "Change", "Severity", "Reasons"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft})
	fmt.Fprintf(out, "Overall: %s (%d warnings, %d errors)\n", view.Severity, view.Warnings, view.Errors)
}

func newMonitorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Run scheduled source health checks until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			films, _, err := ctx.stores(cmd.Context())
			if err != nil {
				return err
			}
			m, err := monitor.New(cfg, films, ctx.notifier(), ctx.loggerFor(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Monitoring %d source(s) every %ds (Ctrl+C to stop)\n",
				len(cfg.MonitoredSources()), cfg.Monitor.IntervalSeconds)
			if err := m.Run(cmd.Context()); err != nil {
				if errors.Is(err, monitor.ErrAlreadyRunning) {
					return fmt.Errorf("%w (lock %s)", err, cfg.Monitor.LockPath)
				}
				return err
			}
			return nil
		},
	}
}
