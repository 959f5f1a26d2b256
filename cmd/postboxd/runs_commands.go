package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesbarge/postboxd-sub001/internal/database"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Record and inspect per-source scrape counts",
	}

	runsCmd.AddCommand(newRunsRecordCommand(ctx))
	runsCmd.AddCommand(newRunsListCommand(ctx))

	return runsCmd
}

func newRunsRecordCommand(ctx *commandContext) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "record <source-id> <count>",
		Short: "Record the number of listings a scrape produced",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(strings.TrimSpace(args[1]))
			if err != nil || count < 0 {
				return fmt.Errorf("count must be a non-negative integer, got %q", args[1])
			}
			when := time.Now()
			if at = strings.TrimSpace(at); at != "" {
				when, err = parseRunTime(at)
				if err != nil {
					return err
				}
			}
			films, _, err := ctx.stores(cmd.Context())
			if err != nil {
				return err
			}
			id, err := films.RecordScrapeRun(cmd.Context(), args[0], count, when)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"id":        id,
					"source_id": args[0],
					"count":     count,
					"run_date":  when.UTC().Format(database.DateLayout),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d listings for %s on %s\n", count, args[0], when.UTC().Format(database.DateLayout))
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Run time (RFC 3339 or YYYY-MM-DD); defaults to now")
	return cmd
}

func parseRunTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(database.DateLayout, value); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --at %q: want RFC 3339 or YYYY-MM-DD", value)
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "list <source-id>",
		Short: "Show recent daily counts for a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if days <= 0 {
				days = cfg.Anomaly.WindowDays + 1
			}
			films, _, err := ctx.stores(cmd.Context())
			if err != nil {
				return err
			}
			counts, err := films.DailyCounts(cmd.Context(), args[0], days)
			if err != nil {
				return err
			}
			baseline, err := films.LatestBaseline(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				type dayView struct {
					Date  string `json:"date"`
					Count int    `json:"count"`
				}
				views := make([]dayView, 0, len(counts))
				for _, c := range counts {
					views = append(views, dayView{Date: c.Date.Format(database.DateLayout), Count: c.Count})
				}
				return writeJSON(cmd, map[string]any{"source_id": args[0], "days": views, "baseline": baseline})
			}

			out := cmd.OutOrStdout()
			if len(counts) == 0 {
				fmt.Fprintf(out, "No runs recorded for %s\n", args[0])
				return nil
			}
			rows := make([][]string, 0, len(counts))
			for _, c := range counts {
				rows = append(rows, []string{c.Date.Format(database.DateLayout), strconv.Itoa(c.Count)})
			}
			renderTable(out, []string{"Date", "Listings"}, rows, []columnAlignment{alignLeft, alignRight})
			if baseline != nil {
				fmt.Fprintf(out, "Stored baseline: %.1f over %d days (%s tier, computed %s)\n",
					baseline.Average, baseline.WindowDays, baseline.Tier, baseline.ComputedAt.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Number of recorded days to show (defaults to the baseline window plus one)")
	return cmd
}
