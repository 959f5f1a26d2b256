package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesbarge/postboxd-sub001/internal/catalog"
	"github.com/jamesbarge/postboxd-sub001/internal/film"
	"github.com/jamesbarge/postboxd-sub001/internal/resolution"
)

type outcomeView struct {
	Index        int     `json:"index"`
	FilmID       string  `json:"film_id"`
	Status       string  `json:"status"`
	Decision     string  `json:"decision,omitempty"`
	ExternalID   string  `json:"external_id,omitempty"`
	Candidate    string  `json:"candidate,omitempty"`
	Overall      float64 `json:"overall,omitempty"`
	Action       string  `json:"action,omitempty"`
	ResolvedFilm string  `json:"resolved_film_id,omitempty"`
	ReviewID     string  `json:"review_id,omitempty"`
	Reason       string  `json:"reason,omitempty"`
	Error        string  `json:"error,omitempty"`
}

type batchView struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Duration  string        `json:"duration"`
	Outcomes  []outcomeView `json:"outcomes"`
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "resolve <observations-file>",
		Short: "Score and apply candidate matches from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			observations, err := resolution.LoadObservations(args[0])
			if err != nil {
				return err
			}
			films, reviews, err := ctx.stores(cmd.Context())
			if err != nil {
				return err
			}
			logger := ctx.loggerFor(cmd)
			if err := ingestFilms(cmd.Context(), films, observations); err != nil {
				return err
			}

			notifier := ctx.notifier()
			resolver, err := resolution.NewResolver(resolution.Dependencies{
				Engine:   ctx.engine(),
				Binder:   ctx.merger(cmd, films),
				Reviews:  reviews,
				Aliases:  films,
				Notifier: notifier,
				Logger:   logger,
			})
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = cfg.Batch.Workers
			}
			batch := resolution.NewBatch(resolver, nil, resolution.BatchOptions{
				Workers:  workers,
				MinDelay: time.Duration(cfg.Batch.MinDelayMillis) * time.Millisecond,
			})
			summary := batch.Run(cmd.Context(), observations)

			view := summarizeBatch(summary)
			if ctx.JSONMode() {
				if err := writeJSON(cmd, view); err != nil {
					return err
				}
			} else {
				renderBatch(cmd, view)
			}
			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d observations failed", summary.Failed, len(observations))
			}
			return cmd.Context().Err()
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent workers (defaults to batch.workers)")
	return cmd
}

// ingestFilms creates a film record for every observation whose film id is
// not in the catalog yet, titled from the raw listing.
func ingestFilms(ctx context.Context, films *catalog.Store, observations []resolution.Observation) error {
	seen := make(map[string]struct{}, len(observations))
	for _, obs := range observations {
		id := strings.TrimSpace(obs.FilmID)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		existing, err := films.GetFilm(ctx, id)
		if err != nil {
			return err
		}
		if existing != nil || strings.TrimSpace(obs.RawTitle) == "" {
			continue
		}
		if _, err := films.InsertFilm(ctx, film.Film{ID: id, Title: obs.RawTitle, Year: obs.RawYear}); err != nil {
			return fmt.Errorf("ingest film %s: %w", id, err)
		}
	}
	return nil
}

func summarizeBatch(summary resolution.Summary) batchView {
	view := batchView{
		Total:     len(summary.Outcomes),
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Skipped:   summary.Skipped,
		Duration:  summary.Duration.Round(time.Millisecond).String(),
		Outcomes:  make([]outcomeView, 0, len(summary.Outcomes)),
	}
	for _, out := range summary.Outcomes {
		ov := outcomeView{
			Index:  out.Index,
			FilmID: out.FilmID,
			Status: string(out.Status),
			Error:  errorText(out.Err),
		}
		res := out.Resolution
		if out.Status == resolution.OutcomeSucceeded {
			ov.Decision = string(res.Decision)
			ov.ResolvedFilm = res.FilmID
			ov.ReviewID = res.ReviewID
			ov.Reason = res.Reason
			ov.Action = string(res.Bind.Action)
			if res.Best != nil {
				ov.ExternalID = res.Best.Candidate.ExternalID
				ov.Candidate = res.Best.Candidate.Title
				ov.Overall = res.Best.Result.Overall
			}
		}
		view.Outcomes = append(view.Outcomes, ov)
	}
	return view
}

func renderBatch(cmd *cobra.Command, view batchView) {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(view.Outcomes))
	for _, ov := range view.Outcomes {
		detail := ov.Reason
		switch {
		case ov.Error != "":
			detail = ov.Error
		case ov.Action != "":
			detail = ov.Action + " " + ov.ResolvedFilm
		case ov.ReviewID != "":
			detail = "review " + ov.ReviewID
		}
		score := "-"
		if ov.Candidate != "" {
			score = formatScore(ov.Overall)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", ov.Index+1),
			ov.FilmID,
			ov.Status,
			dash(ov.Decision),
			dash(ov.Candidate),
			score,
			dash(detail),
		})
	}
	renderTable(out,
		[]string{"#", "Film", "Status", "Decision", "Candidate", "Score", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
	fmt.Fprintf(out, "%d observations: %d succeeded, %d failed, %d skipped in %s\n",
		view.Total, view.Succeeded, view.Failed, view.Skipped, view.Duration)
}
