package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesbarge/postboxd-sub001/internal/dedupe"
	"github.com/jamesbarge/postboxd-sub001/internal/queue"
)

type reviewView struct {
	ID             string  `json:"id"`
	FilmID         string  `json:"film_id"`
	RawTitle       string  `json:"raw_title"`
	RawYear        *int    `json:"raw_year,omitempty"`
	ExternalID     string  `json:"external_id"`
	Candidate      string  `json:"candidate"`
	CandidateYear  *int    `json:"candidate_year,omitempty"`
	Overall        float64 `json:"overall"`
	Status         string  `json:"status"`
	Reason         string  `json:"reason,omitempty"`
	ResolutionNote string  `json:"resolution_note,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

func toReviewView(item *queue.Item) reviewView {
	return reviewView{
		ID:             item.ID,
		FilmID:         item.FilmID,
		RawTitle:       item.RawTitle,
		RawYear:        item.RawYear,
		ExternalID:     item.Candidate.ExternalID,
		Candidate:      item.Candidate.Title,
		CandidateYear:  item.Candidate.Year,
		Overall:        item.Result.Overall,
		Status:         string(item.Status),
		Reason:         item.Reason,
		ResolutionNote: item.ResolutionNote,
		CreatedAt:      item.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		UpdatedAt:      item.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

func newReviewCommand(ctx *commandContext) *cobra.Command {
	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Inspect and decide queued match proposals",
	}

	reviewCmd.AddCommand(newReviewListCommand(ctx))
	reviewCmd.AddCommand(newReviewStatusCommand(ctx))
	reviewCmd.AddCommand(newReviewApproveCommand(ctx))
	reviewCmd.AddCommand(newReviewRejectCommand(ctx))
	reviewCmd.AddCommand(newReviewRetryCommand(ctx))

	return reviewCmd
}

func newReviewListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List review items (pending by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(statusFlags)
			if err != nil {
				return err
			}
			_, reviews, err := ctx.stores(cmd.Context())
			if err != nil {
				return err
			}
			items, err := reviews.List(cmd.Context(), statuses...)
			if err != nil {
				return err
			}

			views := make([]reviewView, 0, len(items))
			for _, item := range items {
				views = append(views, toReviewView(item))
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No review items")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{
					v.ID,
					fmt.Sprintf("%s (%s)", v.RawTitle, formatYear(v.RawYear)),
					fmt.Sprintf("%s (%s)", v.Candidate, formatYear(v.CandidateYear)),
					formatScore(v.Overall),
					v.Status,
					dash(v.ResolutionNote),
				})
			}
			renderTable(out,
				[]string{"ID", "Listing", "Candidate", "Score", "Status", "Note"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft})
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", []string{string(queue.StatusPending)}, "Statuses to include (pending, approved, rejected, failed, or all)")
	return cmd
}

func parseStatuses(values []string) ([]queue.Status, error) {
	var statuses []queue.Status
	for _, value := range values {
		if strings.EqualFold(strings.TrimSpace(value), "all") {
			return nil, nil
		}
		status, ok := queue.ParseStatus(value)
		if !ok {
			return nil, fmt.Errorf("unknown review status %q", value)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func newReviewStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the review queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, reviews, err := ctx.stores(cmd.Context())
			if err != nil {
				return err
			}
			health, err := reviews.Health(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, health)
			}
			rows := [][]string{
				{"Pending", fmt.Sprintf("%d", health.Pending)},
				{"Approved", fmt.Sprintf("%d", health.Approved)},
				{"Rejected", fmt.Sprintf("%d", health.Rejected)},
				{"Failed", fmt.Sprintf("%d", health.Failed)},
				{"Total", fmt.Sprintf("%d", health.Total)},
			}
			renderTable(cmd.OutOrStdout(), []string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
			return nil
		},
	}
}

func newReviewApproveCommand(ctx *commandContext) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Apply a queued candidate to its film",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			films, reviews, err := ctx.stores(cmd.Context())
			if err != nil {
				return err
			}
			item, outcome, err := reviews.Approve(cmd.Context(), args[0], ctx.merger(cmd, films), note)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]any{
					"item":    toReviewView(item),
					"action":  outcome.Action,
					"film_id": outcome.FilmID,
					"moved":   outcome.Moved,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Approved %s: %s\n", item.ID, item.ResolutionNote)
			if outcome.Action == dedupe.BindActionMerged {
				fmt.Fprintf(out, "Film %s was folded into %s\n", item.FilmID, outcome.FilmID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&note, "note", "n", "", "Note recorded with the decision")
	return cmd
}

func newReviewRejectCommand(ctx *commandContext) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Close a queued candidate without applying it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, reviews, err := ctx.stores(cmd.Context())
			if err != nil {
				return err
			}
			item, err := reviews.Reject(cmd.Context(), args[0], note)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, toReviewView(item))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rejected %s\n", item.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&note, "note", "n", "", "Note recorded with the decision")
	return cmd
}

func newReviewRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Return failed review items to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, reviews, err := ctx.stores(cmd.Context())
			if err != nil {
				return err
			}
			n, err := reviews.RetryFailed(cmd.Context(), args...)
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]int64{"retried": n})
			}
			out := cmd.OutOrStdout()
			if n == 0 {
				fmt.Fprintln(out, "No failed review items to retry")
				return nil
			}
			fmt.Fprintf(out, "Returned %d review item(s) to pending\n", n)
			return nil
		},
	}
}
