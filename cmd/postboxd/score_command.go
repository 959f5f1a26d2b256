package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesbarge/postboxd-sub001/internal/confidence"
	"github.com/jamesbarge/postboxd-sub001/internal/textutil"
)

type scoreView struct {
	ObservedTitle  string            `json:"observed_title"`
	CandidateTitle string            `json:"candidate_title"`
	ObservedNorm   string            `json:"observed_normalized"`
	CandidateNorm  string            `json:"candidate_normalized"`
	Result         confidence.Result `json:"result"`
	AutoApplyAbove float64           `json:"auto_apply_above"`
	ReviewFloor    float64           `json:"review_floor"`
}

func newScoreCommand(ctx *commandContext) *cobra.Command {
	var year, candidateYear, sources int
	var completeness confidence.Completeness

	cmd := &cobra.Command{
		Use:   "score <observed-title> <candidate-title>",
		Short: "Score a single observed title against a candidate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := ctx.engine()
			in := confidence.Input{
				ObservedTitle:  args[0],
				CandidateTitle: args[1],
				Signals: confidence.Signals{
					SourceCount:  sources,
					Completeness: completeness,
				},
			}
			if cmd.Flags().Changed("year") {
				in.ObservedYear = &year
			}
			if cmd.Flags().Changed("candidate-year") {
				in.CandidateYear = &candidateYear
			}

			result, err := engine.Score(in)
			if err != nil {
				return err
			}
			policy := engine.Policy()
			view := scoreView{
				ObservedTitle:  args[0],
				CandidateTitle: args[1],
				ObservedNorm:   textutil.Normalize(args[0]),
				CandidateNorm:  textutil.Normalize(args[1]),
				Result:         result,
				AutoApplyAbove: policy.AutoApplyThreshold,
				ReviewFloor:    policy.ReviewFloor,
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Normalized: %q vs %q\n", view.ObservedNorm, view.CandidateNorm)
			rows := [][]string{
				{"Title match", formatScore(result.Components.TitleMatch)},
				{"Year match", formatScore(result.Components.YearMatch)},
				{"Source agreement", formatScore(result.Components.SourceAgreement)},
				{"Completeness", formatScore(result.Components.Completeness)},
				{"Overall", formatScore(result.Overall)},
			}
			renderTable(out, []string{"Component", "Score"}, rows, []columnAlignment{alignLeft, alignRight})
			fmt.Fprintf(out, "Decision: %s (auto-apply above %.2f, review above %.2f)\n",
				result.Decision, policy.AutoApplyThreshold, policy.ReviewFloor)
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Observed release year")
	cmd.Flags().IntVar(&candidateYear, "candidate-year", 0, "Candidate release year")
	cmd.Flags().IntVar(&sources, "sources", 1, "Number of sources agreeing on the candidate")
	cmd.Flags().BoolVar(&completeness.Poster, "poster", false, "Candidate has a poster")
	cmd.Flags().BoolVar(&completeness.Synopsis, "synopsis", false, "Candidate has a synopsis")
	cmd.Flags().BoolVar(&completeness.IMDbID, "imdb", false, "Candidate has an IMDb id")
	cmd.Flags().BoolVar(&completeness.Letterboxd, "letterboxd", false, "Candidate has a Letterboxd link")
	return cmd
}
