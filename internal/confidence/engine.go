package confidence

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jamesbarge/postboxd-sub001/internal/film"
	"github.com/jamesbarge/postboxd-sub001/internal/textutil"
)

const (
	weightTitle        = 0.40
	weightYear         = 0.25
	weightSources      = 0.20
	weightCompleteness = 0.15

	perSourceAgreement = 0.33

	shareCompletenessPoster     = 0.30
	shareCompletenessSynopsis   = 0.30
	shareCompletenessIMDb       = 0.20
	shareCompletenessLetterboxd = 0.20
)

// Engine scores candidates under a fixed Policy. The zero value is not
// usable; construct with NewEngine.
type Engine struct {
	policy Policy
}

// NewEngine builds an engine. Out-of-range thresholds fall back to defaults.
func NewEngine(policy Policy) *Engine {
	return &Engine{policy: policy.normalized()}
}

// Policy returns the effective thresholds.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Score combines the four components for one candidate.
func (e *Engine) Score(in Input) (Result, error) {
	if strings.TrimSpace(in.ObservedTitle) == "" {
		return Result{}, fmt.Errorf("%w: observed title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.CandidateTitle) == "" {
		return Result{}, fmt.Errorf("%w: candidate title is required", ErrInvalidInput)
	}

	components := Components{
		TitleMatch:      textutil.Similarity(in.ObservedTitle, in.CandidateTitle),
		YearMatch:       YearMatch(in.ObservedYear, in.CandidateYear),
		SourceAgreement: SourceAgreement(in.Signals.SourceCount),
		Completeness:    in.Signals.Completeness.Score(),
	}
	overall := weightTitle*components.TitleMatch +
		weightYear*components.YearMatch +
		weightSources*components.SourceAgreement +
		weightCompleteness*components.Completeness
	overall = roundScore(clamp01(overall))

	return Result{
		Overall:    overall,
		Components: components,
		Decision:   e.policy.Decide(overall),
	}, nil
}

// Ranked pairs a candidate with its score.
type Ranked struct {
	Candidate film.Candidate
	Result    Result
}

// Rank scores every candidate against the observed title and year, returning
// them ordered by overall score, best first. Candidate-supplied posters and
// overviews count toward completeness. Candidates without a title are skipped;
// a missing observed title fails the whole call.
func (e *Engine) Rank(observedTitle string, observedYear *int, candidates []film.Candidate, signals Signals) ([]Ranked, error) {
	if strings.TrimSpace(observedTitle) == "" {
		return nil, fmt.Errorf("%w: observed title is required", ErrInvalidInput)
	}
	ranked := make([]Ranked, 0, len(candidates))
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate.Title) == "" {
			continue
		}
		candidateSignals := signals
		if strings.TrimSpace(candidate.PosterURL) != "" {
			candidateSignals.Completeness.Poster = true
		}
		if strings.TrimSpace(candidate.Overview) != "" {
			candidateSignals.Completeness.Synopsis = true
		}
		result, err := e.Score(Input{
			ObservedTitle:  observedTitle,
			ObservedYear:   observedYear,
			CandidateTitle: candidate.Title,
			CandidateYear:  candidate.Year,
			Signals:        candidateSignals,
		})
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, Ranked{Candidate: candidate, Result: result})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Result.Overall > ranked[j].Result.Overall
	})
	return ranked, nil
}

// YearMatch scores release-year agreement. A one-year gap is tolerated as
// release-date skew between regions.
func YearMatch(observed, candidate *int) float64 {
	switch {
	case observed != nil && candidate != nil:
		diff := *observed - *candidate
		if diff < 0 {
			diff = -diff
		}
		switch diff {
		case 0:
			return 1.0
		case 1:
			return 0.8
		case 2:
			return 0.4
		default:
			return 0.0
		}
	case candidate != nil:
		return 0.6
	default:
		return 0.5
	}
}

// SourceAgreement saturates at 1.0 around three confirming sources. Negative
// counts are treated as zero.
func SourceAgreement(count int) float64 {
	if count <= 0 {
		return 0
	}
	return math.Min(1.0, float64(count)*perSourceAgreement)
}

// Score sums the share of each present flag; all four present sum to 1.0.
func (c Completeness) Score() float64 {
	var total float64
	if c.Poster {
		total += shareCompletenessPoster
	}
	if c.Synopsis {
		total += shareCompletenessSynopsis
	}
	if c.IMDbID {
		total += shareCompletenessIMDb
	}
	if c.Letterboxd {
		total += shareCompletenessLetterboxd
	}
	return clamp01(total)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func roundScore(v float64) float64 {
	return math.Round(v*100) / 100
}
