package confidence

import (
	"errors"
	"math"
	"testing"

	"github.com/jamesbarge/postboxd-sub001/internal/film"
)

func TestScorePerfectMatchAutoApplies(t *testing.T) {
	engine := NewEngine(DefaultPolicy())
	result, err := engine.Score(Input{
		ObservedTitle:  "Paris, Texas",
		ObservedYear:   film.IntPtr(1984),
		CandidateTitle: "Paris, Texas",
		CandidateYear:  film.IntPtr(1984),
		Signals: Signals{
			SourceCount:  3,
			Completeness: Completeness{Poster: true, Synopsis: true, IMDbID: true, Letterboxd: true},
		},
	})
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if result.Overall <= 0.9 {
		t.Fatalf("expected overall > 0.9, got %v", result.Overall)
	}
	if result.Decision != DecisionAutoApply {
		t.Fatalf("expected auto_apply, got %s", result.Decision)
	}
}

func TestScoreYearOffByOne(t *testing.T) {
	engine := NewEngine(DefaultPolicy())
	result, err := engine.Score(Input{
		ObservedTitle:  "Drive My Car",
		ObservedYear:   film.IntPtr(2022),
		CandidateTitle: "Drive My Car",
		CandidateYear:  film.IntPtr(2021),
	})
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if result.Components.YearMatch != 0.8 {
		t.Fatalf("expected year component 0.8, got %v", result.Components.YearMatch)
	}
}

func TestScoreEventPrefixedRepertoryListingGoesToReview(t *testing.T) {
	engine := NewEngine(DefaultPolicy())
	result, err := engine.Score(Input{
		ObservedTitle:  "35mm: The Godfather",
		ObservedYear:   film.IntPtr(2024),
		CandidateTitle: "The Godfather",
		CandidateYear:  film.IntPtr(1972),
		Signals:        Signals{SourceCount: 1},
	})
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if result.Components.TitleMatch < 0.8 {
		t.Fatalf("expected high title similarity, got %v", result.Components.TitleMatch)
	}
	if result.Components.YearMatch != 0.0 {
		t.Fatalf("expected year component 0, got %v", result.Components.YearMatch)
	}
	if result.Overall >= engine.Policy().AutoApplyThreshold {
		t.Fatalf("expected overall below auto-apply threshold, got %v", result.Overall)
	}
	if result.Decision != DecisionReview {
		t.Fatalf("expected review, got %s (overall %v)", result.Decision, result.Overall)
	}
}

func TestScoreRejectsMissingTitle(t *testing.T) {
	engine := NewEngine(DefaultPolicy())
	tests := []Input{
		{ObservedTitle: "", CandidateTitle: "Vertigo"},
		{ObservedTitle: "   ", CandidateTitle: "Vertigo"},
		{ObservedTitle: "Vertigo", CandidateTitle: ""},
	}
	for _, in := range tests {
		if _, err := engine.Score(in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for %+v, got %v", in, err)
		}
	}
}

func TestScoreRejectsUnrelatedTitle(t *testing.T) {
	engine := NewEngine(DefaultPolicy())
	result, err := engine.Score(Input{
		ObservedTitle:  "Jaws",
		CandidateTitle: "Tokyo Story",
		ObservedYear:   film.IntPtr(1975),
		CandidateYear:  film.IntPtr(1953),
	})
	if err != nil {
		t.Fatalf("Score returned error: %v", err)
	}
	if result.Decision != DecisionReject {
		t.Fatalf("expected reject, got %s (overall %v)", result.Decision, result.Overall)
	}
}

func TestYearMatch(t *testing.T) {
	tests := []struct {
		name      string
		observed  *int
		candidate *int
		want      float64
	}{
		{"exact", film.IntPtr(2001), film.IntPtr(2001), 1.0},
		{"one year", film.IntPtr(2001), film.IntPtr(2002), 0.8},
		{"two years", film.IntPtr(2003), film.IntPtr(2001), 0.4},
		{"three years", film.IntPtr(2004), film.IntPtr(2001), 0.0},
		{"candidate only", nil, film.IntPtr(2001), 0.6},
		{"observed only", film.IntPtr(2001), nil, 0.5},
		{"neither", nil, nil, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := YearMatch(tt.observed, tt.candidate); got != tt.want {
				t.Fatalf("YearMatch = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSourceAgreementClamps(t *testing.T) {
	tests := []struct {
		count int
		want  float64
	}{
		{-4, 0},
		{0, 0},
		{1, 0.33},
		{2, 0.66},
		{3, 0.99},
		{12, 1.0},
	}
	for _, tt := range tests {
		if got := SourceAgreement(tt.count); math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("SourceAgreement(%d) = %v, want %v", tt.count, got, tt.want)
		}
	}
}

func TestCompletenessScore(t *testing.T) {
	if got := (Completeness{}).Score(); got != 0 {
		t.Fatalf("expected empty completeness 0, got %v", got)
	}
	all := Completeness{Poster: true, Synopsis: true, IMDbID: true, Letterboxd: true}
	if got := all.Score(); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("expected full completeness 1.0, got %v", got)
	}
	if got := (Completeness{Poster: true, IMDbID: true}).Score(); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("expected poster+imdb completeness 0.5, got %v", got)
	}
}

func TestPolicyNormalizesOutOfRangeThresholds(t *testing.T) {
	engine := NewEngine(Policy{AutoApplyThreshold: 4, ReviewFloor: -1})
	got := engine.Policy()
	if got != DefaultPolicy() {
		t.Fatalf("expected default policy, got %+v", got)
	}

	custom := NewEngine(Policy{AutoApplyThreshold: 0.9, ReviewFloor: 0.95}).Policy()
	if custom.AutoApplyThreshold != 0.9 || custom.ReviewFloor >= custom.AutoApplyThreshold {
		t.Fatalf("expected floor below auto threshold, got %+v", custom)
	}
}

func TestPolicyDecideBoundaries(t *testing.T) {
	policy := DefaultPolicy()
	if got := policy.Decide(0.8); got != DecisionReview {
		t.Fatalf("score equal to threshold must not auto apply, got %s", got)
	}
	if got := policy.Decide(0.81); got != DecisionAutoApply {
		t.Fatalf("expected auto_apply above threshold, got %s", got)
	}
	if got := policy.Decide(0.3); got != DecisionReject {
		t.Fatalf("score equal to floor must reject, got %s", got)
	}
}

func TestRankOrdersBestFirst(t *testing.T) {
	engine := NewEngine(DefaultPolicy())
	candidates := []film.Candidate{
		{ExternalID: "1", Title: "The Godfather Part II", Year: film.IntPtr(1974)},
		{ExternalID: "2", Title: "The Godfather", Year: film.IntPtr(1972), Overview: "Crime family saga."},
		{ExternalID: "3", Title: ""},
	}
	ranked, err := engine.Rank("The Godfather", film.IntPtr(1972), candidates, Signals{SourceCount: 2})
	if err != nil {
		t.Fatalf("Rank returned error: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected untitled candidate to be skipped, got %d results", len(ranked))
	}
	if ranked[0].Candidate.ExternalID != "2" {
		t.Fatalf("expected exact title to rank first, got %s", ranked[0].Candidate.ExternalID)
	}
	if ranked[0].Result.Components.Completeness != 0.3 {
		t.Fatalf("expected candidate overview to count as synopsis, got %v", ranked[0].Result.Components.Completeness)
	}
}

func TestRankRequiresObservedTitle(t *testing.T) {
	engine := NewEngine(DefaultPolicy())
	if _, err := engine.Rank(" ", nil, []film.Candidate{{Title: "Heat"}}, Signals{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func FuzzScoreBounded(f *testing.F) {
	f.Add("The Godfather", "Godfather", 1972, 1972, 3, true, true, true, true)
	f.Add("35mm: The Godfather", "The Godfather", 2024, 1972, 1, false, false, false, false)
	f.Add("x", "y", -5, 99999, -100, true, false, true, false)

	engine := NewEngine(DefaultPolicy())
	f.Fuzz(func(t *testing.T, observed, candidate string, oy, cy, sources int, poster, synopsis, imdb, letterboxd bool) {
		result, err := engine.Score(Input{
			ObservedTitle:  observed,
			ObservedYear:   &oy,
			CandidateTitle: candidate,
			CandidateYear:  &cy,
			Signals: Signals{
				SourceCount:  sources,
				Completeness: Completeness{Poster: poster, Synopsis: synopsis, IMDbID: imdb, Letterboxd: letterboxd},
			},
		})
		if err != nil {
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("unexpected error kind: %v", err)
			}
			return
		}
		if result.Overall < 0 || result.Overall > 1 || math.IsNaN(result.Overall) {
			t.Fatalf("overall out of range: %v", result.Overall)
		}
		switch result.Decision {
		case DecisionAutoApply, DecisionReview, DecisionReject:
		default:
			t.Fatalf("unexpected decision %q", result.Decision)
		}
	})
}
