package confidence

import "errors"

// ErrInvalidInput marks a scoring request that cannot be scored at all.
var ErrInvalidInput = errors.New("invalid input")

// Decision is the action recommended for a scored candidate.
type Decision string

const (
	DecisionAutoApply Decision = "auto_apply"
	DecisionReview    Decision = "review"
	DecisionReject    Decision = "reject"
)

// Completeness flags which auxiliary data is present for a match.
type Completeness struct {
	Poster     bool `json:"poster" yaml:"poster"`
	Synopsis   bool `json:"synopsis" yaml:"synopsis"`
	IMDbID     bool `json:"imdb_id" yaml:"imdb_id"`
	Letterboxd bool `json:"letterboxd" yaml:"letterboxd"`
}

// Signals carries the evidence gathered alongside an observation.
type Signals struct {
	SourceCount  int          `json:"source_count" yaml:"source_count"`
	Completeness Completeness `json:"completeness" yaml:"completeness"`
}

// Input is a single observation/candidate pairing to score.
type Input struct {
	ObservedTitle  string
	ObservedYear   *int
	CandidateTitle string
	CandidateYear  *int
	Signals        Signals
}

// Components exposes each weighted signal before combination.
type Components struct {
	TitleMatch      float64 `json:"title_match"`
	YearMatch       float64 `json:"year_match"`
	SourceAgreement float64 `json:"source_agreement"`
	Completeness    float64 `json:"completeness"`
}

// Result is the scored outcome for one candidate.
type Result struct {
	Overall    float64    `json:"overall"`
	Components Components `json:"components"`
	Decision   Decision   `json:"decision"`
}
