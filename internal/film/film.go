// Package film holds the canonical film record and the candidate identities
// proposed for it by external lookups.
package film

import (
	"strings"
	"time"
)

// Film is the single authoritative record for a real-world film. A non-empty
// ExternalID is held by at most one Film.
type Film struct {
	ID            string
	Title         string
	Year          *int
	ExternalID    string
	PosterURL     string
	Synopsis      string
	IMDbID        string
	LetterboxdURL string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Bound reports whether the film is already linked to an external identity.
func (f *Film) Bound() bool {
	return f != nil && strings.TrimSpace(f.ExternalID) != ""
}

// Candidate is one external identity proposed for an observed listing.
type Candidate struct {
	ExternalID string `json:"external_id" yaml:"external_id"`
	Title      string `json:"title" yaml:"title"`
	Year       *int   `json:"year,omitempty" yaml:"year,omitempty"`
	Overview   string `json:"overview,omitempty" yaml:"overview,omitempty"`
	PosterURL  string `json:"poster_url,omitempty" yaml:"poster_url,omitempty"`
}

// Update lists the fields an enrichment may write. Nil pointers leave the
// stored value untouched.
type Update struct {
	Title         *string
	Year          *int
	ExternalID    *string
	PosterURL     *string
	Synopsis      *string
	IMDbID        *string
	LetterboxdURL *string
}

// Empty reports whether the update would change nothing.
func (u Update) Empty() bool {
	return u.Title == nil && u.Year == nil && u.ExternalID == nil && u.PosterURL == nil &&
		u.Synopsis == nil && u.IMDbID == nil && u.LetterboxdURL == nil
}

// EnrichmentFrom builds the update applied when a candidate is accepted for a
// film: the external identity is bound and blank fields are filled from the
// candidate.
func EnrichmentFrom(current *Film, candidate Candidate) Update {
	externalID := strings.TrimSpace(candidate.ExternalID)
	update := Update{ExternalID: &externalID}
	if current == nil {
		return update
	}
	if current.Year == nil && candidate.Year != nil {
		year := *candidate.Year
		update.Year = &year
	}
	if strings.TrimSpace(current.Synopsis) == "" {
		if overview := strings.TrimSpace(candidate.Overview); overview != "" {
			update.Synopsis = &overview
		}
	}
	if strings.TrimSpace(current.PosterURL) == "" {
		if poster := strings.TrimSpace(candidate.PosterURL); poster != "" {
			update.PosterURL = &poster
		}
	}
	return update
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
