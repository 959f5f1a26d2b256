package queue

import (
	"strings"
	"time"

	"github.com/jamesbarge/postboxd-sub001/internal/confidence"
	"github.com/jamesbarge/postboxd-sub001/internal/film"
)

// Status represents the lifecycle of a review item.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusApproved,
	StatusRejected,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Entry is a scored proposal to enqueue.
type Entry struct {
	FilmID    string
	RawTitle  string
	RawYear   *int
	Candidate film.Candidate
	Result    confidence.Result
	Reason    string
}

// Item is a review item persisted in SQLite.
type Item struct {
	ID             string
	FilmID         string
	RawTitle       string
	RawYear        *int
	Candidate      film.Candidate
	Result         confidence.Result
	Status         Status
	Reason         string
	ResolutionNote string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsOpen reports whether the item still awaits a decision.
func (i Item) IsOpen() bool {
	return i.Status == StatusPending
}

// HealthSummary describes aggregated queue counts per status.
type HealthSummary struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Failed   int `json:"failed"`
}
