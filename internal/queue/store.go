package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jamesbarge/postboxd-sub001/internal/database"
)

// Store manages review items in the shared catalog database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New wraps an open, migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Enqueue records a proposal for review. A pending item for the same film and
// external identity is returned unchanged instead of duplicated.
func (s *Store) Enqueue(ctx context.Context, entry Entry) (*Item, error) {
	entry.FilmID = strings.TrimSpace(entry.FilmID)
	entry.Candidate.ExternalID = strings.TrimSpace(entry.Candidate.ExternalID)
	if entry.FilmID == "" || entry.Candidate.ExternalID == "" {
		return nil, fmt.Errorf("%w: film id and candidate external id are required", ErrInvalidEntry)
	}

	existing, err := s.findPending(ctx, entry.FilmID, entry.Candidate.ExternalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	candidateJSON, err := json.Marshal(entry.Candidate)
	if err != nil {
		return nil, fmt.Errorf("marshal candidate: %w", err)
	}
	resultJSON, err := json.Marshal(entry.Result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	id := uuid.NewString()
	timestamp := database.FormatTime(s.now())
	err = database.RetryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO review_items (
				id, film_id, raw_title, raw_year, candidate_json, result_json,
				overall, status, reason, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id,
			entry.FilmID,
			strings.TrimSpace(entry.RawTitle),
			database.NullableInt(entry.RawYear),
			string(candidateJSON),
			string(resultJSON),
			entry.Result.Overall,
			StatusPending,
			database.NullableString(entry.Reason),
			timestamp,
			timestamp,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert review item: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a review item, returning nil, nil when it does not exist.
func (s *Store) GetByID(ctx context.Context, id string) (*Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM review_items WHERE id = ?`, strings.TrimSpace(id))
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get review item: %w", err)
	}
	return item, nil
}

func (s *Store) findPending(ctx context.Context, filmID, externalID string) (*Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM review_items WHERE film_id = ? AND status = ? ORDER BY created_at`,
		filmID, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("find pending review: %w", err)
	}
	items, err := collectItems(rows)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.Candidate.ExternalID == externalID {
			return item, nil
		}
	}
	return nil, nil
}
