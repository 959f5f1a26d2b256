package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jamesbarge/postboxd-sub001/internal/database"
)

const itemColumns = "id, film_id, raw_title, raw_year, candidate_json, result_json, status, reason, resolution_note, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		item           Item
		rawYear        sql.NullInt64
		candidateJSON  string
		resultJSON     string
		statusStr      string
		reason         sql.NullString
		resolutionNote sql.NullString
		createdRaw     string
		updatedRaw     string
	)
	if err := scanner.Scan(
		&item.ID,
		&item.FilmID,
		&item.RawTitle,
		&rawYear,
		&candidateJSON,
		&resultJSON,
		&statusStr,
		&reason,
		&resolutionNote,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(candidateJSON), &item.Candidate); err != nil {
		return nil, fmt.Errorf("decode candidate for %s: %w", item.ID, err)
	}
	if err := json.Unmarshal([]byte(resultJSON), &item.Result); err != nil {
		return nil, fmt.Errorf("decode result for %s: %w", item.ID, err)
	}
	item.RawYear = database.IntPtr(rawYear)
	item.Status = Status(statusStr)
	item.Reason = reason.String
	item.ResolutionNote = resolutionNote.String
	item.CreatedAt, _ = database.ParseTime(createdRaw)
	item.UpdatedAt, _ = database.ParseTime(updatedRaw)
	return &item, nil
}

func collectItems(rows *sql.Rows) ([]*Item, error) {
	defer rows.Close()
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review items: %w", err)
	}
	return items, nil
}

// List returns review items in creation order, filtered by status when any
// statuses are given.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM review_items`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + database.MakePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list review items: %w", err)
	}
	return collectItems(rows)
}

// ItemsForFilm returns every review item that references filmID.
func (s *Store) ItemsForFilm(ctx context.Context, filmID string) ([]*Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM review_items WHERE film_id = ? ORDER BY created_at, id`, filmID)
	if err != nil {
		return nil, fmt.Errorf("list review items for film: %w", err)
	}
	return collectItems(rows)
}

// Health returns item counts per status.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM review_items GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("review health: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan review health: %w", err)
		}
		summary.Total += count
		switch Status(status) {
		case StatusPending:
			summary.Pending = count
		case StatusApproved:
			summary.Approved = count
		case StatusRejected:
			summary.Rejected = count
		case StatusFailed:
			summary.Failed = count
		}
	}
	return summary, rows.Err()
}
