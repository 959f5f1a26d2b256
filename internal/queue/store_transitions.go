package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/jamesbarge/postboxd-sub001/internal/database"
	"github.com/jamesbarge/postboxd-sub001/internal/dedupe"
	"github.com/jamesbarge/postboxd-sub001/internal/film"
)

// Applier binds a reviewed candidate to its film, merging when another film
// already holds the identity. *dedupe.Resolver satisfies it.
type Applier interface {
	MergeOnBind(ctx context.Context, currentID string, candidate film.Candidate) (dedupe.BindOutcome, error)
}

// Approve applies the item's candidate and closes it. When applying fails the
// item moves to FailureStatus(err) and the error is returned.
func (s *Store) Approve(ctx context.Context, id string, applier Applier, note string) (*Item, dedupe.BindOutcome, error) {
	item, err := s.pendingItem(ctx, id)
	if err != nil {
		return nil, dedupe.BindOutcome{}, err
	}

	outcome, applyErr := applier.MergeOnBind(ctx, item.FilmID, item.Candidate)
	if applyErr != nil {
		status := FailureStatus(applyErr)
		if err := s.transition(ctx, item.ID, status, applyErr.Error()); err != nil {
			return nil, dedupe.BindOutcome{}, fmt.Errorf("%w (recording failure: %v)", applyErr, err)
		}
		updated, _ := s.GetByID(ctx, item.ID)
		return updated, dedupe.BindOutcome{}, applyErr
	}

	resolution := describeOutcome(outcome)
	if note = strings.TrimSpace(note); note != "" {
		resolution += ": " + note
	}
	if err := s.transition(ctx, item.ID, StatusApproved, resolution); err != nil {
		return nil, outcome, err
	}
	updated, err := s.GetByID(ctx, item.ID)
	return updated, outcome, err
}

// Reject closes a pending item without applying its candidate.
func (s *Store) Reject(ctx context.Context, id, note string) (*Item, error) {
	item, err := s.pendingItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, item.ID, StatusRejected, strings.TrimSpace(note)); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, item.ID)
}

// RetryFailed moves failed items back to pending. With no ids every failed
// item is retried.
func (s *Store) RetryFailed(ctx context.Context, ids ...string) (int64, error) {
	query := `UPDATE review_items SET status = ?, resolution_note = NULL, updated_at = ? WHERE status = ?`
	args := []any{StatusPending, database.FormatTime(s.now()), StatusFailed}
	if len(ids) > 0 {
		query += ` AND id IN (` + database.MakePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, strings.TrimSpace(id))
		}
	}
	var affected int64
	err := database.RetryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("retry failed reviews: %w", err)
	}
	return affected, nil
}

func (s *Store) pendingItem(ctx context.Context, id string) (*Item, error) {
	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	if !item.IsOpen() {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotPending, item.ID, item.Status)
	}
	return item, nil
}

// transition closes a pending item. It fails with ErrNotPending when another
// caller closed the item first.
func (s *Store) transition(ctx context.Context, id string, status Status, note string) error {
	var affected int64
	err := database.RetryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE review_items SET status = ?, resolution_note = ?, updated_at = ?
			WHERE id = ? AND status = ?`,
			status, database.NullableString(note), database.FormatTime(s.now()), id, StatusPending)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update review item: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotPending, id)
	}
	return nil
}

func describeOutcome(outcome dedupe.BindOutcome) string {
	switch outcome.Action {
	case dedupe.BindActionMerged:
		return fmt.Sprintf("merged into %s (%d references moved)", outcome.FilmID, outcome.Moved)
	case dedupe.BindActionUnchanged:
		return "already bound"
	default:
		return "bound " + outcome.FilmID
	}
}
