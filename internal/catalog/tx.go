package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jamesbarge/postboxd-sub001/internal/database"
	"github.com/jamesbarge/postboxd-sub001/internal/dedupe"
	"github.com/jamesbarge/postboxd-sub001/internal/film"
)

// childTables lists every table holding a film_id reference that a merge moves.
var childTables = []string{"screenings", "review_items", "film_aliases"}

// InTx runs fn inside an IMMEDIATE transaction, committing when fn returns
// nil and rolling back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(tx dedupe.Tx) error) error {
	var tx *sql.Tx
	err := database.RetryOnBusy(ctx, func() error {
		var err error
		tx, err = s.db.BeginTx(ctx, nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&txAdapter{tx: tx, now: s.now().UTC()}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type txAdapter struct {
	tx  *sql.Tx
	now time.Time
}

func (t *txAdapter) GetFilm(ctx context.Context, id string) (*film.Film, error) {
	return getFilm(ctx, t.tx, id)
}

func (t *txAdapter) LookupByExternalID(ctx context.Context, externalID string) (*film.Film, error) {
	return lookupByExternalID(ctx, t.tx, externalID)
}

// ReassignChildren moves screenings, review items, and aliases. Aliases the
// target already holds are dropped rather than duplicated and are not counted.
func (t *txAdapter) ReassignChildren(ctx context.Context, fromID, toID string) (int64, error) {
	var moved int64
	for _, stmt := range []struct {
		query string
		args  []any
	}{
		{`UPDATE screenings SET film_id = ? WHERE film_id = ?`, []any{toID, fromID}},
		{`UPDATE review_items SET film_id = ?, updated_at = ? WHERE film_id = ?`, []any{toID, database.FormatTime(t.now), fromID}},
		{`UPDATE OR IGNORE film_aliases SET film_id = ? WHERE film_id = ?`, []any{toID, fromID}},
	} {
		res, err := t.tx.ExecContext(ctx, stmt.query, stmt.args...)
		if err != nil {
			return 0, fmt.Errorf("reassign children: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("reassign children: %w", err)
		}
		moved += n
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM film_aliases WHERE film_id = ?`, fromID); err != nil {
		return 0, fmt.Errorf("drop duplicate aliases: %w", err)
	}
	return moved, nil
}

func (t *txAdapter) DeleteFilm(ctx context.Context, id string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM films WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete film: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete film %s: %w", id, dedupe.ErrNotFound)
	}
	return nil
}

func (t *txAdapter) UpdateFilm(ctx context.Context, id string, update film.Update) error {
	return updateFilm(ctx, t.tx, id, update, t.now)
}

// ChildReferences counts rows in every child table that point at filmID.
func (s *Store) ChildReferences(ctx context.Context, filmID string) (int64, error) {
	var total int64
	for _, table := range childTables {
		var n int64
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE film_id = ?`, filmID).Scan(&n); err != nil {
			return 0, fmt.Errorf("count %s references: %w", table, err)
		}
		total += n
	}
	return total, nil
}
