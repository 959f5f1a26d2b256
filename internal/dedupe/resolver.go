package dedupe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jamesbarge/postboxd-sub001/internal/film"
	"github.com/jamesbarge/postboxd-sub001/internal/logging"
)

// Resolver merges duplicate films through a Repository.
type Resolver struct {
	repo   Repository
	logger *slog.Logger
}

// NewResolver constructs a resolver. A nil logger discards output.
func NewResolver(repo Repository, logger *slog.Logger) *Resolver {
	return &Resolver{
		repo:   repo,
		logger: logging.NewComponentLogger(logger, "dedupe"),
	}
}

// Merge folds duplicateID into canonicalID and returns the number of child
// references that moved.
func (r *Resolver) Merge(ctx context.Context, duplicateID, canonicalID string) (int64, error) {
	duplicateID = strings.TrimSpace(duplicateID)
	canonicalID = strings.TrimSpace(canonicalID)
	if duplicateID == "" || canonicalID == "" {
		return 0, fmt.Errorf("%w: duplicate and canonical ids are required", ErrInvalidInput)
	}
	if duplicateID == canonicalID {
		return 0, fmt.Errorf("%w: %s", ErrSelfMerge, duplicateID)
	}

	var moved int64
	err := r.repo.InTx(ctx, func(tx Tx) error {
		n, err := mergeInTx(ctx, tx, duplicateID, canonicalID)
		if err != nil {
			return err
		}
		moved = n
		return nil
	})
	if err != nil {
		return 0, r.fail("merge", err, duplicateID, canonicalID)
	}

	r.logger.Info("films merged", logging.Args(append(
		logging.MergeAttrs(duplicateID, canonicalID, moved),
		logging.String(logging.FieldEventType, "film_merged"))...)...)
	return moved, nil
}

// BindAction describes what MergeOnBind did to satisfy an accepted match.
type BindAction string

const (
	BindActionBound     BindAction = "bound"
	BindActionMerged    BindAction = "merged"
	BindActionUnchanged BindAction = "unchanged"
)

// BindOutcome reports the film that holds the identity after MergeOnBind.
type BindOutcome struct {
	Action BindAction
	FilmID string
	Moved  int64
}

// MergeOnBind attaches candidate's external identity to the film currentID. When a
// different film already holds that identity, currentID is merged into it. A
// film bound to another identity is never rebound or merged: ErrAlreadyBound.
func (r *Resolver) MergeOnBind(ctx context.Context, currentID string, candidate film.Candidate) (BindOutcome, error) {
	currentID = strings.TrimSpace(currentID)
	externalID := strings.TrimSpace(candidate.ExternalID)
	if currentID == "" || externalID == "" {
		return BindOutcome{}, fmt.Errorf("%w: film id and external id are required", ErrInvalidInput)
	}

	var outcome BindOutcome
	err := r.repo.InTx(ctx, func(tx Tx) error {
		current, err := tx.GetFilm(ctx, currentID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, currentID)
		}

		holder, err := tx.LookupByExternalID(ctx, externalID)
		if err != nil {
			return err
		}
		switch {
		case holder != nil && holder.ID == current.ID:
			outcome = BindOutcome{Action: BindActionUnchanged, FilmID: current.ID}
			return nil
		case current.Bound():
			return fmt.Errorf("%w: film %s holds %s, match proposed %s",
				ErrAlreadyBound, current.ID, current.ExternalID, externalID)
		case holder != nil:
			moved, err := mergeInTx(ctx, tx, current.ID, holder.ID)
			if err != nil {
				return err
			}
			outcome = BindOutcome{Action: BindActionMerged, FilmID: holder.ID, Moved: moved}
			return nil
		}

		if err := tx.UpdateFilm(ctx, current.ID, film.EnrichmentFrom(current, candidate)); err != nil {
			return err
		}
		outcome = BindOutcome{Action: BindActionBound, FilmID: current.ID}
		return nil
	})
	if err != nil {
		return BindOutcome{}, r.fail("bind", err, currentID, externalID)
	}

	r.logger.Info("external identity applied",
		logging.String(logging.FieldEventType, "identity_"+string(outcome.Action)),
		logging.String(logging.FieldFilmID, currentID),
		logging.String("external_id", externalID),
		logging.String("canonical_id", outcome.FilmID),
		logging.Int64("references_moved", outcome.Moved))
	return outcome, nil
}

// mergeInTx reassigns children, deletes the duplicate, then fills blank
// canonical fields from the duplicate.
func mergeInTx(ctx context.Context, tx Tx, duplicateID, canonicalID string) (int64, error) {
	duplicate, err := tx.GetFilm(ctx, duplicateID)
	if err != nil {
		return 0, err
	}
	if duplicate == nil {
		return 0, fmt.Errorf("%w: duplicate %s", ErrNotFound, duplicateID)
	}
	canonical, err := tx.GetFilm(ctx, canonicalID)
	if err != nil {
		return 0, err
	}
	if canonical == nil {
		return 0, fmt.Errorf("%w: canonical %s", ErrNotFound, canonicalID)
	}

	moved, err := tx.ReassignChildren(ctx, duplicateID, canonicalID)
	if err != nil {
		return 0, fmt.Errorf("reassign children: %w", err)
	}
	if err := tx.DeleteFilm(ctx, duplicateID); err != nil {
		return 0, fmt.Errorf("delete duplicate: %w", err)
	}
	if update := carryOver(canonical, duplicate); !update.Empty() {
		if err := tx.UpdateFilm(ctx, canonicalID, update); err != nil {
			return 0, fmt.Errorf("update canonical: %w", err)
		}
	}
	return moved, nil
}

// carryOver copies fields the canonical film lacks from the duplicate. The
// canonical external identity always wins.
func carryOver(canonical, duplicate *film.Film) film.Update {
	var update film.Update
	if !canonical.Bound() && duplicate.Bound() {
		id := strings.TrimSpace(duplicate.ExternalID)
		update.ExternalID = &id
	}
	if canonical.Year == nil && duplicate.Year != nil {
		year := *duplicate.Year
		update.Year = &year
	}
	fill := func(dst **string, have, from string) {
		if strings.TrimSpace(have) == "" && strings.TrimSpace(from) != "" {
			v := from
			*dst = &v
		}
	}
	fill(&update.PosterURL, canonical.PosterURL, duplicate.PosterURL)
	fill(&update.Synopsis, canonical.Synopsis, duplicate.Synopsis)
	fill(&update.IMDbID, canonical.IMDbID, duplicate.IMDbID)
	fill(&update.LetterboxdURL, canonical.LetterboxdURL, duplicate.LetterboxdURL)
	return update
}

// fail keeps classified errors as they are and wraps everything else as
// retryable: the transaction has been rolled back by then.
func (r *Resolver) fail(op string, err error, subject, target string) error {
	if Kind(err) == "" {
		err = &RetryableError{Op: op, Err: err}
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, op+"_failed"),
		logging.String("subject", subject),
		logging.String("target", target),
		logging.String("error_kind", Kind(err)),
		logging.Error(err),
	}
	if errors.Is(err, ErrRetryable) {
		logging.WarnWithContext(r.logger, op+" rolled back", op+"_rolled_back",
			append(attrs, logging.String(logging.FieldErrorHint, "retry the operation; no partial changes were kept"))...)
	} else {
		r.logger.Info(op+" refused", logging.Args(attrs...)...)
	}
	return err
}
