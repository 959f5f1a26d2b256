package dedupe

import (
	"context"

	"github.com/jamesbarge/postboxd-sub001/internal/film"
)

// Tx is the set of persistence operations a merge composes. Every call made
// through one Tx belongs to the same transaction.
type Tx interface {
	// GetFilm returns nil, nil when the film does not exist.
	GetFilm(ctx context.Context, id string) (*film.Film, error)
	// LookupByExternalID returns nil, nil when no film holds the identity.
	LookupByExternalID(ctx context.Context, externalID string) (*film.Film, error)
	// ReassignChildren points every child reference at toID and returns how
	// many references moved.
	ReassignChildren(ctx context.Context, fromID, toID string) (int64, error)
	DeleteFilm(ctx context.Context, id string) error
	UpdateFilm(ctx context.Context, id string, update film.Update) error
}

// Repository opens transactions holding exclusive write access for their
// duration. InTx commits when fn returns nil and rolls back otherwise.
type Repository interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
