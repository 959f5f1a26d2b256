package testsupport

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jamesbarge/postboxd-sub001/internal/catalog"
	"github.com/jamesbarge/postboxd-sub001/internal/config"
	"github.com/jamesbarge/postboxd-sub001/internal/database"
	"github.com/jamesbarge/postboxd-sub001/internal/film"
	"github.com/jamesbarge/postboxd-sub001/internal/queue"
)

// MustOpenDB opens and migrates the database named by cfg and registers cleanup.
func MustOpenDB(t testing.TB, cfg *config.Config) *sql.DB {
	t.Helper()

	db, err := database.OpenAndMigrate(context.Background(), cfg.Paths.DatabasePath)
	if err != nil {
		t.Fatalf("database.OpenAndMigrate: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// MustOpenStores opens the catalog and review queue over one database.
func MustOpenStores(t testing.TB, cfg *config.Config) (*catalog.Store, *queue.Store) {
	t.Helper()

	db := MustOpenDB(t, cfg)
	return catalog.New(db), queue.New(db)
}

// NewFilm inserts a film for tests using the provided store.
func NewFilm(t testing.TB, store *catalog.Store, f film.Film) *film.Film {
	t.Helper()

	created, err := store.InsertFilm(context.Background(), f)
	if err != nil {
		t.Fatalf("store.InsertFilm: %v", err)
	}
	return created
}
