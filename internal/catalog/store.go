package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jamesbarge/postboxd-sub001/internal/database"
	"github.com/jamesbarge/postboxd-sub001/internal/film"
	"github.com/jamesbarge/postboxd-sub001/internal/textutil"
)

// ErrInvalidInput reports a write rejected before reaching the database.
var ErrInvalidInput = errors.New("invalid catalog input")

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is the SQLite catalog.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New wraps an open, migrated database.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// DB exposes the underlying handle for packages sharing the database.
func (s *Store) DB() *sql.DB {
	return s.db
}

const filmColumns = "id, title, year, external_id, poster_url, synopsis, imdb_id, letterboxd_url, created_at, updated_at"

func scanFilm(scanner interface{ Scan(dest ...any) error }) (*film.Film, error) {
	var (
		f          film.Film
		year       sql.NullInt64
		externalID sql.NullString
		poster     sql.NullString
		synopsis   sql.NullString
		imdbID     sql.NullString
		letterboxd sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&f.ID, &f.Title, &year, &externalID, &poster, &synopsis, &imdbID, &letterboxd, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	f.Year = database.IntPtr(year)
	f.ExternalID = externalID.String
	f.PosterURL = poster.String
	f.Synopsis = synopsis.String
	f.IMDbID = imdbID.String
	f.LetterboxdURL = letterboxd.String
	if created, err := database.ParseTime(createdRaw); err == nil {
		f.CreatedAt = created
	}
	if updated, err := database.ParseTime(updatedRaw); err == nil {
		f.UpdatedAt = updated
	}
	return &f, nil
}

func getFilm(ctx context.Context, q querier, id string) (*film.Film, error) {
	row := q.QueryRowContext(ctx, `SELECT `+filmColumns+` FROM films WHERE id = ?`, id)
	f, err := scanFilm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get film: %w", err)
	}
	return f, nil
}

func lookupByExternalID(ctx context.Context, q querier, externalID string) (*film.Film, error) {
	row := q.QueryRowContext(ctx, `SELECT `+filmColumns+` FROM films WHERE external_id = ?`, externalID)
	f, err := scanFilm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup by external id: %w", err)
	}
	return f, nil
}

func updateFilm(ctx context.Context, q querier, id string, update film.Update, now time.Time) error {
	var (
		sets []string
		args []any
	)
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.Year != nil {
		add("year", *update.Year)
	}
	if update.ExternalID != nil {
		add("external_id", database.NullableString(*update.ExternalID))
	}
	if update.PosterURL != nil {
		add("poster_url", database.NullableString(*update.PosterURL))
	}
	if update.Synopsis != nil {
		add("synopsis", database.NullableString(*update.Synopsis))
	}
	if update.IMDbID != nil {
		add("imdb_id", database.NullableString(*update.IMDbID))
	}
	if update.LetterboxdURL != nil {
		add("letterboxd_url", database.NullableString(*update.LetterboxdURL))
	}
	if len(sets) == 0 {
		return nil
	}
	add("updated_at", database.FormatTime(now))
	args = append(args, id)

	res, err := q.ExecContext(ctx, `UPDATE films SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update film: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update film %s: no such film", id)
	}
	return nil
}

// InsertFilm stores a new film, assigning an id when f.ID is blank.
func (s *Store) InsertFilm(ctx context.Context, f film.Film) (*film.Film, error) {
	f.Title = strings.TrimSpace(f.Title)
	if f.Title == "" {
		return nil, fmt.Errorf("%w: film title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(f.ID) == "" {
		f.ID = uuid.NewString()
	}
	now := s.now().UTC()
	f.CreatedAt, f.UpdatedAt = now, now
	err := database.RetryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO films (`+filmColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			f.ID,
			f.Title,
			database.NullableInt(f.Year),
			database.NullableString(strings.TrimSpace(f.ExternalID)),
			database.NullableString(f.PosterURL),
			database.NullableString(f.Synopsis),
			database.NullableString(f.IMDbID),
			database.NullableString(f.LetterboxdURL),
			database.FormatTime(now),
			database.FormatTime(now),
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert film: %w", err)
	}
	return &f, nil
}

// GetFilm returns nil, nil when the film does not exist.
func (s *Store) GetFilm(ctx context.Context, id string) (*film.Film, error) {
	return getFilm(ctx, s.db, id)
}

// FindByExternalID returns nil, nil when no film holds externalID.
func (s *Store) FindByExternalID(ctx context.Context, externalID string) (*film.Film, error) {
	return lookupByExternalID(ctx, s.db, externalID)
}

// ListFilms returns films ordered by title. A limit <= 0 returns every film.
func (s *Store) ListFilms(ctx context.Context, limit int) ([]*film.Film, error) {
	query := `SELECT ` + filmColumns + ` FROM films ORDER BY title, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list films: %w", err)
	}
	defer rows.Close()

	var films []*film.Film
	for rows.Next() {
		f, err := scanFilm(rows)
		if err != nil {
			return nil, fmt.Errorf("scan film: %w", err)
		}
		films = append(films, f)
	}
	return films, rows.Err()
}

// UpdateFilm applies update outside of any merge transaction.
func (s *Store) UpdateFilm(ctx context.Context, id string, update film.Update) error {
	return database.RetryOnBusy(ctx, func() error {
		return updateFilm(ctx, s.db, id, update, s.now().UTC())
	})
}

// Alias is a raw listing title recorded against the film it resolved to.
type Alias struct {
	FilmID          string
	NormalizedTitle string
	RawTitle        string
	SourceID        string
	CreatedAt       time.Time
}

// AddAlias records rawTitle as a known listing title for filmID. Titles that
// normalize to an alias the film already has are ignored.
func (s *Store) AddAlias(ctx context.Context, filmID, rawTitle, sourceID string) error {
	normalized := textutil.Normalize(rawTitle)
	if normalized == "" {
		return nil
	}
	return database.RetryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO film_aliases (film_id, normalized_title, raw_title, source_id, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			filmID, normalized, strings.TrimSpace(rawTitle), database.NullableString(sourceID), database.FormatTime(s.now()))
		if err != nil {
			return fmt.Errorf("add alias: %w", err)
		}
		return nil
	})
}

// Aliases lists the aliases recorded for filmID.
func (s *Store) Aliases(ctx context.Context, filmID string) ([]Alias, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT film_id, normalized_title, raw_title, source_id, created_at
		 FROM film_aliases WHERE film_id = ? ORDER BY normalized_title`, filmID)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	defer rows.Close()

	var aliases []Alias
	for rows.Next() {
		var (
			a          Alias
			sourceID   sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&a.FilmID, &a.NormalizedTitle, &a.RawTitle, &sourceID, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		a.SourceID = sourceID.String
		a.CreatedAt, _ = database.ParseTime(createdRaw)
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}
