package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jamesbarge/postboxd-sub001/internal/database"
)

// Screening is one listed showing of a film at a cinema.
type Screening struct {
	ID         string
	FilmID     string
	SourceID   string
	Cinema     string
	StartsAt   time.Time
	BookingURL string
	CreatedAt  time.Time
}

// InsertScreening stores a screening, assigning an id when blank.
func (s *Store) InsertScreening(ctx context.Context, sc Screening) (*Screening, error) {
	if strings.TrimSpace(sc.FilmID) == "" || strings.TrimSpace(sc.SourceID) == "" || strings.TrimSpace(sc.Cinema) == "" {
		return nil, fmt.Errorf("%w: screening needs film, source, and cinema", ErrInvalidInput)
	}
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	sc.CreatedAt = s.now().UTC()
	err := database.RetryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO screenings (id, film_id, source_id, cinema, starts_at, booking_url, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sc.ID, sc.FilmID, sc.SourceID, sc.Cinema, database.FormatTime(sc.StartsAt),
			database.NullableString(sc.BookingURL), database.FormatTime(sc.CreatedAt))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert screening: %w", err)
	}
	return &sc, nil
}

// Screenings lists the screenings attached to filmID ordered by start time.
func (s *Store) Screenings(ctx context.Context, filmID string) ([]Screening, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, film_id, source_id, cinema, starts_at, booking_url, created_at
		 FROM screenings WHERE film_id = ? ORDER BY starts_at, id`, filmID)
	if err != nil {
		return nil, fmt.Errorf("list screenings: %w", err)
	}
	defer rows.Close()

	var out []Screening
	for rows.Next() {
		var (
			sc                    Screening
			booking               sql.NullString
			startsRaw, createdRaw string
		)
		if err := rows.Scan(&sc.ID, &sc.FilmID, &sc.SourceID, &sc.Cinema, &startsRaw, &booking, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan screening: %w", err)
		}
		sc.BookingURL = booking.String
		sc.StartsAt, _ = database.ParseTime(startsRaw)
		sc.CreatedAt, _ = database.ParseTime(createdRaw)
		out = append(out, sc)
	}
	return out, rows.Err()
}
