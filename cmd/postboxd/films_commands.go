package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesbarge/postboxd-sub001/internal/film"
)

type filmView struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Year          *int     `json:"year,omitempty"`
	ExternalID    string   `json:"external_id,omitempty"`
	IMDbID        string   `json:"imdb_id,omitempty"`
	LetterboxdURL string   `json:"letterboxd_url,omitempty"`
	Aliases       []string `json:"aliases,omitempty"`
	Screenings    int      `json:"screenings"`
}

func toFilmView(f *film.Film) filmView {
	return filmView{
		ID:            f.ID,
		Title:         f.Title,
		Year:          f.Year,
		ExternalID:    f.ExternalID,
		IMDbID:        f.IMDbID,
		LetterboxdURL: f.LetterboxdURL,
	}
}

func newFilmsCommand(ctx *commandContext) *cobra.Command {
	filmsCmd := &cobra.Command{
		Use:   "films",
		Short: "Inspect the film catalog",
	}

	filmsCmd.AddCommand(newFilmsListCommand(ctx))
	filmsCmd.AddCommand(newFilmsShowCommand(ctx))

	return filmsCmd
}

func newFilmsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog films ordered by title",
		RunE: func(cmd *cobra.Command, args []string) error {
			films, _, err := ctx.stores(cmd.Context())
			if err != nil {
				return err
			}
			list, err := films.ListFilms(cmd.Context(), limit)
			if err != nil {
				return err
			}
			views := make([]filmView, 0, len(list))
			for _, f := range list {
				views = append(views, toFilmView(f))
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No films")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{v.ID, v.Title, formatYear(v.Year), dash(v.ExternalID)})
			}
			renderTable(out, []string{"ID", "Title", "Year", "External ID"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft})
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum films to list (0 lists all)")
	return cmd
}

func newFilmsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a film with its aliases and screening count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			films, _, err := ctx.stores(cmd.Context())
			if err != nil {
				return err
			}
			f, err := films.GetFilm(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if f == nil {
				return fmt.Errorf("film %s not found", args[0])
			}
			aliases, err := films.Aliases(cmd.Context(), f.ID)
			if err != nil {
				return err
			}
			screenings, err := films.Screenings(cmd.Context(), f.ID)
			if err != nil {
				return err
			}

			view := toFilmView(f)
			view.Screenings = len(screenings)
			for _, a := range aliases {
				view.Aliases = append(view.Aliases, a.RawTitle)
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", view.Title, formatYear(view.Year))
			fmt.Fprintf(out, "ID:          %s\n", view.ID)
			fmt.Fprintf(out, "External ID: %s\n", dash(view.ExternalID))
			fmt.Fprintf(out, "Bound:       %s\n", yesNo(f.Bound()))
			fmt.Fprintf(out, "Screenings:  %d\n", view.Screenings)
			for _, alias := range view.Aliases {
				fmt.Fprintf(out, "Alias:       %s\n", alias)
			}
			return nil
		},
	}
}
