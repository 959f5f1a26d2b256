// Package logging assembles the structured slog loggers used across postboxd.
//
// It owns the console and JSON handlers, rotating file output, and the
// context helpers that tag log lines with scrape run, source, and film
// identifiers. Components obtain their logger through NewComponentLogger so
// every line carries a component attribute; tests use NewNop.
package logging
