// Package catalog persists films, screenings, title aliases, scrape runs, and
// source baselines in SQLite.
//
// Store implements dedupe.Repository, running merges inside IMMEDIATE
// transactions, and anomaly.HistorySource over the scrape_runs table.
package catalog
