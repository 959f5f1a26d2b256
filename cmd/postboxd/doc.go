// Command postboxd resolves scraped cinema listings to canonical films,
// merges duplicates, works the review queue, and monitors scraper health.
//
// Every command reads config.toml (see `postboxd config init`) and opens the
// SQLite database named there. Logs go to stderr and to the rotating file in
// the configured log directory; command output goes to stdout as tables or,
// with --json, as JSON.
package main
