// Package config loads, normalizes, and validates postboxd configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// POSTBOXD_DB_PATH and POSTBOXD_NTFY_TOPIC. Matching thresholds, batch worker
// sizing, anomaly tiers, and monitor cadence are all discovered in one pass.
package config
