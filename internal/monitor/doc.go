// Package monitor runs the scheduled scraper health check.
//
// Each pass recomputes every configured source's baseline from recorded
// scrape runs, evaluates the latest day against it, stores the new baselines,
// and publishes an ntfy alert for each unhealthy source. Run repeats the pass
// on a fixed interval and holds a flock so only one monitor runs per state
// directory.
package monitor
