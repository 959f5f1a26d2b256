// Package resolution drives listing observations through scoring and applies
// the resulting decision.
//
// A Resolver ranks an observation's candidates with the confidence engine and
// acts on the best one: auto-applied matches bind the external identity to
// the observed film, or merge the film into the one already holding that
// identity; review decisions are queued; rejections are only logged. Batch
// runs many observations on a fixed pool of workers, each pacing its calls to
// the candidate Proposer with its own rate limiter.
package resolution
