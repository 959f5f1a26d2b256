// Package queue persists match proposals that need a human decision.
//
// A review item is created when the confidence engine lands between the
// review floor and the auto-apply threshold. Items start pending and end
// approved, rejected, or failed. Approving applies the stored candidate
// through the same bind-or-merge protocol automatic matches use; failures
// are classified with FailureStatus so retryable problems can be retried
// while permanent ones are closed.
//
// Review items share the catalog database. Their film reference is a child
// of the film row, so merging films carries pending reviews to the surviving
// film.
package queue
