// Package dedupe merges duplicate film records into their canonical record.
//
// A merge moves every child reference (screenings, title aliases, review
// items) from the duplicate to the canonical film, then deletes the duplicate.
// All of it happens inside one Repository transaction: either every step
// commits or none does. Persistence failures surface as *RetryableError;
// retrying a merge whose duplicate is already gone returns ErrNotFound rather
// than moving anything twice.
//
// MergeOnBind implements the identity protocol used after an auto-applied match:
// when the matched external identity already belongs to another film, the
// current film is merged into that film instead of being rebound, so an
// external identity never ends up on two films.
package dedupe
