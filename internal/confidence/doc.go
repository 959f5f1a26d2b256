// Package confidence combines independent match signals into a single score
// and a decision about a proposed film identity.
//
// Four components feed the score with fixed weights: title similarity (0.40),
// release-year agreement (0.25), agreement across independent listing sources
// (0.20), and completeness of auxiliary data (0.15). The weighted sum is
// clamped to [0,1] and rounded to two decimals before the Policy maps it to
// auto_apply, review, or reject.
//
// Scoring is pure and total: auxiliary inputs are clamped rather than
// rejected, and the only failure is ErrInvalidInput for a missing title.
package confidence
