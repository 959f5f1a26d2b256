// Package textutil canonicalizes film titles and scores how alike two titles are.
//
// Normalize produces the comparison form used everywhere titles are matched:
// NFC-composed, lowercased, punctuation removed, whitespace collapsed, and the
// leading article ("the", "a", "an") stripped. It is idempotent.
//
// Similarity layers three rules over normalized titles:
//   - identical forms score 1.0
//   - a title nested inside a longer one scores 0.8 plus a length-ratio bonus
//   - everything else falls back to normalized Levenshtein distance
//
// Both functions are pure and safe for concurrent use.
package textutil
