// Package sanitizer normalizes free-text booking input before validation and
// storage.
//
// All functions are idempotent: applying them twice gives the same result as
// applying them once. Invalid input is never an error here; validation decides
// what to reject.
//
// Normalization includes:
//   - Names and titles: strip control characters, collapse whitespace, trim
//   - Emails: trim and lowercase
//   - Keys: lowercase plus whitespace collapsing, for case-insensitive lookups
package sanitizer
