// Package models defines the core domain models for RowFlow.
//
// # Models
//
//   - Entry: one recorded training session, in its canonical (normalized) form
//   - Measure: an optional non-negative quantity (distance, duration, speed)
//   - SessionType: the closed set of training session kinds
//   - Account: a registered user and the storage partition that holds their log
//
// # Design Principles
//
// 1. **Absent is not zero**: numeric fields that were never supplied (or could
// not be parsed) stay absent and render as an empty string.
// 2. **Total parsing**: every Parse* helper in this package returns a fallback
// value instead of an error, so a corrupted stored row can always be read.
// 3. **Append-only**: nothing in the model exposes an update path. Entries and
// accounts are written once.
package models
