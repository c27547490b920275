// Package store provides SQLite-backed storage for saved definitions and
// evaluation history.
//
// # Tables
//
//   - definitions: `def` and `def-ty` source text keyed by (kind, name)
//   - history: one row per top-level evaluation, successful or not
//
// # Critical Patterns
//
// Logical ordering: rows are ordered by a seq INTEGER assigned inside the
// writing transaction, never by wall-clock timestamps. Definitions replay in
// seq order, so a redefinition takes a fresh seq and replays after whatever
// it now depends on.
//
// Results: history stores the result value as canonical CBOR together with
// its content hash (value.ContentHash), so identical results can be found
// without decoding.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
