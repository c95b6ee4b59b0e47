// Package store provides SQLite-backed durable storage for partsel.
//
// The store holds two things:
//   - Catalog rows: one row per part, grouped by table, in source order
//   - Runs: the inputs and output digest of past evaluations
//
// # Determinism
//
//   - Runs are ordered by seq INTEGER (insert order), never by timestamps
//   - Catalog rows are ordered by (table_name, seq)
//   - Answers, columns, cells and totals are stored as RFC 8785 canonical
//     JSON so equal content always has equal bytes
//
// A stored run can be re-evaluated against the current rules and catalog
// with VerifyRun to prove the output has not drifted.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
