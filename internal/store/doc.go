// Package store owns the SQLite database behind hull.
//
// The database holds two kinds of tables:
//   - event_log: the append-only ledger (see package ledger)
//   - wip_groups, notes, sprites: domain tables, rebuildable from the ledger
//
// # Transactions
//
// Every mutation runs through WithTx, which opens one short transaction and
// rolls back on the first error. Rewind and emergency blow run through
// Maintenance, which holds the maintenance gate exclusively; while it is held
// or pending, WithTx fails fast with ErrMaintenance instead of queueing.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The event_log table carries triggers that abort any UPDATE or DELETE.
package store
