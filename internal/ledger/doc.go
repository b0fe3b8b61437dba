// Package ledger is the append-only event log every domain mutation writes to.
//
// An Event is {id, timestamp, kind, payload}. Ids are assigned by SQLite
// AUTOINCREMENT and are strictly increasing; rows are never updated or deleted.
//
// Append only accepts a *sql.Tx: a ledger record is always part of the
// caller's transaction and is never committed on its own.
//
// Kinds form a closed set. Rows written by a newer schema whose tag this
// build does not know read back as KindUnrecognized with the raw tag and
// payload preserved, so an older reader never fails on them.
package ledger
