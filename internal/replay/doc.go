// Package replay rebuilds the domain tables from the ledger.
//
// Replay walks event_log in ascending id order and re-applies every event
// to empty tables: created events insert the recorded row with its original
// id and timestamps, updated events apply the recorded sibling shifts and
// overwrite the row, deleted events remove the row and apply their shifts.
// Events whose kind this build does not recognize are skipped with a
// warning.
//
// Engine wraps truncate and replay in a single maintenance transaction so a
// rewind either completes or leaves the tables untouched.
package replay
