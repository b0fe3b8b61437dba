// Package board is the mutation gateway for the task board.
//
// Every mutating call on Gateway performs its table write and its ledger
// append in one transaction: both commit or both roll back. Input is
// validated before the transaction opens.
//
// # Entities
//
//   - Group (table wip_groups): ordered globally by position, 1-based
//   - Item (table notes): ordered by position within its group, 0-based
//   - Worker (table sprites): opaque string id, optional group
//
// # Ordering
//
// Reorders, regroups and deletes keep sibling positions dense. The sibling
// shifts a mutation performed travel with its ledger payload as
// "sibling_shifts", so replay reproduces them from the single event the
// mutation appended.
//
// A reorder to the current position changes nothing and appends no event.
package board
