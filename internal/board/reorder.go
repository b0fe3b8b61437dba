package board

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Shift moves every sibling in scope whose position lies in [Lo, Hi] by
// Delta. A nil Hi leaves the range open at the top. Scope is the group id
// for items and nil for groups.
type Shift struct {
	Scope *int64 `json:"scope,omitempty"`
	Lo    int64  `json:"lo"`
	Hi    *int64 `json:"hi,omitempty"`
	Delta int64  `json:"delta"`
}

// Ordering is one positional sibling collection.
type Ordering struct {
	table    string
	scopeCol string
}

var (
	// ItemOrdering orders notes within their group.
	ItemOrdering = Ordering{table: "notes", scopeCol: "wip_group_id"}

	// GroupOrdering orders wip_groups globally.
	GroupOrdering = Ordering{table: "wip_groups"}
)

func (o Ordering) scoped() bool { return o.scopeCol != "" }

func (o Ordering) scopeClause(scope *int64) (string, []any, error) {
	if !o.scoped() {
		return "1 = 1", nil, nil
	}
	if scope == nil {
		return "", nil, fmt.Errorf("%s ordering requires a scope", o.table)
	}
	return o.scopeCol + " = ?", []any{*scope}, nil
}

// bounds returns the lowest and highest position in scope; ok is false for an empty scope.
func (o Ordering) bounds(ctx context.Context, q querier, scope *int64) (lo, hi int64, ok bool, err error) {
	where, args, err := o.scopeClause(scope)
	if err != nil {
		return 0, 0, false, err
	}
	var minPos, maxPos sql.NullInt64
	err = q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT MIN(position), MAX(position) FROM %s WHERE %s`, o.table, where),
		args...,
	).Scan(&minPos, &maxPos)
	if err != nil {
		return 0, 0, false, fmt.Errorf("%s bounds: %w", o.table, err)
	}
	if !maxPos.Valid {
		return 0, 0, false, nil
	}
	return minPos.Int64, maxPos.Int64, true, nil
}

// next returns the position a new member of scope gets: one past the
// current maximum, or first for an empty scope.
func (o Ordering) next(ctx context.Context, q querier, scope *int64, first int64) (int64, error) {
	_, hi, ok, err := o.bounds(ctx, q, scope)
	if err != nil {
		return 0, err
	}
	if !ok {
		return first, nil
	}
	return hi + 1, nil
}

// Apply runs one shift, leaving the row with id exclude untouched.
func (o Ordering) Apply(ctx context.Context, tx *sql.Tx, exclude any, s Shift) error {
	if s.Delta == 0 {
		return errors.New("shift delta must be non-zero")
	}
	where, args, err := o.scopeClause(s.Scope)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET position = position + ? WHERE %s AND position >= ?", o.table, where)
	params := append([]any{s.Delta}, args...)
	params = append(params, s.Lo)
	if s.Hi != nil {
		b.WriteString(" AND position <= ?")
		params = append(params, *s.Hi)
	}
	b.WriteString(" AND id != ?")
	params = append(params, exclude)

	if _, err := tx.ExecContext(ctx, b.String(), params...); err != nil {
		return fmt.Errorf("shift %s: %w", o.table, err)
	}
	return nil
}

// ApplyAll runs shifts in order.
func (o Ordering) ApplyAll(ctx context.Context, tx *sql.Tx, exclude any, shifts []Shift) error {
	for _, s := range shifts {
		if err := o.Apply(ctx, tx, exclude, s); err != nil {
			return err
		}
	}
	return nil
}

// move shifts the siblings of the row id so it can take target, and
// returns the clamped target. The caller writes the row's own position.
// target is clamped into the occupied range of the scope; a target equal
// to old returns a nil shift and touches nothing.
//
//	target < old: siblings in [target, old) move down one slot (+1)
//	target > old: siblings in (old, target] move up one slot (-1)
func (o Ordering) move(ctx context.Context, tx *sql.Tx, scope *int64, id any, old, target int64) (int64, *Shift, error) {
	scope = clone(scope)
	lo, hi, ok, err := o.bounds(ctx, tx, scope)
	if err != nil {
		return 0, nil, err
	}
	if !ok {
		return 0, nil, fmt.Errorf("move in empty %s scope", o.table)
	}
	target = max(target, lo, 0)
	target = min(target, hi)

	var s Shift
	switch {
	case target < old:
		top := old - 1
		s = Shift{Scope: scope, Lo: target, Hi: &top, Delta: 1}
	case target > old:
		top := target
		s = Shift{Scope: scope, Lo: old + 1, Hi: &top, Delta: -1}
	default:
		return old, nil, nil
	}

	if err := o.Apply(ctx, tx, id, s); err != nil {
		return 0, nil, err
	}
	return target, &s, nil
}

// closeGap pulls every sibling above pos down one slot after the row id left pos.
func (o Ordering) closeGap(ctx context.Context, tx *sql.Tx, scope *int64, id any, pos int64) (Shift, error) {
	s := Shift{Scope: clone(scope), Lo: pos + 1, Delta: -1}
	return s, o.Apply(ctx, tx, id, s)
}

func clone(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
