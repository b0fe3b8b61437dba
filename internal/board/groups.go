package board

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/hull/internal/ledger"
)

const groupColumns = `id, name, position, created_at, updated_at`

// firstGroupPosition is the position the first group gets.
const firstGroupPosition = 1

// CreateGroup appends a group after the current last one.
func (g *Gateway) CreateGroup(ctx context.Context, in NewGroup) (Group, error) {
	const op = "group.create"
	if err := in.normalize(op); err != nil {
		return Group{}, err
	}

	var out Group
	err := g.mutate(ctx, op, func(tx *sql.Tx, now time.Time) (*change, error) {
		pos, err := GroupOrdering.next(ctx, tx, nil, firstGroupPosition)
		if err != nil {
			return nil, err
		}
		row := tx.QueryRowContext(ctx, `
			INSERT INTO wip_groups (name, position, created_at, updated_at)
			VALUES (?, ?, ?, ?)
			RETURNING `+groupColumns,
			in.Name, pos, ts(now), ts(now),
		)
		if out, err = scanGroup(row); err != nil {
			return nil, fmt.Errorf("insert group: %w", err)
		}
		return &change{kind: ledger.KindWipGroupCreated, payload: GroupEvent{Group: out}}, nil
	})
	return out, err
}

// ListGroups returns all groups by position.
func (g *Gateway) ListGroups(ctx context.Context) ([]Group, error) {
	rows, err := g.store.DB().QueryContext(ctx, `SELECT `+groupColumns+` FROM wip_groups ORDER BY position, id`)
	if err != nil {
		return nil, classify("group.list", fmt.Errorf("query groups: %w", err))
	}
	defer rows.Close()

	groups := []Group{}
	for rows.Next() {
		gr, err := scanGroup(rows)
		if err != nil {
			return nil, classify("group.list", err)
		}
		groups = append(groups, gr)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("group.list", fmt.Errorf("iterate groups: %w", err))
	}
	return groups, nil
}

// GetGroup returns one group.
func (g *Gateway) GetGroup(ctx context.Context, id int64) (Group, error) {
	gr, err := findGroup(ctx, g.store.DB(), id)
	return gr, classify("group.get", err)
}

// UpdateGroup applies the non-nil fields of p. A new position is applied as
// a reorder among all groups.
func (g *Gateway) UpdateGroup(ctx context.Context, id int64, p GroupPatch) (Group, error) {
	const op = "group.update"
	if err := p.normalize(op); err != nil {
		return Group{}, err
	}

	var out Group
	err := g.mutate(ctx, op, func(tx *sql.Tx, now time.Time) (*change, error) {
		cur, err := findGroup(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		next := cur
		var shifts []Shift

		if p.Name != nil {
			next.Name = *p.Name
		}
		if p.Position != nil {
			pos, s, err := GroupOrdering.move(ctx, tx, nil, id, cur.Position, *p.Position)
			if err != nil {
				return nil, err
			}
			next.Position = pos
			if s != nil {
				shifts = append(shifts, *s)
			}
		}
		next.UpdatedAt = ledger.TimeOf(now)

		if out, err = writeGroup(ctx, tx, next); err != nil {
			return nil, err
		}
		return &change{kind: ledger.KindWipGroupUpdated, payload: GroupEvent{Group: out, Shifts: shifts}}, nil
	})
	return out, err
}

// ReorderGroup moves a group to pos among all groups. Moving a group to its
// current position is a no-op and appends no event.
func (g *Gateway) ReorderGroup(ctx context.Context, id, pos int64) (Group, error) {
	const op = "group.reorder"

	var out Group
	err := g.mutate(ctx, op, func(tx *sql.Tx, now time.Time) (*change, error) {
		cur, err := findGroup(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		target, s, err := GroupOrdering.move(ctx, tx, nil, id, cur.Position, pos)
		if err != nil {
			return nil, err
		}
		if s == nil {
			out = cur
			return nil, nil
		}
		cur.Position = target
		cur.UpdatedAt = ledger.TimeOf(now)
		if out, err = writeGroup(ctx, tx, cur); err != nil {
			return nil, err
		}
		return &change{kind: ledger.KindWipGroupUpdated, payload: GroupEvent{Group: out, Shifts: []Shift{*s}}}, nil
	})
	return out, err
}

// DeleteGroup removes an empty group and closes the gap it leaves. A group
// still referenced by items or workers is a conflict.
func (g *Gateway) DeleteGroup(ctx context.Context, id int64) (bool, error) {
	const op = "group.delete"

	err := g.mutate(ctx, op, func(tx *sql.Tx, now time.Time) (*change, error) {
		cur, err := findGroup(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		var items, workers int
		err = tx.QueryRowContext(ctx, `
			SELECT
				(SELECT COUNT(*) FROM notes WHERE wip_group_id = ?),
				(SELECT COUNT(*) FROM sprites WHERE wip_group_id = ?)
		`, id, id).Scan(&items, &workers)
		if err != nil {
			return nil, fmt.Errorf("count group members: %w", err)
		}
		if items > 0 || workers > 0 {
			return nil, conflict("group", itoa(id), "group still holds %d items and %d workers", items, workers)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM wip_groups WHERE id = ?`, id); err != nil {
			return nil, fmt.Errorf("delete group: %w", err)
		}
		s, err := GroupOrdering.closeGap(ctx, tx, nil, id, cur.Position)
		if err != nil {
			return nil, err
		}
		return &change{kind: ledger.KindWipGroupDeleted, payload: GroupEvent{Group: cur, Shifts: []Shift{s}}}, nil
	})
	return err == nil, err
}

func findGroup(ctx context.Context, q querier, id int64) (Group, error) {
	gr, err := scanGroup(q.QueryRowContext(ctx, `SELECT `+groupColumns+` FROM wip_groups WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Group{}, notFound("group", itoa(id))
	}
	return gr, err
}

func writeGroup(ctx context.Context, tx *sql.Tx, gr Group) (Group, error) {
	row := tx.QueryRowContext(ctx, `
		UPDATE wip_groups
		SET name = ?, position = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+groupColumns,
		gr.Name, gr.Position, ts(gr.UpdatedAt.Time), gr.ID,
	)
	out, err := scanGroup(row)
	if err != nil {
		return Group{}, fmt.Errorf("update group %d: %w", gr.ID, err)
	}
	return out, nil
}

func scanGroup(r rowScanner) (Group, error) {
	var (
		gr               Group
		created, updated string
	)
	if err := r.Scan(&gr.ID, &gr.Name, &gr.Position, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Group{}, err
		}
		return Group{}, fmt.Errorf("scan group: %w", err)
	}
	if err := parseTimes([]*ledger.Time{&gr.CreatedAt, &gr.UpdatedAt}, []string{created, updated}); err != nil {
		return Group{}, fmt.Errorf("scan group %d: %w", gr.ID, err)
	}
	return gr, nil
}
