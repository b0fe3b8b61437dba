package board

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/hull/internal/ledger"
	"github.com/roach88/hull/internal/notify"
)

const itemColumns = `id, title, color, wip_group_id, position, status, created_at, updated_at`

// firstItemPosition is the position the first item of a group gets.
const firstItemPosition = 0

// CreateItem appends an item at the end of its group.
func (g *Gateway) CreateItem(ctx context.Context, in NewItem) (Item, error) {
	const op = "item.create"
	if err := in.normalize(op); err != nil {
		return Item{}, err
	}

	var out Item
	err := g.mutate(ctx, op, func(tx *sql.Tx, now time.Time) (*change, error) {
		ok, err := groupExists(ctx, tx, in.GroupID)
		if err != nil {
			return nil, fmt.Errorf("lookup group: %w", err)
		}
		if !ok {
			return nil, notFound("group", itoa(in.GroupID))
		}
		pos, err := ItemOrdering.next(ctx, tx, &in.GroupID, firstItemPosition)
		if err != nil {
			return nil, err
		}
		row := tx.QueryRowContext(ctx, `
			INSERT INTO notes (title, color, wip_group_id, position, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING `+itemColumns,
			in.Title, in.Color, in.GroupID, pos, DefaultItemStatus, ts(now), ts(now),
		)
		if out, err = scanItem(row); err != nil {
			return nil, fmt.Errorf("insert item: %w", err)
		}
		return &change{kind: ledger.KindNoteCreated, payload: ItemEvent{Item: out}}, nil
	})
	return out, err
}

// ListItems returns every item, grouped and ordered by position.
func (g *Gateway) ListItems(ctx context.Context) ([]Item, error) {
	items, err := queryItems(ctx, g.store.DB(), `SELECT `+itemColumns+` FROM notes ORDER BY wip_group_id, position, id`)
	return items, classify("item.list", err)
}

// ListItemsByGroup returns the items of one group by position.
func (g *Gateway) ListItemsByGroup(ctx context.Context, groupID int64) ([]Item, error) {
	items, err := queryItems(ctx, g.store.DB(),
		`SELECT `+itemColumns+` FROM notes WHERE wip_group_id = ? ORDER BY position, id`, groupID)
	return items, classify("item.list", err)
}

// GetItem returns one item.
func (g *Gateway) GetItem(ctx context.Context, id int64) (Item, error) {
	it, err := findItem(ctx, g.store.DB(), id)
	return it, classify("item.get", err)
}

// UpdateItem applies the non-nil fields of p.
//
// Moving to another group closes the gap in the old group and appends the
// item to the new one; Position, if set, is then applied as a reorder in
// the item's (new) group. A group change is announced after commit.
func (g *Gateway) UpdateItem(ctx context.Context, id int64, p ItemPatch) (Item, error) {
	const op = "item.update"
	if err := p.normalize(op); err != nil {
		return Item{}, err
	}

	var out Item
	err := g.mutate(ctx, op, func(tx *sql.Tx, now time.Time) (*change, error) {
		cur, err := findItem(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		next := cur
		var shifts []Shift

		if p.Title != nil {
			next.Title = *p.Title
		}
		if p.Color != nil {
			next.Color = *p.Color
		}
		if p.Status != nil {
			next.Status = *p.Status
		}

		regrouped := p.GroupID != nil && *p.GroupID != cur.GroupID
		if regrouped {
			s, pos, err := regroupItem(ctx, tx, cur, *p.GroupID)
			if err != nil {
				return nil, err
			}
			shifts = append(shifts, s)
			next.GroupID, next.Position = *p.GroupID, pos
		}
		if p.Position != nil {
			pos, s, err := ItemOrdering.move(ctx, tx, &next.GroupID, id, next.Position, *p.Position)
			if err != nil {
				return nil, err
			}
			next.Position = pos
			if s != nil {
				shifts = append(shifts, *s)
			}
		}
		next.UpdatedAt = ledger.TimeOf(now)

		if out, err = writeItem(ctx, tx, next); err != nil {
			return nil, err
		}
		c := &change{kind: ledger.KindNoteUpdated, payload: ItemEvent{Item: out, Shifts: shifts}}
		if regrouped {
			from, to := cur.GroupID, out.GroupID
			c.after = []notify.Notification{reassigned("note", itoa(id), &from, &to, now)}
		}
		return c, nil
	})
	return out, err
}

// ReorderItem moves an item to pos within its group. Moving an item to its
// current position is a no-op and appends no event.
func (g *Gateway) ReorderItem(ctx context.Context, id, pos int64) (Item, error) {
	const op = "item.reorder"

	var out Item
	err := g.mutate(ctx, op, func(tx *sql.Tx, now time.Time) (*change, error) {
		cur, err := findItem(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		target, s, err := ItemOrdering.move(ctx, tx, &cur.GroupID, id, cur.Position, pos)
		if err != nil {
			return nil, err
		}
		if s == nil {
			out = cur
			return nil, nil
		}
		cur.Position = target
		cur.UpdatedAt = ledger.TimeOf(now)
		if out, err = writeItem(ctx, tx, cur); err != nil {
			return nil, err
		}
		return &change{kind: ledger.KindNoteUpdated, payload: ItemEvent{Item: out, Shifts: []Shift{*s}}}, nil
	})
	return out, err
}

// DeleteItem removes an item and closes the gap it leaves in its group.
func (g *Gateway) DeleteItem(ctx context.Context, id int64) (bool, error) {
	const op = "item.delete"

	err := g.mutate(ctx, op, func(tx *sql.Tx, now time.Time) (*change, error) {
		cur, err := findItem(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id); err != nil {
			return nil, fmt.Errorf("delete item: %w", err)
		}
		s, err := ItemOrdering.closeGap(ctx, tx, &cur.GroupID, id, cur.Position)
		if err != nil {
			return nil, err
		}
		return &change{kind: ledger.KindNoteDeleted, payload: ItemEvent{Item: cur, Shifts: []Shift{s}}}, nil
	})
	return err == nil, err
}

// regroupItem takes cur out of its group and parks it at the end of groupID.
func regroupItem(ctx context.Context, tx *sql.Tx, cur Item, groupID int64) (Shift, int64, error) {
	ok, err := groupExists(ctx, tx, groupID)
	if err != nil {
		return Shift{}, 0, fmt.Errorf("lookup group: %w", err)
	}
	if !ok {
		return Shift{}, 0, notFound("group", itoa(groupID))
	}

	s, err := ItemOrdering.closeGap(ctx, tx, &cur.GroupID, cur.ID, cur.Position)
	if err != nil {
		return Shift{}, 0, err
	}
	pos, err := ItemOrdering.next(ctx, tx, &groupID, firstItemPosition)
	if err != nil {
		return Shift{}, 0, err
	}
	// The row must sit in its new group before a follow-up reorder reads the group's bounds.
	if _, err := tx.ExecContext(ctx,
		`UPDATE notes SET wip_group_id = ?, position = ? WHERE id = ?`, groupID, pos, cur.ID,
	); err != nil {
		return Shift{}, 0, fmt.Errorf("move item %d: %w", cur.ID, err)
	}
	return s, pos, nil
}

func findItem(ctx context.Context, q querier, id int64) (Item, error) {
	it, err := scanItem(q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM notes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, notFound("item", itoa(id))
	}
	return it, err
}

func queryItems(ctx context.Context, q querier, query string, args ...any) ([]Item, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

func writeItem(ctx context.Context, tx *sql.Tx, it Item) (Item, error) {
	row := tx.QueryRowContext(ctx, `
		UPDATE notes
		SET title = ?, color = ?, wip_group_id = ?, position = ?, status = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+itemColumns,
		it.Title, it.Color, it.GroupID, it.Position, it.Status, ts(it.UpdatedAt.Time), it.ID,
	)
	out, err := scanItem(row)
	if err != nil {
		return Item{}, fmt.Errorf("update item %d: %w", it.ID, err)
	}
	return out, nil
}

func scanItem(r rowScanner) (Item, error) {
	var (
		it               Item
		created, updated string
	)
	if err := r.Scan(&it.ID, &it.Title, &it.Color, &it.GroupID, &it.Position, &it.Status, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, err
		}
		return Item{}, fmt.Errorf("scan item: %w", err)
	}
	if err := parseTimes([]*ledger.Time{&it.CreatedAt, &it.UpdatedAt}, []string{created, updated}); err != nil {
		return Item{}, fmt.Errorf("scan item %d: %w", it.ID, err)
	}
	return it, nil
}
