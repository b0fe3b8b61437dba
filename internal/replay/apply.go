package replay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/hull/internal/board"
	"github.com/roach88/hull/internal/ledger"
)

var errNoID = errors.New("payload has no id")

// apply re-applies one recognized event.
func apply(ctx context.Context, tx *sql.Tx, ev ledger.Event) error {
	switch ev.Kind {
	case ledger.KindWipGroupCreated, ledger.KindWipGroupUpdated, ledger.KindWipGroupDeleted:
		p, err := ledger.Decode[board.GroupEvent](ev)
		if err != nil {
			return err
		}
		if p.ID == 0 {
			return &ledger.DecodeError{EventID: ev.ID, Tag: ev.Tag, Err: errNoID}
		}
		return applyGroup(ctx, tx, ev, p)

	case ledger.KindNoteCreated, ledger.KindNoteUpdated, ledger.KindNoteDeleted:
		p, err := ledger.Decode[board.ItemEvent](ev)
		if err != nil {
			return err
		}
		if p.ID == 0 {
			return &ledger.DecodeError{EventID: ev.ID, Tag: ev.Tag, Err: errNoID}
		}
		return applyItem(ctx, tx, ev, p)

	case ledger.KindSpriteCreated, ledger.KindSpriteUpdated, ledger.KindSpriteDeleted:
		p, err := ledger.Decode[board.Worker](ev)
		if err != nil {
			return err
		}
		if p.ID == "" {
			return &ledger.DecodeError{EventID: ev.ID, Tag: ev.Tag, Err: errNoID}
		}
		return applyWorker(ctx, tx, ev, p)
	}
	return fmt.Errorf("event %d: no handler for %s", ev.ID, ev.Tag)
}

func applyGroup(ctx context.Context, tx *sql.Tx, ev ledger.Event, p board.GroupEvent) error {
	var err error
	switch ev.Kind {
	case ledger.KindWipGroupCreated:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO wip_groups (id, name, position, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Position, stamp(p.CreatedAt, ev), stamp(p.UpdatedAt, ev),
		)
	case ledger.KindWipGroupUpdated:
		if err = board.GroupOrdering.ApplyAll(ctx, tx, p.ID, p.Shifts); err != nil {
			break
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE wip_groups SET name = ?, position = ?, updated_at = ? WHERE id = ?`,
			p.Name, p.Position, stamp(p.UpdatedAt, ev), p.ID,
		)
	case ledger.KindWipGroupDeleted:
		if _, err = tx.ExecContext(ctx, `DELETE FROM wip_groups WHERE id = ?`, p.ID); err != nil {
			break
		}
		err = board.GroupOrdering.ApplyAll(ctx, tx, p.ID, p.Shifts)
	}
	if err != nil {
		return fmt.Errorf("event %d (%s) group %d: %w", ev.ID, ev.Tag, p.ID, err)
	}
	return nil
}

func applyItem(ctx context.Context, tx *sql.Tx, ev ledger.Event, p board.ItemEvent) error {
	var err error
	switch ev.Kind {
	case ledger.KindNoteCreated:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO notes (id, title, color, wip_group_id, position, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Title, p.Color, p.GroupID, p.Position, p.Status, stamp(p.CreatedAt, ev), stamp(p.UpdatedAt, ev),
		)
	case ledger.KindNoteUpdated:
		if err = board.ItemOrdering.ApplyAll(ctx, tx, p.ID, p.Shifts); err != nil {
			break
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE notes
			SET title = ?, color = ?, wip_group_id = ?, position = ?, status = ?, updated_at = ?
			WHERE id = ?`,
			p.Title, p.Color, p.GroupID, p.Position, p.Status, stamp(p.UpdatedAt, ev), p.ID,
		)
	case ledger.KindNoteDeleted:
		if _, err = tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, p.ID); err != nil {
			break
		}
		err = board.ItemOrdering.ApplyAll(ctx, tx, p.ID, p.Shifts)
	}
	if err != nil {
		return fmt.Errorf("event %d (%s) item %d: %w", ev.ID, ev.Tag, p.ID, err)
	}
	return nil
}

func applyWorker(ctx context.Context, tx *sql.Tx, ev ledger.Event, w board.Worker) error {
	var err error
	switch ev.Kind {
	case ledger.KindSpriteCreated:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sprites (id, sigil, status, wip_group_id, last_seen, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			w.ID, w.Sigil, w.Status, w.GroupID, stamp(w.LastSeen, ev), stamp(w.CreatedAt, ev), stamp(w.UpdatedAt, ev),
		)
	case ledger.KindSpriteUpdated:
		_, err = tx.ExecContext(ctx, `
			UPDATE sprites
			SET sigil = ?, status = ?, wip_group_id = ?, last_seen = ?, updated_at = ?
			WHERE id = ?`,
			w.Sigil, w.Status, w.GroupID, stamp(w.LastSeen, ev), stamp(w.UpdatedAt, ev), w.ID,
		)
	case ledger.KindSpriteDeleted:
		_, err = tx.ExecContext(ctx, `DELETE FROM sprites WHERE id = ?`, w.ID)
	}
	if err != nil {
		return fmt.Errorf("event %d (%s) worker %s: %w", ev.ID, ev.Tag, w.ID, err)
	}
	return nil
}

// stamp formats t, falling back to the event time for payloads that omit it.
func stamp(t ledger.Time, ev ledger.Event) string {
	if t.IsZero() {
		return ledger.FormatTime(ev.Timestamp)
	}
	return ledger.FormatTime(t.Time)
}
