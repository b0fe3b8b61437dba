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

const workerColumns = `id, sigil, status, wip_group_id, last_seen, created_at, updated_at`

// CreateWorker registers a worker in Idle status. An id that exists, or that
// the ledger ever handed out, is a conflict.
func (g *Gateway) CreateWorker(ctx context.Context, in NewWorker) (Worker, error) {
	const op = "worker.create"
	if err := in.normalize(op); err != nil {
		return Worker{}, err
	}
	if in.ID == "" {
		in.ID = g.newID()
	}

	var out Worker
	err := g.mutate(ctx, op, func(tx *sql.Tx, now time.Time) (*change, error) {
		used, err := workerIDUsed(ctx, tx, in.ID)
		if err != nil {
			return nil, err
		}
		if used {
			return nil, conflict("worker", in.ID, "id already used")
		}
		if err := checkGroupRef(ctx, tx, in.GroupID); err != nil {
			return nil, err
		}
		row := tx.QueryRowContext(ctx, `
			INSERT INTO sprites (id, sigil, status, wip_group_id, last_seen, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING `+workerColumns,
			in.ID, in.Sigil, WorkerIdle, in.GroupID, ts(now), ts(now), ts(now),
		)
		if out, err = scanWorker(row); err != nil {
			return nil, fmt.Errorf("insert worker: %w", err)
		}
		return &change{kind: ledger.KindSpriteCreated, payload: out}, nil
	})
	return out, err
}

// ListWorkers returns every worker ordered by id.
func (g *Gateway) ListWorkers(ctx context.Context) ([]Worker, error) {
	ws, err := queryWorkers(ctx, g.store.DB(), `SELECT `+workerColumns+` FROM sprites ORDER BY id`)
	return ws, classify("worker.list", err)
}

// ListWorkersByGroup returns the workers assigned to one group.
func (g *Gateway) ListWorkersByGroup(ctx context.Context, groupID int64) ([]Worker, error) {
	ws, err := queryWorkers(ctx, g.store.DB(),
		`SELECT `+workerColumns+` FROM sprites WHERE wip_group_id = ? ORDER BY id`, groupID)
	return ws, classify("worker.list", err)
}

// ListStaleWorkers returns workers in status whose last_seen is before
// cutoff, compared to the millisecond.
func (g *Gateway) ListStaleWorkers(ctx context.Context, status string, cutoff time.Time) ([]Worker, error) {
	ws, err := queryWorkers(ctx, g.store.DB(), `
		SELECT `+workerColumns+` FROM sprites
		WHERE status = ? AND julianday(last_seen) < julianday(?)
		ORDER BY id`, status, ts(cutoff))
	return ws, classify("worker.list", err)
}

// GetWorker returns one worker.
func (g *Gateway) GetWorker(ctx context.Context, id string) (Worker, error) {
	w, err := findWorker(ctx, g.store.DB(), id)
	return w, classify("worker.get", err)
}

// UpdateWorkerStatus sets a worker's status. It counts as a sighting.
func (g *Gateway) UpdateWorkerStatus(ctx context.Context, id, status string) (Worker, error) {
	const op = "worker.status"
	status = normalize(status)
	if err := checkText(op, "status", status, maxShortLen); err != nil {
		return Worker{}, err
	}
	return g.updateWorker(ctx, op, id, func(w *Worker, now time.Time) {
		w.Status = status
		w.LastSeen = ledger.TimeOf(now)
	})
}

// Heartbeat records that a worker was seen.
func (g *Gateway) Heartbeat(ctx context.Context, id string) (Worker, error) {
	return g.updateWorker(ctx, "worker.heartbeat", id, func(w *Worker, now time.Time) {
		w.LastSeen = ledger.TimeOf(now)
	})
}

// MarkIdleIfStale sets a Busy worker whose last_seen is before cutoff back
// to Idle and reports whether it did. The check and the write share one
// transaction, so a status change or heartbeat that lands first wins and
// nothing is logged. last_seen is left alone: the worker was not seen.
func (g *Gateway) MarkIdleIfStale(ctx context.Context, id string, cutoff time.Time) (Worker, bool, error) {
	const op = "worker.mark_idle"

	var (
		out     Worker
		changed bool
	)
	err := g.mutate(ctx, op, func(tx *sql.Tx, now time.Time) (*change, error) {
		cur, err := findWorker(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if cur.Status != WorkerBusy || !cur.LastSeen.Before(cutoff) {
			out = cur
			return nil, nil
		}
		cur.Status = WorkerIdle
		cur.UpdatedAt = ledger.TimeOf(now)
		if out, err = writeWorker(ctx, tx, cur); err != nil {
			return nil, err
		}
		changed = true
		return &change{kind: ledger.KindSpriteUpdated, payload: out}, nil
	})
	return out, changed, err
}

// AssignWorker moves a worker to groupID, or unassigns it when groupID is nil.
// A change of group is announced after commit.
func (g *Gateway) AssignWorker(ctx context.Context, id string, groupID *int64) (Worker, error) {
	const op = "worker.assign"
	if groupID != nil && *groupID <= 0 {
		return Worker{}, invalid(op, "wip_group_id must be positive")
	}

	var out Worker
	err := g.mutate(ctx, op, func(tx *sql.Tx, now time.Time) (*change, error) {
		cur, err := findWorker(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if err := checkGroupRef(ctx, tx, groupID); err != nil {
			return nil, err
		}
		next := cur
		next.GroupID = clone(groupID)
		next.UpdatedAt = ledger.TimeOf(now)
		if out, err = writeWorker(ctx, tx, next); err != nil {
			return nil, err
		}
		c := &change{kind: ledger.KindSpriteUpdated, payload: out}
		if !sameGroup(cur.GroupID, out.GroupID) {
			c.after = []notify.Notification{reassigned("sprite", id, cur.GroupID, clone(out.GroupID), now)}
		}
		return c, nil
	})
	return out, err
}

// DeleteWorker removes a worker.
func (g *Gateway) DeleteWorker(ctx context.Context, id string) (bool, error) {
	const op = "worker.delete"

	err := g.mutate(ctx, op, func(tx *sql.Tx, now time.Time) (*change, error) {
		cur, err := findWorker(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM sprites WHERE id = ?`, id); err != nil {
			return nil, fmt.Errorf("delete worker: %w", err)
		}
		return &change{kind: ledger.KindSpriteDeleted, payload: cur}, nil
	})
	return err == nil, err
}

func (g *Gateway) updateWorker(ctx context.Context, op, id string, apply func(*Worker, time.Time)) (Worker, error) {
	var out Worker
	err := g.mutate(ctx, op, func(tx *sql.Tx, now time.Time) (*change, error) {
		cur, err := findWorker(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		apply(&cur, now)
		cur.UpdatedAt = ledger.TimeOf(now)
		if out, err = writeWorker(ctx, tx, cur); err != nil {
			return nil, err
		}
		return &change{kind: ledger.KindSpriteUpdated, payload: out}, nil
	})
	return out, err
}

// workerIDUsed reports whether id names a live worker or was ever created in the ledger.
func workerIDUsed(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM sprites WHERE id = ?) +
			(SELECT COUNT(*) FROM event_log WHERE event_type = ? AND json_extract(payload, '$.id') = ?)
	`, id, ledger.KindSpriteCreated.String(), id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check worker id: %w", err)
	}
	return n > 0, nil
}

func checkGroupRef(ctx context.Context, q querier, groupID *int64) error {
	if groupID == nil {
		return nil
	}
	ok, err := groupExists(ctx, q, *groupID)
	if err != nil {
		return fmt.Errorf("lookup group: %w", err)
	}
	if !ok {
		return notFound("group", itoa(*groupID))
	}
	return nil
}

func sameGroup(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func findWorker(ctx context.Context, q querier, id string) (Worker, error) {
	w, err := scanWorker(q.QueryRowContext(ctx, `SELECT `+workerColumns+` FROM sprites WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Worker{}, notFound("worker", id)
	}
	return w, err
}

func queryWorkers(ctx context.Context, q querier, query string, args ...any) ([]Worker, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query workers: %w", err)
	}
	defer rows.Close()

	ws := []Worker{}
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		ws = append(ws, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workers: %w", err)
	}
	return ws, nil
}

func writeWorker(ctx context.Context, tx *sql.Tx, w Worker) (Worker, error) {
	row := tx.QueryRowContext(ctx, `
		UPDATE sprites
		SET sigil = ?, status = ?, wip_group_id = ?, last_seen = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+workerColumns,
		w.Sigil, w.Status, w.GroupID, ts(w.LastSeen.Time), ts(w.UpdatedAt.Time), w.ID,
	)
	out, err := scanWorker(row)
	if err != nil {
		return Worker{}, fmt.Errorf("update worker %s: %w", w.ID, err)
	}
	return out, nil
}

func scanWorker(r rowScanner) (Worker, error) {
	var (
		w                      Worker
		group                  sql.NullInt64
		seen, created, updated string
	)
	if err := r.Scan(&w.ID, &w.Sigil, &w.Status, &group, &seen, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Worker{}, err
		}
		return Worker{}, fmt.Errorf("scan worker: %w", err)
	}
	if group.Valid {
		w.GroupID = &group.Int64
	}
	if err := parseTimes([]*ledger.Time{&w.LastSeen, &w.CreatedAt, &w.UpdatedAt}, []string{seen, created, updated}); err != nil {
		return Worker{}, fmt.Errorf("scan worker %s: %w", w.ID, err)
	}
	return w, nil
}
