package ledger

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DefaultPageSize is the page size Scan uses when none is given.
const DefaultPageSize = 500

// Querier is the read side shared by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Append writes one event inside tx and returns its id. The caller owns the
// transaction; Append never commits.
func Append(ctx context.Context, tx *sql.Tx, kind Kind, payload any, at time.Time) (int64, error) {
	if tx == nil {
		return 0, errors.New("append: transaction is required")
	}
	if !kind.Known() {
		return 0, fmt.Errorf("append: refusing to write kind %s", kind)
	}

	body, err := MarshalPayload(payload)
	if err != nil {
		return 0, fmt.Errorf("append %s: %w", kind, err)
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO event_log (timestamp, event_type, payload)
		VALUES (?, ?, ?)
		RETURNING id
	`, FormatTime(at), kind.String(), body).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append %s: %w", kind, err)
	}
	return id, nil
}

// MarshalPayload encodes v as JSON text with HTML escaping disabled.
func MarshalPayload(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return string(bytes.TrimSpace(buf.Bytes())), nil
}

// ReadPage returns up to limit events with id > afterID in ascending id order.
func ReadPage(ctx context.Context, q Querier, afterID int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, timestamp, event_type, payload
		FROM event_log
		WHERE id > ?
		ORDER BY id ASC
		LIMIT ?
	`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Scan calls fn for every event in ascending id order, reading pageSize
// events at a time. Each page is fully read before fn runs, so fn may write
// through the same transaction. Scan stops at the first error fn returns.
func Scan(ctx context.Context, q Querier, pageSize int, fn func(Event) error) error {
	var after int64
	for {
		page, err := ReadPage(ctx, q, after, pageSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		for _, ev := range page {
			if err := fn(ev); err != nil {
				return err
			}
		}
		after = page[len(page)-1].ID
	}
}

// Get returns a single event by id. Returns sql.ErrNoRows if not found.
func Get(ctx context.Context, q Querier, id int64) (Event, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, timestamp, event_type, payload
		FROM event_log
		WHERE id = ?
	`, id)
	return scanEvent(row)
}

// Count returns the number of events in the ledger.
func Count(ctx context.Context, q Querier) (int64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM event_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// LastID returns the highest event id, or 0 for an empty ledger.
func LastID(ctx context.Context, q Querier) (int64, error) {
	var id int64
	if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM event_log`).Scan(&id); err != nil {
		return 0, fmt.Errorf("last event id: %w", err)
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(r rowScanner) (Event, error) {
	var (
		ev      Event
		ts      string
		payload string
	)
	if err := r.Scan(&ev.ID, &ts, &ev.Tag, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Event{}, err
		}
		return Event{}, fmt.Errorf("scan event: %w", err)
	}
	t, err := ParseTime(ts)
	if err != nil {
		return Event{}, fmt.Errorf("scan event %d: %w", ev.ID, err)
	}
	ev.Timestamp = t
	ev.Kind = ParseKind(ev.Tag)
	ev.Payload = json.RawMessage(payload)
	return ev, nil
}

// legacyTimeFormat is SQLite's datetime('now') layout.
const legacyTimeFormat = "2006-01-02 15:04:05"

// ParseTime parses a stored timestamp. It accepts TimeFormat and SQLite's
// datetime('now') layout, which carries no zone and is read as UTC.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeFormat, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(legacyTimeFormat, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// FormatTime renders t in TimeFormat, in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}
