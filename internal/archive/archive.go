// Package archive copies the ledger out of the database as JSON Lines, to a
// local directory or an S3-compatible bucket.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/roach88/hull/internal/ledger"
)

// Sink stores one archive object under key.
type Sink interface {
	Put(ctx context.Context, key string, r io.Reader) error
}

// Export writes every ledger event to w as one JSON object per line, in id
// order, and returns the number of events written.
func Export(ctx context.Context, q ledger.Querier, w io.Writer) (int, error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	n := 0
	err := ledger.Scan(ctx, q, ledger.DefaultPageSize, func(ev ledger.Event) error {
		if err := enc.Encode(ev); err != nil {
			return fmt.Errorf("encode event %d: %w", ev.ID, err)
		}
		n++
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("export: %w", err)
	}
	return n, nil
}

// Key returns the object key of a snapshot taken at t.
func Key(t time.Time) string {
	return "ledger/" + t.UTC().Format("20060102T150405.000000000Z") + ".jsonl"
}

// Snapshot exports the ledger and stores it in sink under Key(at).
func Snapshot(ctx context.Context, q ledger.Querier, sink Sink, at time.Time) (string, int, error) {
	var buf bytes.Buffer
	n, err := Export(ctx, q, &buf)
	if err != nil {
		return "", 0, err
	}
	key := Key(at)
	if err := sink.Put(ctx, key, bytes.NewReader(buf.Bytes())); err != nil {
		return "", 0, fmt.Errorf("archive %s: %w", key, err)
	}
	return key, n, nil
}
