package replay

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/hull/internal/ledger"
	"github.com/roach88/hull/internal/store"
)

// DecodePolicy says what replay does with an event it cannot decode.
type DecodePolicy int

const (
	// Abort stops the replay with the decode error.
	Abort DecodePolicy = iota
	// Skip logs the event, counts it and moves on.
	Skip
)

func (p DecodePolicy) String() string {
	if p == Skip {
		return "skip"
	}
	return "abort"
}

// ParsePolicy parses "abort" or "skip". The empty string is Abort.
func ParsePolicy(s string) (DecodePolicy, error) {
	switch s {
	case "", "abort":
		return Abort, nil
	case "skip":
		return Skip, nil
	default:
		return Abort, fmt.Errorf("unknown decode policy %q (want abort or skip)", s)
	}
}

// Options tune Replay.
type Options struct {
	OnDecodeError DecodePolicy
	PageSize      int // events read per page; 0 means ledger.DefaultPageSize
	Logger        *slog.Logger
}

// Report summarizes one replay.
type Report struct {
	Applied      int           `json:"applied"`
	Skipped      int           `json:"skipped"`
	Unrecognized int           `json:"unrecognized"`
	LastEventID  int64         `json:"last_event_id"`
	Duration     time.Duration `json:"duration"`
}

// Truncate deletes every row of the domain tables. It is not logged.
func Truncate(ctx context.Context, tx *sql.Tx) error {
	for _, table := range store.DomainTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// Replay applies every ledger event to the domain tables through tx. The
// tables are expected to be empty.
func Replay(ctx context.Context, tx *sql.Tx, opts Options) (Report, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var rep Report
	err := ledger.Scan(ctx, tx, opts.PageSize, func(ev ledger.Event) error {
		rep.LastEventID = ev.ID
		if ev.Unrecognized() {
			logger.Warn("skipping unrecognized event", "event_id", ev.ID, "kind", ev.Tag)
			rep.Unrecognized++
			return nil
		}

		err := apply(ctx, tx, ev)
		switch {
		case err == nil:
			rep.Applied++
			return nil
		case ledger.IsDecodeError(err) && opts.OnDecodeError == Skip:
			logger.Warn("skipping undecodable event", "event_id", ev.ID, "kind", ev.Tag, "error", err)
			rep.Skipped++
			return nil
		default:
			return err
		}
	})
	rep.Duration = time.Since(start)
	if err != nil {
		return rep, fmt.Errorf("replay: %w", err)
	}
	return rep, nil
}
