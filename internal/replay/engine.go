package replay

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/hull/internal/metrics"
	"github.com/roach88/hull/internal/notify"
	"github.com/roach88/hull/internal/store"
)

// Engine runs rewinds and emergency blows against a store.
type Engine struct {
	store    *store.Store
	opts     Options
	now      func() time.Time
	notifier notify.Notifier
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithOptions sets the replay options used by Rewind.
func WithOptions(o Options) EngineOption {
	return func(e *Engine) { e.opts = o }
}

// WithNotifier sets where rewind and blow notifications go.
func WithNotifier(n notify.Notifier) EngineOption {
	return func(e *Engine) { e.notifier = n }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) EngineOption {
	return func(e *Engine) { e.metrics = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the time source for notification timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine over st.
func NewEngine(st *store.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    st,
		now:      time.Now,
		notifier: notify.Discard,
		metrics:  metrics.Nop{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.opts.Logger == nil {
		e.opts.Logger = e.logger
	}
	return e
}

// Rewind truncates the domain tables and replays the whole ledger in one
// maintenance transaction. On error nothing is changed.
func (e *Engine) Rewind(ctx context.Context) (Report, error) {
	start := time.Now()
	e.logger.Info("rewind started", "on_decode_error", e.opts.OnDecodeError)

	var rep Report
	err := e.store.Maintenance(ctx, func(tx *sql.Tx) error {
		if err := Truncate(ctx, tx); err != nil {
			return err
		}
		var err error
		rep, err = Replay(ctx, tx, e.opts)
		return err
	})
	rep.Duration = time.Since(start)
	e.metrics.ObserveReplay("rewind", metrics.Outcome(err), rep.Applied, rep.Skipped+rep.Unrecognized, rep.Duration)

	if err != nil {
		e.logger.Error("rewind failed, tables left unchanged", "error", err, "last_event_id", rep.LastEventID)
		return rep, fmt.Errorf("rewind: %w", err)
	}
	e.logger.Info("rewind finished",
		"applied", rep.Applied,
		"skipped", rep.Skipped,
		"unrecognized", rep.Unrecognized,
		"last_event_id", rep.LastEventID,
		"duration", rep.Duration,
	)
	e.notifier.Notify(notify.Notification{Topic: notify.TopicRewound, At: e.now().UTC()})
	return rep, nil
}

// EmergencyBlow truncates the domain tables without replaying. The ledger is
// untouched, so a later Rewind restores the board. Operators are notified
// after the truncate commits.
func (e *Engine) EmergencyBlow(ctx context.Context) error {
	start := time.Now()
	e.logger.Warn("emergency blow started")

	err := e.store.Maintenance(ctx, func(tx *sql.Tx) error {
		return Truncate(ctx, tx)
	})
	e.metrics.ObserveReplay("blow", metrics.Outcome(err), 0, 0, time.Since(start))
	if err != nil {
		e.logger.Error("emergency blow failed", "error", err)
		return fmt.Errorf("emergency blow: %w", err)
	}

	e.logger.Warn("emergency blow finished, domain tables are empty")
	e.notifier.Notify(notify.Notification{Topic: notify.TopicEmergencyBlow, At: e.now().UTC()})
	return nil
}
