// Package sweep returns workers that stopped reporting to Idle.
package sweep

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/hull/internal/board"
)

// Gateway is the part of board.Gateway the sweeper needs.
type Gateway interface {
	ListStaleWorkers(ctx context.Context, status string, cutoff time.Time) ([]board.Worker, error)
	MarkIdleIfStale(ctx context.Context, id string, cutoff time.Time) (board.Worker, bool, error)
}

// Sweeper sets Busy workers that have not been seen for IdleAfter back to Idle.
type Sweeper struct {
	gw        Gateway
	idleAfter time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithClock sets the time source used to compute the staleness cutoff.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) { s.logger = l }
}

// New creates a Sweeper.
func New(gw Gateway, idleAfter time.Duration, opts ...Option) *Sweeper {
	s := &Sweeper{gw: gw, idleAfter: idleAfter, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SweepOnce runs one pass and returns the ids it set to Idle. Each listed
// worker is re-checked when it is marked, so one that vanished, changed
// status or sent a heartbeat since the listing is skipped. Maintenance mode
// ends the pass early without error; the next pass picks the workers up.
func (s *Sweeper) SweepOnce(ctx context.Context) ([]string, error) {
	cutoff := s.now().Add(-s.idleAfter)
	stale, err := s.gw.ListStaleWorkers(ctx, board.WorkerBusy, cutoff)
	if err != nil {
		return nil, err
	}

	var swept []string
	for i, w := range stale {
		_, marked, err := s.gw.MarkIdleIfStale(ctx, w.ID, cutoff)
		switch {
		case err == nil && marked:
			swept = append(swept, w.ID)
			s.logger.Info("worker went idle", "worker", w.ID, "last_seen", w.LastSeen.Time)
		case err == nil:
			s.logger.Debug("worker no longer stale", "worker", w.ID)
		case board.IsNotFound(err):
			continue
		case board.IsMaintenance(err):
			s.logger.Debug("sweep paused for maintenance", "remaining", len(stale)-i)
			return swept, nil
		default:
			return swept, err
		}
	}
	return swept, nil
}

// Run sweeps every interval until ctx is done. Pass errors are logged and
// do not stop the loop.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Warn("sweep failed", "error", err)
			}
		}
	}
}
