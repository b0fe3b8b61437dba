package board

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/hull/internal/ledger"
	"github.com/roach88/hull/internal/metrics"
	"github.com/roach88/hull/internal/notify"
	"github.com/roach88/hull/internal/store"
)

// Gateway funnels every board mutation through one transaction that also
// appends the matching ledger event.
type Gateway struct {
	store    *store.Store
	now      func() time.Time
	newID    func() string
	notifier notify.Notifier
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithClock sets the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

// WithIDGenerator sets the generator for worker ids left empty on create.
func WithIDGenerator(gen func() string) Option {
	return func(g *Gateway) { g.newID = gen }
}

// WithNotifier sets where post-commit notifications go.
func WithNotifier(n notify.Notifier) Option {
	return func(g *Gateway) { g.notifier = n }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(g *Gateway) { g.metrics = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// New creates a Gateway over st.
func New(st *store.Store, opts ...Option) *Gateway {
	g := &Gateway{
		store:    st,
		now:      time.Now,
		newID:    func() string { return uuid.Must(uuid.NewV7()).String() },
		notifier: notify.Discard,
		metrics:  metrics.Nop{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// change is what a mutation produced: the event to append and the
// notifications to send once the transaction has committed.
type change struct {
	kind    ledger.Kind
	payload any
	after   []notify.Notification
	eventID int64
}

// mutate runs fn and the ledger append in one transaction. fn returning a
// nil change means nothing changed: the transaction commits without an event.
func (g *Gateway) mutate(ctx context.Context, op string, fn func(tx *sql.Tx, now time.Time) (*change, error)) error {
	start := time.Now()
	now := g.now().UTC()

	var c *change
	err := g.store.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		c, err = fn(tx, now)
		if err != nil || c == nil {
			return err
		}
		c.eventID, err = ledger.Append(ctx, tx, c.kind, c.payload, now)
		return err
	})
	err = classify(op, err)
	g.metrics.ObserveMutation(op, metrics.Outcome(err), time.Since(start))

	if err != nil {
		g.logger.Debug("mutation failed", "op", op, "code", CodeOf(err), "error", err)
		return err
	}
	if c == nil {
		g.logger.Debug("mutation was a no-op", "op", op)
		return nil
	}

	g.logger.Info("mutation committed", "op", op, "kind", c.kind, "event_id", c.eventID)
	for _, n := range c.after {
		g.notifier.Notify(n)
	}
	return nil
}

func reassigned(entity, id string, from, to *int64, at time.Time) notify.Notification {
	return notify.Notification{
		Topic:    notify.TopicGroupReassigned,
		Entity:   entity,
		EntityID: id,
		From:     from,
		To:       to,
		At:       at,
	}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func ts(t time.Time) string { return ledger.FormatTime(t) }

func parseTimes(dst []*ledger.Time, src []string) error {
	for i, s := range src {
		t, err := ledger.ParseTime(s)
		if err != nil {
			return err
		}
		*dst[i] = ledger.Time{Time: t}
	}
	return nil
}

func groupExists(ctx context.Context, q querier, id int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM wip_groups WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}
