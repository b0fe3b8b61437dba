// Package notify delivers post-commit side-channel notifications (workspace
// resets on group reassignment, operator hooks after an emergency blow).
//
// Delivery is fire-and-forget: Notify never blocks and never reports the
// hook's outcome back to the caller.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Topic names what happened.
type Topic string

const (
	TopicGroupReassigned Topic = "group_reassigned"
	TopicRewound         Topic = "rewound"
	TopicEmergencyBlow   Topic = "emergency_blow"
)

// Notification is the message handed to hooks.
type Notification struct {
	Topic    Topic     `json:"topic"`
	Entity   string    `json:"entity,omitempty"` // "note" or "sprite" for reassignments
	EntityID string    `json:"entity_id,omitempty"`
	From     *int64    `json:"from_group,omitempty"`
	To       *int64    `json:"to_group,omitempty"`
	At       time.Time `json:"at"`
}

// Notifier accepts notifications. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

// Hook handles one notification.
type Hook interface {
	Handle(ctx context.Context, n Notification) error
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, n Notification) error

// Handle calls f.
func (f HookFunc) Handle(ctx context.Context, n Notification) error { return f(ctx, n) }

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Notification) {}

// Dispatcher queues notifications on a buffered channel and runs hooks on a
// single background goroutine, in order. A full buffer drops the
// notification with a warning.
type Dispatcher struct {
	queue   chan Notification
	routes  map[Topic][]Hook
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	started bool
	closed  bool
	done    chan struct{}
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger used for hook failures and drops.
func WithLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// WithHookTimeout bounds each hook call. Zero means no timeout.
func WithHookTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.timeout = t }
}

// NewDispatcher creates a dispatcher with the given queue size.
func NewDispatcher(buffer int, opts ...DispatcherOption) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	d := &Dispatcher{
		queue:  make(chan Notification, buffer),
		routes: make(map[Topic][]Hook),
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Subscribe registers h for topic. Must be called before Start.
func (d *Dispatcher) Subscribe(topic Topic, h Hook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes[topic] = append(d.routes[topic], h)
}

// Notify enqueues n without blocking.
func (d *Dispatcher) Notify(n Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.logger.Warn("notification after close dropped", "topic", n.Topic)
		return
	}
	select {
	case d.queue <- n:
	default:
		d.logger.Warn("notification queue full, dropped", "topic", n.Topic, "entity_id", n.EntityID)
	}
}

// Start runs the delivery loop until Close. It is a no-op after the first call.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	go func() {
		defer close(d.done)
		for n := range d.queue {
			d.deliver(ctx, n)
		}
	}()
}

// Close stops accepting notifications and waits until queued ones are delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if started {
		<-d.done
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) {
	d.mu.Lock()
	hooks := d.routes[n.Topic]
	d.mu.Unlock()

	for _, h := range hooks {
		hctx := ctx
		var cancel context.CancelFunc
		if d.timeout > 0 {
			hctx, cancel = context.WithTimeout(ctx, d.timeout)
		}
		if err := h.Handle(hctx, n); err != nil {
			d.logger.Warn("notification hook failed", "topic", n.Topic, "entity_id", n.EntityID, "error", err)
		}
		if cancel != nil {
			cancel()
		}
	}
}
