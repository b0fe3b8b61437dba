// Package metrics records mutation and replay outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder receives measurements from the gateway and the replay engine.
type Recorder interface {
	ObserveMutation(op, outcome string, d time.Duration)
	ObserveReplay(mode, outcome string, applied, skipped int, d time.Duration)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) ObserveMutation(string, string, time.Duration)         {}
func (Nop) ObserveReplay(string, string, int, int, time.Duration) {}

// Prometheus is a Recorder backed by client_golang collectors.
type Prometheus struct {
	mutations       *prometheus.CounterVec
	mutationLatency *prometheus.HistogramVec
	replays         *prometheus.CounterVec
	replayEvents    *prometheus.CounterVec
	replayDuration  prometheus.Histogram
}

// NewPrometheus creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hull",
			Name:      "mutations_total",
			Help:      "Gateway mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		mutationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hull",
			Name:      "mutation_duration_seconds",
			Help:      "Gateway mutation latency including the ledger append.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"op"}),
		replays: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hull",
			Name:      "replays_total",
			Help:      "Rewinds and emergency blows by outcome.",
		}, []string{"mode", "outcome"}),
		replayEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hull",
			Name:      "replay_events_total",
			Help:      "Ledger events applied or skipped during replay.",
		}, []string{"result"}),
		replayDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hull",
			Name:      "replay_duration_seconds",
			Help:      "Wall time of rewind and emergency blow.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(p.mutations, p.mutationLatency, p.replays, p.replayEvents, p.replayDuration)
	}
	return p
}

// ObserveMutation counts one gateway call.
func (p *Prometheus) ObserveMutation(op, outcome string, d time.Duration) {
	p.mutations.WithLabelValues(op, outcome).Inc()
	p.mutationLatency.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveReplay counts one rewind or emergency blow.
func (p *Prometheus) ObserveReplay(mode, outcome string, applied, skipped int, d time.Duration) {
	p.replays.WithLabelValues(mode, outcome).Inc()
	p.replayEvents.WithLabelValues("applied").Add(float64(applied))
	p.replayEvents.WithLabelValues("skipped").Add(float64(skipped))
	p.replayDuration.Observe(d.Seconds())
}

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
