package store

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrMaintenance is returned by WithTx while a rewind or emergency blow is
// running or waiting to run.
var ErrMaintenance = errors.New("store is in maintenance mode")

// gate is the maintenance gate. Ordinary transactions share it; maintenance
// takes it exclusively. sync.RWMutex.TryRLock fails as soon as a writer is
// waiting, which is what makes mutations fail fast instead of queueing
// behind a rewind.
type gate struct {
	mu      sync.RWMutex
	pending atomic.Int32
}

func (g *gate) enter() bool { return g.mu.TryRLock() }

func (g *gate) leave() { g.mu.RUnlock() }

func (g *gate) lock() {
	g.pending.Add(1)
	g.mu.Lock()
}

func (g *gate) unlock() {
	g.mu.Unlock()
	g.pending.Add(-1)
}

func (g *gate) busy() bool { return g.pending.Load() > 0 }
