package testutil

import (
	"sync"
	"time"
)

// Epoch is the first instant a DeterministicClock reports.
var Epoch = time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)

// DeterministicClock is a thread-safe logical clock for tests. Every call to
// Now advances it by one step, so timestamps are strictly increasing and
// identical across runs.
type DeterministicClock struct {
	mu   sync.Mutex
	seq  int64
	step time.Duration
}

// NewDeterministicClock creates a clock that starts at Epoch and advances one
// second per reading.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{step: time.Second}
}

// Now returns Epoch plus seq steps and advances the clock.
//
// Its signature matches time.Now so it can be passed as a clock option.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Epoch.Add(time.Duration(c.seq) * c.step)
	c.seq++
	return t
}

// Peek returns the time the next call to Now will report.
func (c *DeterministicClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Epoch.Add(time.Duration(c.seq) * c.step)
}

// Advance moves the clock forward by d without consuming a reading.
func (c *DeterministicClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq += int64(d / c.step)
}

// Reset rewinds the clock to Epoch.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
