package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates worker ids "<prefix>-0001", "<prefix>-0002", ...
//
// It stands in for the UUIDv7 generator so ledger output is byte-identical
// across runs.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix becomes "worker".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "worker"
	}
	return &SequentialIDs{prefix: prefix}
}

// Next returns the next id.
func (g *SequentialIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
