package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates predictable ids: prefix-1, prefix-2, ...
//
// Stores built with it produce byte-identical history for the same
// sequence of evaluations, which golden comparisons rely on.
//
// Thread-safety: Generate is safe for concurrent use.
type SequentialIDs struct {
	prefix string

	mu sync.Mutex
	n  int
}

// NewSequentialIDs creates a generator. An empty prefix means "entry".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "entry"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
