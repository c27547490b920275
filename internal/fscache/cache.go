// Package fscache is the content cache used by commands that materialise
// files as values.
//
// Entries are keyed by (case-folded path, requested Type), because the same
// file may be read as different value shapes. Entries are evicted by a
// periodic TTL sweep and invalidated by a debounced filesystem watcher.
//
// The cache is a service owned by the embedding host. Get, Insert and the
// eviction methods work on a Cache that was never started; Start adds the
// background sweeper and watcher for a root directory and is idempotent.
//
// Freshness is best effort: Get waits a short fixed delay before consulting
// the map so that a change the watcher is about to report is usually applied
// first. A read that races an external write can still observe the old value.
package fscache

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"github.com/roach88/tabula/internal/value"
)

const (
	// DefaultLifespan is how long an entry survives without being read.
	DefaultLifespan = 3 * time.Minute
	// DefaultDebounce is the window over which filesystem events are batched.
	DefaultDebounce = 5 * time.Millisecond
)

// Key identifies a cache entry.
type Key struct {
	Path string
	Type value.Type
}

type entry struct {
	accessed time.Time
	val      value.Value
}

// Stats are cumulative counters.
type Stats struct {
	Hits          uint64
	Misses        uint64
	Inserts       uint64
	Expired       uint64
	Invalidations uint64
	Entries       int
}

func (s Stats) String() string {
	return fmt.Sprintf("entries=%d hits=%d misses=%d inserts=%d expired=%d invalidations=%d",
		s.Entries, s.Hits, s.Misses, s.Inserts, s.Expired, s.Invalidations)
}

// Cache is safe for concurrent use. A single mutex guards the whole map, so
// each method is atomic, but a Get followed by an Insert is not: two callers
// may both miss and both insert. Values are immutable, so the duplicate work
// is harmless.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	stats   Stats
	// disabled is set when Start failed: without a watcher, entries could go
	// stale forever, so nothing is cached.
	disabled bool

	lifespan      time.Duration
	sweepInterval time.Duration
	debounce      time.Duration
	readDelay     time.Duration
	now           func() time.Time
	logger        *slog.Logger

	startOnce sync.Once
	startErr  error
	root      string
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option configures a Cache.
type Option func(*Cache)

// WithLifespan sets the idle age after which the sweeper evicts an entry.
// A non-positive lifespan means DefaultLifespan.
func WithLifespan(d time.Duration) Option {
	return func(c *Cache) { c.lifespan = d }
}

// WithSweepInterval sets how often the sweeper runs. Default: the lifespan.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Cache) { c.sweepInterval = d }
}

// WithDebounce sets the watcher's batching window.
func WithDebounce(d time.Duration) Option {
	return func(c *Cache) { c.debounce = d }
}

// WithReadDelay sets the pause Get takes before reading. Default: five
// debounce windows.
func WithReadDelay(d time.Duration) Option {
	return func(c *Cache) { c.readDelay = d }
}

// WithClock replaces time.Now for access timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger for evictions and watcher failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates a cache. Background work only begins with Start.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:   make(map[Key]*entry),
		lifespan:  DefaultLifespan,
		debounce:  DefaultDebounce,
		readDelay: -1,
		now:       time.Now,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.lifespan <= 0 {
		c.lifespan = DefaultLifespan
	}
	if c.debounce < 0 {
		c.debounce = 0
	}
	if c.sweepInterval <= 0 {
		c.sweepInterval = c.lifespan
	}
	if c.readDelay < 0 {
		c.readDelay = 5 * c.debounce
	}
	return c
}

// NormalizePath is the key form of a path: cleaned and case-folded.
func NormalizePath(path string) string {
	// A Caser keeps state, so each call gets its own.
	return cases.Fold().String(filepath.Clean(path))
}

// Get returns the value cached for path under typ and refreshes its access
// time.
func (c *Cache) Get(path string, typ value.Type) (value.Value, bool) {
	if c.readDelay > 0 {
		time.Sleep(c.readDelay)
	}
	key := Key{Path: NormalizePath(path), Type: typ}

	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	e.accessed = c.now()
	c.stats.Hits++
	return e.val, true
}

// Insert stores v for path under typ, replacing any previous entry.
func (c *Cache) Insert(path string, typ value.Type, v value.Value) {
	key := Key{Path: NormalizePath(path), Type: typ}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disabled {
		return
	}
	c.entries[key] = &entry{accessed: c.now(), val: v}
	c.stats.Inserts++
}

// RemoveExpired evicts entries not accessed within age and returns how many
// were removed.
func (c *Cache) RemoveExpired(age time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, e := range c.entries {
		if now.Sub(e.accessed) >= age {
			delete(c.entries, k)
			n++
		}
	}
	c.stats.Expired += uint64(n)
	return n
}

// RemoveChanged invalidates every entry whose path is one of paths, or lies
// beneath one of them, regardless of cached type. It returns how many
// entries were removed.
func (c *Cache) RemoveChanged(paths []string) int {
	if len(paths) == 0 {
		return 0
	}
	changed := make(map[string]bool, len(paths))
	for _, p := range paths {
		changed[NormalizePath(p)] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.entries {
		if changed[k.Path] || underAny(k.Path, changed) {
			delete(c.entries, k)
			n++
		}
	}
	c.stats.Invalidations += uint64(n)
	return n
}

// underAny reports whether path lies inside one of the changed directories.
func underAny(path string, changed map[string]bool) bool {
	dir := filepath.Dir(path)
	for {
		if changed[dir] {
			return true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.entries)
	return s
}
