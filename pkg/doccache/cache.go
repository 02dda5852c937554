package doccache

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/illmade-knight/go-doccache/pkg/clock"
	"github.com/rs/zerolog"
)

const (
	// DefaultRetentionWindow is how long an entry stays valid after its last Set.
	DefaultRetentionWindow = 24 * time.Hour
	// DefaultStopTimeout bounds how long StopCleanup waits for the worker.
	DefaultStopTimeout = 5 * time.Second
)

// Config holds configuration for a Cache.
type Config struct {
	// RetentionWindow is the age at which an entry is considered stale.
	RetentionWindow time.Duration
	// StopTimeout bounds StopCleanup when the caller's context has no deadline.
	StopTimeout time.Duration
	// DisableCleanup stops New from starting the sweep worker. StartCleanup
	// can still be called later.
	DisableCleanup bool
	// Clock is optional; it defaults to the wall clock.
	Clock clock.Clock
}

// Artifacts is the cached pair produced by indexing a document. The cache
// never inspects either part.
type Artifacts[I any, C any] struct {
	Index  I
	Chunks []C
}

// clone copies the chunk slice so callers never share backing storage with
// the store. Index is handed out as-is and must be treated as immutable.
func (a Artifacts[I, C]) clone() Artifacts[I, C] {
	return Artifacts[I, C]{
		Index:  a.Index,
		Chunks: slices.Clone(a.Chunks),
	}
}

// Cache is a thread-safe, time-bound store of Artifacts keyed by document
// fingerprint.
type Cache[I any, C any] struct {
	retention   time.Duration
	stopTimeout time.Duration
	clock       clock.Clock
	store       *entryStore[Artifacts[I, C]]
	reporter    Reporter
	logger      zerolog.Logger

	// lifecycleMu guards the worker handles below. It is never held while
	// the store lock is taken.
	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}
}

// New creates an empty cache and, unless cfg.DisableCleanup is set, starts
// its daily sweep worker. A nil reporter logs sweep results through logger.
func New[I any, C any](cfg *Config, reporter Reporter, logger zerolog.Logger) *Cache[I, C] {
	if cfg == nil {
		cfg = &Config{}
	}
	retention := cfg.RetentionWindow
	if retention <= 0 {
		retention = DefaultRetentionWindow
	}
	stopTimeout := cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	cacheLogger := logger.With().Str("component", "DocumentCache").Logger()
	if reporter == nil {
		reporter = NewLogReporter(logger)
	}

	c := &Cache[I, C]{
		retention:   retention,
		stopTimeout: stopTimeout,
		clock:       clk,
		store:       newEntryStore[Artifacts[I, C]](),
		reporter:    reporter,
		logger:      cacheLogger,
	}
	if !cfg.DisableCleanup {
		c.StartCleanup()
	}
	return c
}

// Get returns the artifacts stored for key. An entry whose age has reached the
// retention window is deleted and reported as absent.
func (c *Cache[I, C]) Get(key string) (Artifacts[I, C], bool) {
	now := c.clock.Now()
	e, ok := c.store.lookup(key, func(e entry[Artifacts[I, C]]) bool {
		return now.Sub(e.insertedAt) >= c.retention
	})
	if !ok {
		return Artifacts[I, C]{}, false
	}
	return e.value.clone(), true
}

// Set stores value under key, replacing any existing entry and resetting its age.
func (c *Cache[I, C]) Set(key string, value Artifacts[I, C]) {
	c.store.insert(key, value.clone(), c.clock.Now())
}

// Contains reports whether Get would return a value for key. Like Get, it
// deletes an expired entry as a side effect.
func (c *Cache[I, C]) Contains(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Invalidate removes key regardless of its age and reports whether it was present.
func (c *Cache[I, C]) Invalidate(key string) bool {
	return c.store.remove(key)
}

// Clear removes every entry regardless of age.
func (c *Cache[I, C]) Clear() {
	n := c.store.clearAll()
	c.logger.Debug().Int("removed", n).Msg("Cache cleared.")
}

// Size returns the number of stored entries. Stale entries that neither Get
// nor a sweep has touched yet are included.
func (c *Cache[I, C]) Size() int {
	return c.store.count()
}

// SweepExpired removes every entry older than the retention window, hands the
// result to the reporter and returns the number removed.
func (c *Cache[I, C]) SweepExpired(ctx context.Context) int {
	return c.runSweep(ctx).Removed
}
