package variability

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/star/catsim/internal/metrics"
	"github.com/star/catsim/internal/photometry"
)

// DefaultAGNCacheMax is the number of processes held before the cache is
// cleared.
const DefaultAGNCacheMax = 1_000_000

// agnState is the resumable state of one damped random walk.
type agnState struct {
	LastMJD float64 // epoch most recently requested
	StepMJD float64 // MJD of the last completed step
	RNG     rand.PCG
	DX      [photometry.NumBands]float64
}

// AGNCacheStats reports AGN cache usage.
type AGNCacheStats struct {
	Entries int   `json:"entries"`
	Max     int   `json:"max"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Resets  int64 `json:"resets"`
}

// AGNCache holds the state of every AGN process evaluated so far, keyed by
// the process identity. States are stored and returned by value, so a
// resumed generator never aliases a cached one.
type AGNCache struct {
	mu      sync.Mutex
	max     int
	entries map[string]agnState
	logger  *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
	resets atomic.Int64
}

// NewAGNCache returns an empty cache cleared whenever it grows past max
// entries. A non-positive max selects DefaultAGNCacheMax.
func NewAGNCache(max int, logger *slog.Logger) *AGNCache {
	if max <= 0 {
		max = DefaultAGNCacheMax
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AGNCache{
		max:     max,
		entries: make(map[string]agnState),
		logger:  logger,
	}
}

// lookup returns a copy of the cached state for id.
func (c *AGNCache) lookup(id string) (agnState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.entries[id]
	return st, ok
}

// store records st under id, clearing the cache first if it has outgrown
// its limit.
func (c *AGNCache) store(id string, st agnState) {
	c.mu.Lock()
	if len(c.entries) > c.max {
		c.resetLocked("capacity")
	}
	c.entries[id] = st
	n := len(c.entries)
	c.mu.Unlock()
	metrics.SetAGNCacheEntries(n)
}

func (c *AGNCache) countLookup(resumed bool) {
	if resumed {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	metrics.IncAGNCacheLookup(resumed)
}

// Reset forgets every process. Subsequent evaluations start again from
// each process's t0.
func (c *AGNCache) Reset() {
	c.mu.Lock()
	c.resetLocked("requested")
	c.mu.Unlock()
	metrics.SetAGNCacheEntries(0)
}

func (c *AGNCache) resetLocked(reason string) {
	dropped := len(c.entries)
	c.entries = make(map[string]agnState)
	c.resets.Add(1)
	metrics.IncAGNCacheResets()
	c.logger.Info("AGN cache reset", "reason", reason, "dropped", dropped)
}

// Len returns the number of cached processes.
func (c *AGNCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cache statistics.
func (c *AGNCache) Stats() AGNCacheStats {
	return AGNCacheStats{
		Entries: c.Len(),
		Max:     c.max,
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Resets:  c.resets.Load(),
	}
}
