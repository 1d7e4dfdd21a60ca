// Package cache implements the strategy cache (component E): the
// admitted pair set plus a recalculation clock, swapped atomically so
// readers never observe a partial update. Grounded on the teacher's
// in-memory OHLCV cache (mutex-guarded map swap in main.go), adapted
// to a lock-free atomic pointer since the snapshot here is a single
// immutable value, not a growing map.
package cache

import (
	"sync/atomic"
	"time"

	"statarb/internal/pairfinder"
)

// Snapshot is the immutable admitted-pair set as of one recalculation.
type Snapshot struct {
	Pairs          []pairfinder.PairInfo
	LastRecalc     time.Time
	RecalcBarIndex int // bar-index clock slot; neither driver sets it (the backtest driver keeps its own)
}

// Cache holds the current Snapshot behind an atomic pointer. The zero
// value is ready to use (reads see an empty Snapshot until the first Store).
type Cache struct {
	snap atomic.Pointer[Snapshot]
}

// New returns a Cache seeded with an empty snapshot.
func New() *Cache {
	c := &Cache{}
	c.snap.Store(&Snapshot{})
	return c
}

// Load returns the current snapshot. Never blocks, never returns nil.
func (c *Cache) Load() Snapshot {
	p := c.snap.Load()
	if p == nil {
		return Snapshot{}
	}
	return *p
}

// Store atomically replaces the snapshot. Readers mid-flight continue
// to see the snapshot they already loaded; new Load calls see the new one.
func (c *Cache) Store(s Snapshot) {
	c.snap.Store(&s)
}

// StaleByClock reports whether the wall-clock snapshot is older than
// recalcInterval as of now — the live driver's staleness test.
func (c *Cache) StaleByClock(now time.Time, recalcInterval time.Duration) bool {
	s := c.Load()
	if s.LastRecalc.IsZero() {
		return true
	}
	return now.Sub(s.LastRecalc) >= recalcInterval
}
