package cache

import "sync/atomic"

// Stats is a snapshot of a KeyCache's counters, grounded on the
// teacher's atomic-counters-collected-into-a-struct convention
// (internal/engine/store_stats.go's Stats/GetBloomStats), in service of
// the Prometheus gauges the observability layer exposes at /metrics.
type Stats struct {
	Size                int
	SweepRemovals       uint64
	FastPathMatches     uint64
	GlobFallbackMatches uint64
}

// Stats returns a point-in-time snapshot, running a sweep first so Size
// reflects live keys.
func (c *KeyCache) Stats() Stats {
	c.doSweep()
	c.rw.RLock()
	defer c.rw.RUnlock()
	return Stats{
		Size:                c.core.size(),
		SweepRemovals:       atomic.LoadUint64(&c.sweepRemovals),
		FastPathMatches:     atomic.LoadUint64(&c.fastPathMatches),
		GlobFallbackMatches: atomic.LoadUint64(&c.globFallbackMatches),
	}
}
