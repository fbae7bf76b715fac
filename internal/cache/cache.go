package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// KeyCache is the concurrent, TTL-aware index of live keys. It is a
// plain value with no hidden global state: callers hold an explicit
// handle and may instantiate as many independent caches as they need
// (one per storage-engine namespace, in this repository).
//
// Locking discipline: rw is a readers-writer lock protecting the pair
// (presence map, expiry index); sweepMu is a plain mutex serializing
// sweeper invocations against each other. The sweep's removal step
// mutates the same map Put/Delete/Expire mutate, so it must also be
// mutually exclusive with them — sweepMu alone does not provide that,
// since a mutator only takes sweepMu for its own internal sweep call and
// otherwise touches the map under rw alone. Put/Delete/Expire/DropAll
// already hold rw for their whole duration, so they call doSweepLocked,
// which takes only sweepMu. Get/Size/Stats do not otherwise hold rw at
// the point they sweep, so they call doSweep, which takes rw for writing
// around the same sweepMu-guarded removal and releases it before they
// take the RLock their read needs.
type KeyCache struct {
	rw      sync.RWMutex
	sweepMu sync.Mutex
	core    *core
	now     func() int64

	sweepRemovals       uint64
	fastPathMatches     uint64
	globFallbackMatches uint64
}

// NewKeyCache creates an empty cache.
func NewKeyCache() *KeyCache {
	return &KeyCache{
		core: newCore(),
		now:  nowMillis,
	}
}

func nowMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// doSweepLocked runs the sweep's removal step under sweepMu only. Callers
// must already hold rw for writing; calling this without rw held races
// with any other mutator touching core's map under rw alone.
func (c *KeyCache) doSweepLocked() int {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()
	removed := c.core.sweep(c.now())
	if removed > 0 {
		atomic.AddUint64(&c.sweepRemovals, uint64(removed))
	}
	return removed
}

// doSweep runs the sweep for a caller that does not otherwise hold rw.
// It takes rw for writing around the removal step, then releases it, so
// the removal is mutually exclusive with Put/Delete/Expire's own map
// mutations before the caller takes whatever lock its read needs.
func (c *KeyCache) doSweep() int {
	c.rw.Lock()
	defer c.rw.Unlock()
	return c.doSweepLocked()
}

// Put ensures key is present with deadline Never unless already present.
// No-op if present: the existing entry's deadline is left unchanged.
func (c *KeyCache) Put(key string) {
	c.rw.Lock()
	defer c.rw.Unlock()
	c.doSweepLocked()
	c.core.put(key)
}

// PutWithDeadline ensures key is present; if absent, it is inserted with
// the given deadline (a negative deadline is normalized to Never). If
// already present, the existing entry is left unchanged — Expire is the
// operation that mutates an existing key's lifetime, not Put.
func (c *KeyCache) PutWithDeadline(key string, deadlineMs int64) {
	c.rw.Lock()
	defer c.rw.Unlock()
	c.doSweepLocked()
	c.core.putWithDeadline(key, normalizeDeadline(deadlineMs))
}

// Delete removes key from the cache. No-op if absent.
func (c *KeyCache) Delete(key string) {
	c.rw.Lock()
	defer c.rw.Unlock()
	c.doSweepLocked()
	c.core.del(key)
}

// Expire replaces key's deadline (a negative deadline is normalized to
// Never). No-op if key is absent. A deadline that is already in the past
// leaves the key inserted; the next operation's sweep will remove it.
func (c *KeyCache) Expire(key string, deadlineMs int64) {
	c.rw.Lock()
	defer c.rw.Unlock()
	c.doSweepLocked()
	c.core.expire(key, normalizeDeadline(deadlineMs))
}

// Get returns every live key matching the Redis glob pattern, in
// unspecified but deterministic per-call order. Callers that require
// sorted output sort externally.
func (c *KeyCache) Get(pattern string) []string {
	c.doSweep()
	m := newMatcher(pattern)
	if m.kind == matchGlob {
		atomic.AddUint64(&c.globFallbackMatches, 1)
	} else {
		atomic.AddUint64(&c.fastPathMatches, 1)
	}
	c.rw.RLock()
	defer c.rw.RUnlock()
	return c.core.get(m)
}

// Size returns the number of live keys.
func (c *KeyCache) Size() int {
	c.doSweep()
	c.rw.RLock()
	defer c.rw.RUnlock()
	return c.core.size()
}

// DropAll clears the cache.
func (c *KeyCache) DropAll() {
	c.rw.Lock()
	defer c.rw.Unlock()
	c.doSweepLocked()
	c.core.dropAll()
}
