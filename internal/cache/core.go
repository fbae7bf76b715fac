package cache

import "github.com/pomaicache/keycache/packages/ds/skiplist"

// core holds the two indices described by the data model: presence, a
// hash map from key to deadline, and expiry, an ordered multiset of
// (deadline, key) pairs. core has single-threaded semantics; KeyCache
// layers the locking discipline on top.
type core struct {
	presence map[string]Deadline
	expiry   *skiplist.Skiplist // member = key, score = int64(deadline)
}

func newCore() *core {
	return &core{
		presence: make(map[string]Deadline),
		expiry:   skiplist.New(),
	}
}

// sweep drains every entry whose deadline has passed relative to nowMs,
// starting from the earliest deadline, stopping at the first entry whose
// deadline is strictly greater than nowMs (or Never, which by
// construction exceeds any finite nowMs). It is O(k) in the number of
// expirations performed, amortized O(1) per inserted entry over the
// cache's lifetime.
func (c *core) sweep(nowMs int64) int {
	removed := 0
	for {
		key, score, ok := c.expiry.Front()
		if !ok || score > nowMs {
			return removed
		}
		c.expiry.Remove(key)
		delete(c.presence, key)
		removed++
	}
}

// put ensures key is present with deadline Never unless already present.
func (c *core) put(key string) {
	c.putWithDeadline(key, Never)
}

// putWithDeadline ensures key is present; if absent, it is inserted with
// deadline. If already present, the existing entry (and its deadline) is
// left unchanged: Put asserts presence, it does not mutate lifetime.
func (c *core) putWithDeadline(key string, deadline Deadline) {
	if _, ok := c.presence[key]; ok {
		return
	}
	c.presence[key] = deadline
	c.expiry.Add(key, int64(deadline))
}

// del removes key from both indices. No-op if absent.
func (c *core) del(key string) {
	if _, ok := c.presence[key]; !ok {
		return
	}
	delete(c.presence, key)
	c.expiry.Remove(key)
}

// expire replaces key's deadline, removing and reinserting its expiry
// entry to preserve the index's ordering invariant. No-op if key is
// absent.
func (c *core) expire(key string, deadline Deadline) {
	if _, ok := c.presence[key]; !ok {
		return
	}
	c.expiry.Remove(key)
	c.presence[key] = deadline
	c.expiry.Add(key, int64(deadline))
}

// get scans the presence map and returns every key for which m holds, in
// unspecified but deterministic per-call order (Go map iteration order is
// the only source of nondeterminism across calls; callers that need
// sorted output sort externally).
func (c *core) get(m matcher) []string {
	out := make([]string, 0)
	for key := range c.presence {
		if m.Matches(key) {
			out = append(out, key)
		}
	}
	return out
}

// size returns the cardinality of the presence map.
func (c *core) size() int {
	return len(c.presence)
}

// dropAll clears both indices.
func (c *core) dropAll() {
	c.presence = make(map[string]Deadline)
	c.expiry = skiplist.New()
}
