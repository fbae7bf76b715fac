package engine

import (
	"sort"
	"strings"

	"github.com/pomaicache/keycache/internal/cache"
)

// metaIterator walks a snapshot of an Engine's sorted keyspace, satisfying
// cache.MetaIterator. The snapshot is taken once, under a read lock, so a
// bootstrap scan never blocks concurrent writers for its full duration;
// this matches the assumption (spec.md's bootstrap loader, §9) that
// bootstrap runs before the namespace is exposed to concurrent callers.
type metaIterator struct {
	eng  *Engine
	keys []string
	pos  int
}

// OpenMetaIterator returns a cache.MetaIterator positioned at the first
// entry in the namespace's meta-keyspace, in key order.
func (e *Engine) OpenMetaIterator() cache.MetaIterator {
	e.mu.RLock()
	keys := make([]string, len(e.keys))
	copy(keys, e.keys)
	e.mu.RUnlock()

	return &metaIterator{eng: e, keys: keys}
}

func (it *metaIterator) Valid() bool { return it.pos < len(it.keys) }

func (it *metaIterator) Key() string { return it.keys[it.pos] }

func (it *metaIterator) Kind() cache.MetaKind {
	it.eng.mu.RLock()
	defer it.eng.mu.RUnlock()
	return it.eng.records[it.keys[it.pos]].Kind
}

func (it *metaIterator) DeadlineMs() int64 {
	it.eng.mu.RLock()
	defer it.eng.mu.RUnlock()
	return it.eng.records[it.keys[it.pos]].DeadlineMs
}

func (it *metaIterator) Next() { it.pos++ }

// Jump advances past every key that is either below target or has target
// as a prefix. Composite sub-keys are encoded as target+field for
// target = parentKey+"\x00", so a plain seek-to-smallest->=target would
// land on the first sub-key instead of skipping the whole range.
func (it *metaIterator) Jump(target string) {
	idx := sort.Search(len(it.keys)-it.pos, func(i int) bool {
		return it.keys[it.pos+i] >= target
	})
	idx += it.pos
	for idx < len(it.keys) && strings.HasPrefix(it.keys[idx], target) {
		idx++
	}
	it.pos = idx
}
