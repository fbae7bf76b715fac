package cache

import "log"

// MetaKind discriminates a meta entry's value payload. KindString means
// the entry is a plain value the loader inserts directly; any other kind
// is a composite type (Hash/List/Set/ZSet/Stream/HyperLogLog) whose
// sub-keys occupy a contiguous range the loader must skip rather than
// insert.
type MetaKind int

const (
	KindString MetaKind = iota
	KindComposite
)

// MetaIterator is the storage engine's ordered iterator over a namespaced
// meta-keyspace, consumed (never implemented) by this package. It is the
// only interface the bootstrap loader needs from the storage engine.
type MetaIterator interface {
	// Valid reports whether the iterator currently sits on an entry.
	Valid() bool
	// Key returns the current entry's user-visible top-level key.
	Key() string
	// Kind returns the current entry's value-kind discriminator.
	Kind() MetaKind
	// DeadlineMs returns the current entry's absolute expiry in
	// milliseconds since the epoch, or 0 meaning "no expiry".
	DeadlineMs() int64
	// Next advances to the following entry in the namespace.
	Next()
	// Jump seeks past every entry whose key has target as a prefix,
	// landing on the first entry beyond that range (or becoming
	// invalid if none remains). Used to skip a composite key's
	// sub-keys, which are encoded as target+field for target = key +
	// "\x00"; a plain "seek to smallest key >= target" does not skip
	// them, since every such sub-key is itself >= target.
	Jump(target string)
}

// Bootstrap reconstructs cache from it's storage engine's meta keyspace,
// as described by iter, which must already be seeked to the first entry
// in the namespace. It is meant to run once, before the first external
// request is serviced; it does not acquire any lock on cache, matching
// the assumption that bootstrap runs before concurrent callers exist.
//
// For every valid meta entry, Bootstrap inserts (key, deadline) into
// cache, normalizing a deadline of 0 to Never. If the entry's value is a
// composite type, Bootstrap skips every sub-key in its range by jumping
// to key || 0x00, the smallest key strictly greater than any sub-key of
// key — sub-keys are never cache entries. An entry that does not conform
// (a Kind outside the known set) is not inserted: Bootstrap logs it once
// and moves on to the next entry, never aborting on it.
//
// Once the iterator is exhausted, Bootstrap runs the sweeper once so any
// entry that was already expired when read from disk is not returned by
// the first Get call.
func Bootstrap(cache *KeyCache, iter MetaIterator) {
	visited := 0
	for iter.Valid() {
		key := iter.Key()
		kind := iter.Kind()
		if kind != KindString && kind != KindComposite {
			log.Printf("[cache] bootstrap: skipping non-conforming meta entry for key %q", key)
			iter.Next()
			continue
		}
		deadlineMs := iter.DeadlineMs()

		deadline := Never
		if deadlineMs != 0 {
			deadline = normalizeDeadline(deadlineMs)
		}
		cache.core.putWithDeadline(key, deadline)
		visited++

		if kind == KindComposite {
			iter.Jump(key + "\x00")
		} else {
			iter.Next()
		}
	}
	cache.doSweep()

	log.Printf("[cache] bootstrap: loaded %d keys", visited)
}
