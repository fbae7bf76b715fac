// Package engine is the minimal storage-engine collaborator the keycache
// package is bootstrapped from and kept in sync with. It stands in for the
// WiredTiger-backed keyspace the original system scans: an ordered
// meta-keyspace of top-level keys plus, for composite values, a contiguous
// run of sub-key entries under each top-level key. It never interprets a
// composite value's payload (Hash/List/Set/ZSet/Stream/HyperLogLog field
// encodings are out of scope), only the sub-key range a Jump must skip.
//
// Every mutating method calls the matching cache.KeyCache mutator after its
// own state change succeeds, mirroring the write path described in
// spec.md's system overview: the engine is the source of truth for the
// meta-keyspace, and the cache is an index kept current by every caller
// that already knows what it changed.
package engine
