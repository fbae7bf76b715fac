package engine

import (
	"fmt"
	"sort"
	"sync"

	"github.com/golang/snappy"

	"github.com/pomaicache/keycache/internal/cache"
	"github.com/pomaicache/keycache/internal/wal"
	"github.com/pomaicache/keycache/packages/ds/bloom"
)

// bloomFilterMinBits and bloomFilterHashes size the membership filter for
// a low false-positive rate at a fixed k=7, the standard choice for a
// Kirsch-Mitzenmacher double-hashed filter, regardless of namespace size.
const (
	bloomFilterHashes  = 7
	bloomFilterMinBits = 1 << 16
)

// compressionThreshold is the value size at or above which Set transparently
// snappy-compresses the payload, mirroring the magic-byte convention the
// teacher's store used for its Incr path and its HTTP handlers' decode
// helper: byte 0 means raw, byte 1 means snappy-compressed.
const compressionThreshold = 256

const (
	magicRaw        byte = 0
	magicCompressed byte = 1
)

// Engine is the namespace-scoped storage-engine collaborator: an ordered
// meta-keyspace of records plus the cache.KeyCache it keeps synchronized.
// Namespace isolation is the caller's job (the registry owns one Engine
// per namespace); an Engine itself knows nothing of other namespaces.
type Engine struct {
	mu      sync.RWMutex
	keys    []string          // sorted, includes composite sub-keys
	records map[string]Record // keyed by the same strings as keys

	cache *cache.KeyCache
	log   *wal.Log // nil if running without durability

	// membership is a fast negative pre-check ahead of the map lookups in
	// Exists and Get: a miss proves the key absent without touching
	// records. It is advisory only — Del never clears individual bits, a
	// plain bloom filter cannot — so a hit still requires the real lookup.
	membership *bloom.Filter
}

// New creates an Engine paired with c. If log is non-nil, every mutation
// is appended to it before being applied in memory.
func New(c *cache.KeyCache, log *wal.Log) *Engine {
	return &Engine{
		records:    make(map[string]Record),
		cache:      c,
		log:        log,
		membership: bloom.New(bloomFilterMinBits, bloomFilterHashes),
	}
}

// Cache returns the KeyCache this engine keeps synchronized.
func (e *Engine) Cache() *cache.KeyCache { return e.cache }

func encodeValue(value []byte) []byte {
	if len(value) < compressionThreshold {
		out := make([]byte, 1+len(value))
		out[0] = magicRaw
		copy(out[1:], value)
		return out
	}
	compressed := snappy.Encode(nil, value)
	out := make([]byte, 1+len(compressed))
	out[0] = magicCompressed
	copy(out[1:], compressed)
	return out
}

func decodeValue(stored []byte) ([]byte, error) {
	if len(stored) == 0 {
		return nil, nil
	}
	magic, payload := stored[0], stored[1:]
	switch magic {
	case magicRaw:
		return payload, nil
	case magicCompressed:
		decoded, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, fmt.Errorf("engine: decode snappy payload: %w", err)
		}
		return decoded, nil
	default:
		return nil, fmt.Errorf("engine: unknown value magic byte %d", magic)
	}
}

// insertKey adds key to the sorted keyspace if not already present.
// Caller must hold mu for writing.
func (e *Engine) insertKey(key string) {
	idx, found := e.search(key)
	if found {
		return
	}
	e.keys = append(e.keys, "")
	copy(e.keys[idx+1:], e.keys[idx:])
	e.keys[idx] = key
	e.membership.Add(key)
}

// removeKey deletes key from the sorted keyspace if present. Caller must
// hold mu for writing.
func (e *Engine) removeKey(key string) {
	idx, found := e.search(key)
	if !found {
		return
	}
	e.keys = append(e.keys[:idx], e.keys[idx+1:]...)
}

// removeRange deletes every key in [prefix, prefix+subkeySeparator range)
// that has prefix as a strict prefix. Caller must hold mu for writing.
func (e *Engine) removeRange(prefix string) {
	start, _ := e.search(prefix)
	end := start
	for end < len(e.keys) && len(e.keys[end]) > len(prefix) && e.keys[end][:len(prefix)] == prefix {
		delete(e.records, e.keys[end])
		end++
	}
	e.keys = append(e.keys[:start], e.keys[end:]...)
}

func (e *Engine) search(key string) (idx int, found bool) {
	idx = sort.SearchStrings(e.keys, key)
	return idx, idx < len(e.keys) && e.keys[idx] == key
}

func (e *Engine) appendWAL(rec wal.Record) error {
	if e.log == nil {
		return nil
	}
	return e.log.Append(rec)
}

// Set stores key as a plain (KindString) value, replacing any previous
// record or composite sub-key range under key, then calls the paired
// cache's Put, which inserts key with no expiry if it is absent and leaves
// an already-present key's cache deadline unchanged.
func (e *Engine) Set(key string, value []byte) error {
	return e.SetWithDeadline(key, value, 0)
}

// SetWithDeadline is Set with an explicit absolute deadline in
// milliseconds (0 meaning no expiry).
func (e *Engine) SetWithDeadline(key string, value []byte, deadlineMs int64) error {
	encoded := encodeValue(value)
	if err := e.appendWAL(wal.Record{Op: wal.OpSet, Key: key, Value: encoded, DeadlineMs: deadlineMs}); err != nil {
		return fmt.Errorf("engine: set %q: %w", key, err)
	}

	e.mu.Lock()
	e.removeRange(key + subkeySeparator)
	e.insertKey(key)
	e.records[key] = Record{Kind: cache.KindString, DeadlineMs: deadlineMs, Value: encoded}
	e.mu.Unlock()

	if deadlineMs > 0 {
		e.cache.PutWithDeadline(key, deadlineMs)
	} else {
		e.cache.Put(key)
	}
	return nil
}

// SetComposite stores key as a composite (KindComposite) entry together
// with the given sub-keys, standing in for a Hash/List/Set/ZSet/Stream/
// HyperLogLog value whose field encoding this engine never interprets.
func (e *Engine) SetComposite(key string, subkeys []string) error {
	if err := e.appendWAL(wal.Record{Op: wal.OpSetComposite, Key: key, Subkeys: subkeys}); err != nil {
		return fmt.Errorf("engine: set composite %q: %w", key, err)
	}

	e.mu.Lock()
	e.removeRange(key + subkeySeparator)
	e.insertKey(key)
	e.records[key] = Record{Kind: cache.KindComposite}
	for _, field := range subkeys {
		subkey := key + subkeySeparator + field
		e.insertKey(subkey)
		e.records[subkey] = Record{Kind: cache.KindString}
	}
	e.mu.Unlock()

	e.cache.Put(key)
	return nil
}

// Del removes key and, if it was composite, every sub-key in its range.
func (e *Engine) Del(key string) error {
	if err := e.appendWAL(wal.Record{Op: wal.OpDel, Key: key}); err != nil {
		return fmt.Errorf("engine: del %q: %w", key, err)
	}

	e.mu.Lock()
	delete(e.records, key)
	e.removeKey(key)
	e.removeRange(key + subkeySeparator)
	e.mu.Unlock()

	e.cache.Delete(key)
	return nil
}

// Expire updates key's absolute deadline in milliseconds. A no-op if key
// does not exist, matching cache.KeyCache.Expire's edge case.
func (e *Engine) Expire(key string, deadlineMs int64) error {
	if err := e.appendWAL(wal.Record{Op: wal.OpExpire, Key: key, DeadlineMs: deadlineMs}); err != nil {
		return fmt.Errorf("engine: expire %q: %w", key, err)
	}

	e.mu.Lock()
	rec, ok := e.records[key]
	if ok {
		rec.DeadlineMs = deadlineMs
		e.records[key] = rec
	}
	e.mu.Unlock()

	if ok {
		e.cache.Expire(key, deadlineMs)
	}
	return nil
}

// Persist clears key's deadline, making it never expire.
func (e *Engine) Persist(key string) error {
	return e.Expire(key, int64(cache.Never))
}

// Get returns key's decoded value and whether it was found. Only
// meaningful for KindString keys; composite keys never carry a direct
// value payload.
func (e *Engine) Get(key string) ([]byte, bool, error) {
	if !e.membership.MayContain(key) {
		return nil, false, nil
	}

	e.mu.RLock()
	rec, ok := e.records[key]
	e.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	value, err := decodeValue(rec.Value)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Exists reports whether key has a meta record, regardless of kind.
func (e *Engine) Exists(key string) bool {
	if !e.membership.MayContain(key) {
		return false
	}
	e.mu.RLock()
	_, ok := e.records[key]
	e.mu.RUnlock()
	return ok
}

// LoadFromWAL replays every record in log directly into the engine's
// meta-keyspace, bypassing both the cache (left for the bootstrap loader
// to populate afterward by scanning this engine) and the log itself
// (replayed records must not be re-appended). Meant to run once at
// process start, before any namespace is exposed to callers.
func (e *Engine) LoadFromWAL(log *wal.Log) (int, error) {
	return log.Replay(e.applyRecord)
}

func (e *Engine) applyRecord(rec wal.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch rec.Op {
	case wal.OpSet:
		e.removeRange(rec.Key + subkeySeparator)
		e.insertKey(rec.Key)
		e.records[rec.Key] = Record{Kind: cache.KindString, DeadlineMs: rec.DeadlineMs, Value: rec.Value}
	case wal.OpSetComposite:
		e.removeRange(rec.Key + subkeySeparator)
		e.insertKey(rec.Key)
		e.records[rec.Key] = Record{Kind: cache.KindComposite}
		for _, field := range rec.Subkeys {
			subkey := rec.Key + subkeySeparator + field
			e.insertKey(subkey)
			e.records[subkey] = Record{Kind: cache.KindString}
		}
	case wal.OpDel:
		delete(e.records, rec.Key)
		e.removeKey(rec.Key)
		e.removeRange(rec.Key + subkeySeparator)
	case wal.OpExpire:
		if existing, ok := e.records[rec.Key]; ok {
			existing.DeadlineMs = rec.DeadlineMs
			e.records[rec.Key] = existing
		}
	case wal.OpFlush:
		e.keys = nil
		e.records = make(map[string]Record)
		e.membership.Clear()
	default:
		return fmt.Errorf("engine: unknown WAL op %d", rec.Op)
	}
	return nil
}

// Snapshot writes the minimal set of WAL records reconstructing the
// engine's current state, for wal.Log.Compact.
func (e *Engine) Snapshot(appendFn func(wal.Record) error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	// Walk top-level keys only: a sub-key's presence is implied by its
	// parent's SetComposite record, so only emit records for entries
	// that are not themselves inside another key's sub-key range.
	i := 0
	for i < len(e.keys) {
		key := e.keys[i]
		rec := e.records[key]
		i++
		switch rec.Kind {
		case cache.KindString:
			if err := appendFn(wal.Record{Op: wal.OpSet, Key: key, Value: rec.Value, DeadlineMs: rec.DeadlineMs}); err != nil {
				return err
			}
		case cache.KindComposite:
			prefix := key + subkeySeparator
			var subkeys []string
			for i < len(e.keys) && len(e.keys[i]) > len(prefix) && e.keys[i][:len(prefix)] == prefix {
				subkeys = append(subkeys, e.keys[i][len(prefix):])
				i++
			}
			if err := appendFn(wal.Record{Op: wal.OpSetComposite, Key: key, Subkeys: subkeys}); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush drops every record in the namespace and clears the paired cache.
func (e *Engine) Flush() error {
	if err := e.appendWAL(wal.Record{Op: wal.OpFlush}); err != nil {
		return fmt.Errorf("engine: flush: %w", err)
	}

	e.mu.Lock()
	e.keys = nil
	e.records = make(map[string]Record)
	e.membership.Clear()
	e.mu.Unlock()

	e.cache.DropAll()
	return nil
}
