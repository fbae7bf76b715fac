// Package bloom implements a concurrent-safe bloom filter used by the
// storage-engine collaborator as a fast negative pre-check before a
// meta-keyspace lookup: a MayContain miss proves a key absent without
// taking the engine's lock.
package bloom

import (
	"hash"
	"hash/fnv"
	"math"
	"sync"
	"sync/atomic"
	"unsafe"
)

const bitsPerWord = 64

// Filter is a k-hash bloom filter over byte-string keys. Hashes are derived
// from two fnv-1a digests via double hashing (Kirsch-Mitzenmacher), so only
// a pooled hash.Hash64 is needed regardless of k.
type Filter struct {
	bits []uint64
	size uint64
	k    uint64

	count    atomic.Uint64
	hashPool sync.Pool
}

// New creates a filter with size bits and k hash probes per operation.
func New(size uint64, k uint64) *Filter {
	if size == 0 {
		size = 1
	}
	if k == 0 {
		k = 1
	}
	numWords := (size + bitsPerWord - 1) / bitsPerWord
	f := &Filter{
		bits: make([]uint64, numWords),
		size: size,
		k:    k,
	}
	f.hashPool = sync.Pool{New: func() interface{} { return fnv.New64a() }}
	return f
}

// NewOptimal sizes a filter for expectedItems entries at falsePositiveRate.
func NewOptimal(expectedItems uint64, falsePositiveRate float64) *Filter {
	if expectedItems == 0 {
		expectedItems = 1
	}
	size := optimalSize(expectedItems, falsePositiveRate)
	k := optimalK(size, expectedItems)
	return New(size, k)
}

func optimalSize(n uint64, p float64) uint64 {
	m := -float64(n) * math.Log(p) / (math.Log(2) * math.Log(2))
	return uint64(math.Ceil(m))
}

func optimalK(m, n uint64) uint64 {
	k := float64(m) / float64(n) * math.Log(2)
	return uint64(math.Ceil(k))
}

// Add marks key as present.
func (f *Filter) Add(key string) {
	h1, h2 := f.hashes(key)
	for i := uint64(0); i < f.k; i++ {
		idx := (h1 + i*h2) % f.size
		atomic.OrUint64(&f.bits[idx>>6], uint64(1)<<(idx&63))
	}
	f.count.Add(1)
}

// MayContain reports whether key might be present. false is authoritative;
// true may be a false positive.
func (f *Filter) MayContain(key string) bool {
	h1, h2 := f.hashes(key)
	for i := uint64(0); i < f.k; i++ {
		idx := (h1 + i*h2) % f.size
		if atomic.LoadUint64(&f.bits[idx>>6])&(uint64(1)<<(idx&63)) == 0 {
			return false
		}
	}
	return true
}

// Clear resets every bit. Used after a full namespace flush, since bits
// cannot be removed individually without a counting variant.
func (f *Filter) Clear() {
	for i := range f.bits {
		atomic.StoreUint64(&f.bits[i], 0)
	}
	f.count.Store(0)
}

// Count returns the number of Add calls observed (not distinct keys).
func (f *Filter) Count() uint64 {
	return f.count.Load()
}

// FillRatio returns the fraction of bits currently set.
func (f *Filter) FillRatio() float64 {
	var set uint64
	for i := range f.bits {
		set += uint64(popcount(atomic.LoadUint64(&f.bits[i])))
	}
	return float64(set) / float64(f.size)
}

func (f *Filter) hashes(key string) (uint64, uint64) {
	h := f.hashPool.Get().(hash.Hash64)
	defer f.hashPool.Put(h)

	h.Reset()
	h.Write(unsafeStringToBytes(key))
	h1 := h.Sum64()

	h.Reset()
	h.Write([]byte{59})
	h.Write(unsafeStringToBytes(key))
	h2 := h.Sum64()

	return h1, h2 | 1
}

func unsafeStringToBytes(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func popcount(x uint64) int {
	x = x - ((x >> 1) & 0x5555555555555555)
	x = (x & 0x3333333333333333) + ((x >> 2) & 0x3333333333333333)
	x = (x + (x >> 4)) & 0x0f0f0f0f0f0f0f0f
	return int((x * 0x0101010101010101) >> 56)
}
