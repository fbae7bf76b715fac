package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/pomaicache/keycache/internal/cache"
)

func newTestEngine() *Engine {
	return New(cache.NewKeyCache(), nil)
}

func TestSetGetRoundTrip(t *testing.T) {
	e := newTestEngine()
	if err := e.Set("k", []byte("hello")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := e.Get("k")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(got) != "hello" {
		t.Errorf("Get = %q, want %q", got, "hello")
	}
	if got := e.cache.Get("*"); len(got) != 1 || got[0] != "k" {
		t.Errorf("cache.Get(*) = %v, want [k]", got)
	}
}

func TestSetCompressesLargeValues(t *testing.T) {
	e := newTestEngine()
	large := strings.Repeat("x", compressionThreshold*4)
	if err := e.Set("big", []byte(large)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := e.Get("big")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(got) != large {
		t.Errorf("decoded value mismatch, len got=%d want=%d", len(got), len(large))
	}

	e.mu.RLock()
	rec := e.records["big"]
	e.mu.RUnlock()
	if rec.Value[0] != magicCompressed {
		t.Errorf("expected large value to be stored compressed")
	}
}

func TestSetPutsKeyIntoCache(t *testing.T) {
	e := newTestEngine()
	_ = e.Set("k", []byte("v"))
	got := e.cache.Get("*")
	if len(got) != 1 || got[0] != "k" {
		t.Errorf("cache.Get(*) = %v, want [k]", got)
	}
}

func TestSetWithDeadlineWiresExpiry(t *testing.T) {
	e := newTestEngine()
	_ = e.SetWithDeadline("k", []byte("v"), time.Now().Add(time.Hour).UnixMilli())
	if got := e.cache.Size(); got != 1 {
		t.Fatalf("expected 1 key, got %d", got)
	}
	_ = e.Expire("k", -1) // normalize to never, key must survive
	if got := e.cache.Size(); got != 1 {
		t.Errorf("expected key to survive Persist-style expire, got size %d", got)
	}
}

func TestSetCompositeCreatesSubkeysNotVisibleToCache(t *testing.T) {
	e := newTestEngine()
	if err := e.SetComposite("h", []string{"f1", "f2", "f3"}); err != nil {
		t.Fatalf("SetComposite: %v", err)
	}

	got := e.cache.Get("*")
	if len(got) != 1 || got[0] != "h" {
		t.Errorf("cache should only contain the top-level key, got %v", got)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	want := []string{"h", "h\x00f1", "h\x00f2", "h\x00f3"}
	if len(e.keys) != len(want) {
		t.Fatalf("engine keyspace = %v, want %v", e.keys, want)
	}
	for i, k := range want {
		if e.keys[i] != k {
			t.Errorf("keys[%d] = %q, want %q", i, e.keys[i], k)
		}
	}
}

func TestDelRemovesCompositeSubkeyRange(t *testing.T) {
	e := newTestEngine()
	_ = e.SetComposite("h", []string{"f1", "f2"})
	_ = e.Set("other", []byte("v"))

	if err := e.Del("h"); err != nil {
		t.Fatalf("Del: %v", err)
	}

	e.mu.RLock()
	keys := append([]string{}, e.keys...)
	e.mu.RUnlock()
	if len(keys) != 1 || keys[0] != "other" {
		t.Errorf("expected only 'other' to remain, got %v", keys)
	}
	if e.cache.Size() != 1 {
		t.Errorf("expected cache size 1 after deleting composite key, got %d", e.cache.Size())
	}
}

func TestExistsReflectsRecordPresence(t *testing.T) {
	e := newTestEngine()
	if e.Exists("missing") {
		t.Errorf("expected Exists(missing) = false")
	}
	_ = e.Set("k", []byte("v"))
	if !e.Exists("k") {
		t.Errorf("expected Exists(k) = true")
	}
}

func TestGetRejectsKeyNeverAddedToMembershipFilter(t *testing.T) {
	e := newTestEngine()
	_ = e.Set("real", []byte("v"))

	if _, ok, err := e.Get("never-inserted"); ok || err != nil {
		t.Errorf("Get(never-inserted) = ok=%v err=%v, want ok=false err=nil", ok, err)
	}
}

func TestFlushClearsEngineAndCache(t *testing.T) {
	e := newTestEngine()
	_ = e.Set("a", []byte("1"))
	_ = e.SetComposite("b", []string{"f"})

	if err := e.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	e.mu.RLock()
	n := len(e.keys)
	e.mu.RUnlock()
	if n != 0 {
		t.Errorf("expected empty keyspace after Flush, got %d keys", n)
	}
	if e.cache.Size() != 0 {
		t.Errorf("expected empty cache after Flush, got size %d", e.cache.Size())
	}
}

func TestOpenMetaIteratorSkipsCompositeSubkeys(t *testing.T) {
	e := newTestEngine()
	_ = e.Set("a", []byte("1"))
	_ = e.SetComposite("b", []string{"f1", "f2"})
	_ = e.Set("c", []byte("3"))

	iter := e.OpenMetaIterator()
	var visited []string
	for iter.Valid() {
		key := iter.Key()
		visited = append(visited, key)
		if iter.Kind() == cache.KindComposite {
			iter.Jump(key + "\x00")
		} else {
			iter.Next()
		}
	}

	want := []string{"a", "b", "c"}
	if len(visited) != len(want) {
		t.Fatalf("visited = %v, want %v", visited, want)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visited[%d] = %q, want %q", i, visited[i], want[i])
		}
	}
}
