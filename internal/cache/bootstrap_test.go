package cache

import (
	"strings"
	"testing"
)

type fakeMetaEntry struct {
	key        string
	kind       MetaKind
	deadlineMs int64
}

// fakeMetaIterator is an in-slice MetaIterator used to exercise Bootstrap
// without a real storage engine. Jump advances past every entry that is
// either below target or has target as a prefix, mirroring the prefix-skip
// contract real composite sub-key encodings (target+field) require.
type fakeMetaIterator struct {
	entries []fakeMetaEntry
	pos     int
	jumps   []string
}

func (f *fakeMetaIterator) Valid() bool { return f.pos < len(f.entries) }
func (f *fakeMetaIterator) Key() string { return f.entries[f.pos].key }
func (f *fakeMetaIterator) Kind() MetaKind {
	return f.entries[f.pos].kind
}
func (f *fakeMetaIterator) DeadlineMs() int64 { return f.entries[f.pos].deadlineMs }
func (f *fakeMetaIterator) Next()             { f.pos++ }
func (f *fakeMetaIterator) Jump(target string) {
	f.jumps = append(f.jumps, target)
	for f.pos < len(f.entries) {
		key := f.entries[f.pos].key
		if key < target || strings.HasPrefix(key, target) {
			f.pos++
			continue
		}
		break
	}
}

func TestBootstrapLoadsKeysAndSkipsSubkeys(t *testing.T) {
	iter := &fakeMetaIterator{
		entries: []fakeMetaEntry{
			{key: "a", kind: KindString, deadlineMs: 0},
			{key: "b", kind: KindComposite, deadlineMs: 5000},
			{key: "b\x00field1", kind: KindString, deadlineMs: 0}, // sub-key, must be skipped
			{key: "b\x00field2", kind: KindString, deadlineMs: 0}, // sub-key, must be skipped
			{key: "c", kind: KindString, deadlineMs: 999999999999},
		},
	}

	c := NewKeyCache()
	c.now = func() int64 { return 0 }
	Bootstrap(c, iter)

	got := c.Get("*")
	if !sameSet(got, []string{"a", "b", "c"}) {
		t.Fatalf("got %v, want [a b c]", got)
	}

	if d := c.core.presence["a"]; d != Never {
		t.Errorf("expected a to have Never deadline (0 normalizes to Never), got %d", d)
	}
	if d := c.core.presence["b"]; d != 5000 {
		t.Errorf("expected b deadline 5000, got %d", d)
	}

	if len(iter.jumps) != 1 || iter.jumps[0] != "b\x00" {
		t.Errorf("expected exactly one jump to %q, got %v", "b\x00", iter.jumps)
	}
}

func TestBootstrapSweepsAlreadyExpiredEntries(t *testing.T) {
	clock := int64(10_000)
	iter := &fakeMetaIterator{
		entries: []fakeMetaEntry{
			{key: "a", kind: KindString, deadlineMs: 0},            // Never
			{key: "expired", kind: KindString, deadlineMs: 1},      // already expired
			{key: "future", kind: KindString, deadlineMs: 999_999}, // not yet expired
		},
	}

	c := NewKeyCache()
	c.now = func() int64 { return clock }
	Bootstrap(c, iter)

	got := c.Get("*")
	if !sameSet(got, []string{"a", "future"}) {
		t.Fatalf("got %v, want [a future]", got)
	}
}

func TestBootstrapVisitsEachMetaRecordExactlyOnce(t *testing.T) {
	iter := &fakeMetaIterator{
		entries: []fakeMetaEntry{
			{key: "m1", kind: KindComposite, deadlineMs: 0},
			{key: "m1\x00f1", kind: KindString, deadlineMs: 0},
			{key: "m1\x00f2", kind: KindString, deadlineMs: 0},
			{key: "m2", kind: KindString, deadlineMs: 0},
		},
	}

	c := NewKeyCache()
	Bootstrap(c, iter)

	if c.Size() != 2 {
		t.Fatalf("expected 2 top-level keys, got %d: %v", c.Size(), c.Get("*"))
	}
}
