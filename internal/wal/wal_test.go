package wal

import (
	"path/filepath"
	"testing"
)

func TestAppendAndReplay(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(filepath.Join(dir, "wal.log"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	records := []Record{
		{Op: OpSet, Key: "a", Value: []byte("1")},
		{Op: OpSetComposite, Key: "b", Subkeys: []string{"f1", "f2"}},
		{Op: OpExpire, Key: "a", DeadlineMs: 5000},
		{Op: OpDel, Key: "a"},
	}
	for _, rec := range records {
		if err := log.Append(rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	log2, err := Open(filepath.Join(dir, "wal.log"))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer log2.Close()

	var replayed []Record
	count, err := log2.Replay(func(rec Record) error {
		replayed = append(replayed, rec)
		return nil
	})
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if count != len(records) {
		t.Fatalf("replayed %d records, want %d", count, len(records))
	}
	for i, rec := range records {
		if replayed[i].Op != rec.Op || replayed[i].Key != rec.Key {
			t.Errorf("replayed[%d] = %+v, want %+v", i, replayed[i], rec)
		}
	}
}

func TestReplayOnMissingFileIsNoop(t *testing.T) {
	dir := t.TempDir()
	log, err := Open(filepath.Join(dir, "wal.log"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	// Point Replay at a sibling path that was never created.
	other := &Log{path: filepath.Join(dir, "missing.log")}
	count, err := other.Replay(func(Record) error { return nil })
	if err != nil {
		t.Fatalf("Replay on missing file: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 records, got %d", count)
	}
}

func TestCompactRewritesLog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wal.log")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	for i := 0; i < 5; i++ {
		_ = log.Append(Record{Op: OpSet, Key: "k", Value: []byte{byte(i)}})
	}

	if err := log.Compact(func(appendFn func(Record) error) error {
		return appendFn(Record{Op: OpSet, Key: "k", Value: []byte{99}})
	}); err != nil {
		t.Fatalf("Compact: %v", err)
	}

	var replayed []Record
	count, err := log.Replay(func(rec Record) error {
		replayed = append(replayed, rec)
		return nil
	})
	if err != nil {
		t.Fatalf("Replay after compact: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record after compaction, got %d", count)
	}
	if replayed[0].Value[0] != 99 {
		t.Errorf("expected compacted value 99, got %v", replayed[0].Value)
	}
}
