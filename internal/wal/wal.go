// Package wal is the write-ahead log for the storage-engine collaborator's
// meta-keyspace, adapted from the teacher's gob-encoded append log and
// atomic snapshot rename (internal/adapter/persistence/wal/persister.go),
// changed from logging opaque key/value pairs to logging the mutations an
// Engine applies: create, composite-create, delete, and expire.
package wal

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Op discriminates the kind of mutation a Record replays.
type Op uint8

const (
	OpSet Op = iota
	OpSetComposite
	OpDel
	OpExpire
	OpFlush
)

// Record is one logged mutation. Not every field is meaningful for every
// Op: OpSet uses Key/Value/DeadlineMs, OpSetComposite uses Key/Subkeys,
// OpDel and OpFlush use only Key (OpFlush ignores it), OpExpire uses
// Key/DeadlineMs.
type Record struct {
	Op         Op
	Key        string
	Value      []byte
	DeadlineMs int64
	Subkeys    []string
}

// Log is an append-only gob-encoded journal with an atomic snapshot point.
type Log struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	encoder *gob.Encoder
}

// Open creates or appends to the log file at path, creating parent
// directories as needed.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("wal: create dir: %w", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}

	return &Log{
		path:    path,
		file:    file,
		encoder: gob.NewEncoder(file),
	}, nil
}

// Append writes rec to the log and fsyncs before returning, so a crash
// after Append returns never loses the mutation.
func (l *Log) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.encoder.Encode(&rec); err != nil {
		return fmt.Errorf("wal: encode record: %w", err)
	}
	return l.file.Sync()
}

// Replay decodes every record in the log file, in append order, calling
// apply for each. It stops at the first decode error, which is the
// expected way a gob stream signals end-of-file, and returns any other
// error apply reports.
func (l *Log) Replay(apply func(Record) error) (int, error) {
	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("wal: open for replay: %w", err)
	}
	defer file.Close()

	decoder := gob.NewDecoder(bufio.NewReader(file))
	count := 0
	for {
		var rec Record
		if err := decoder.Decode(&rec); err != nil {
			break
		}
		if err := apply(rec); err != nil {
			return count, fmt.Errorf("wal: replay record %d: %w", count, err)
		}
		count++
	}
	return count, nil
}

// Compact replaces the log with the result of calling write, which must
// emit the minimal set of records reconstructing current state (normally
// one OpSet/OpSetComposite per live key). It is meant to run periodically
// or at shutdown so the log does not grow unbounded across restarts.
func (l *Log) Compact(write func(append func(Record) error) error) error {
	tmpPath := l.path + ".compact"

	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("wal: create compact file: %w", err)
	}

	enc := gob.NewEncoder(tmpFile)
	appendFn := func(rec Record) error { return enc.Encode(&rec) }

	if err := write(appendFn); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("wal: write compacted log: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("wal: sync compact file: %w", err)
	}
	tmpFile.Close()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.file.Close(); err != nil {
		return fmt.Errorf("wal: close old log: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		return fmt.Errorf("wal: rename compacted log: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("wal: reopen log: %w", err)
	}
	l.file = file
	l.encoder = gob.NewEncoder(file)
	return nil
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("wal: sync on close: %w", err)
	}
	return l.file.Close()
}
