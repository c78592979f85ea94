package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"eventers-ticket-ledger/codec"
)

// Memory is an in-process Store. With a snapshot path it loads its contents on
// open and rewrites the file on every commit.
type Memory struct {
	mu       sync.RWMutex
	kv       map[string][]byte
	lists    map[string][][]byte
	snapshot string
}

type memorySnapshot struct {
	KV    map[string][]byte   `cbor:"1,keyasint"`
	Lists map[string][][]byte `cbor:"2,keyasint"`
}

func NewMemory() *Memory {
	return &Memory{
		kv:    make(map[string][]byte),
		lists: make(map[string][][]byte),
	}
}

// OpenMemory returns a Memory store backed by the snapshot file at path. A missing file starts empty.
func OpenMemory(path string) (*Memory, error) {
	m := NewMemory()
	m.snapshot = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("openMemory: could not read snapshot %s: %w", path, err)
	}

	var snap memorySnapshot
	if err := codec.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("openMemory: corrupt snapshot %s: %w", path, err)
	}
	if snap.KV != nil {
		m.kv = snap.KV
	}
	if snap.Lists != nil {
		m.lists = snap.Lists
	}
	return m, nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.kv[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v), nil
}

func (m *Memory) Contains(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.kv[key]
	return ok, nil
}

func (m *Memory) Len(_ context.Context, list string) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return uint64(len(m.lists[list])), nil
}

func (m *Memory) Index(_ context.Context, list string, i uint64) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l := m.lists[list]
	if i >= uint64(len(l)) {
		return nil, ErrOutOfRange
	}
	return clone(l[i]), nil
}

func (m *Memory) Range(_ context.Context, list string, start, stop uint64) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l := m.lists[list]
	if stop > uint64(len(l)) {
		stop = uint64(len(l))
	}
	if start >= stop {
		return [][]byte{}, nil
	}
	out := make([][]byte, 0, stop-start)
	for _, v := range l[start:stop] {
		out = append(out, clone(v))
	}
	return out, nil
}

// Commit validates every op against a working copy of the touched lists before
// publishing, so a failing batch leaves the store untouched. With a snapshot
// path the new contents are written to disk before they become visible.
func (m *Memory) Commit(_ context.Context, b *Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lists := make(map[string][][]byte)
	working := func(name string) [][]byte {
		if l, ok := lists[name]; ok {
			return l
		}
		l := append([][]byte(nil), m.lists[name]...)
		lists[name] = l
		return l
	}

	for i, op := range b.Ops() {
		switch op.Kind {
		case OpSet, OpDelete:
		case OpAppend:
			lists[op.Key] = append(working(op.Key), clone(op.Value))
		case OpSetIndex:
			l := working(op.Key)
			if op.Index >= uint64(len(l)) {
				return fmt.Errorf("commit: op %d %s %s[%d]: %w", i, op.Kind, op.Key, op.Index, ErrOutOfRange)
			}
			l[op.Index] = clone(op.Value)
		default:
			return fmt.Errorf("commit: op %d: unknown kind %d", i, op.Kind)
		}
	}

	kv := m.kv
	if m.snapshot != "" {
		kv = make(map[string][]byte, len(m.kv))
		for k, v := range m.kv {
			kv[k] = v
		}
	}
	for _, op := range b.Ops() {
		switch op.Kind {
		case OpSet:
			kv[op.Key] = clone(op.Value)
		case OpDelete:
			delete(kv, op.Key)
		}
	}

	if m.snapshot != "" {
		merged := make(map[string][][]byte, len(m.lists)+len(lists))
		for name, l := range m.lists {
			merged[name] = l
		}
		for name, l := range lists {
			merged[name] = l
		}
		if err := writeSnapshot(m.snapshot, memorySnapshot{KV: kv, Lists: merged}); err != nil {
			return fmt.Errorf("commit: %w", err)
		}
		m.kv = kv
		m.lists = merged
		return nil
	}

	for name, l := range lists {
		m.lists[name] = l
	}
	return nil
}

// Close releases nothing; every commit is already on disk when a snapshot
// path is set.
func (m *Memory) Close() error {
	return nil
}

// writeSnapshot replaces the file at path through a temp file and rename, so
// readers see either the old or the new contents.
func writeSnapshot(path string, snap memorySnapshot) error {
	data, err := codec.Marshal(snap)
	if err != nil {
		return fmt.Errorf("could not encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("could not create snapshot file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("could not write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("could not sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("could not flush snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("could not replace snapshot: %w", err)
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
