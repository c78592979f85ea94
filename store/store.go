// Package store defines the storage substrate the ledger runs on: a key-value
// space plus named ordered lists, with batched atomic writes.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrOutOfRange = errors.New("index out of range")
)

// Store is implemented by every backend. Reads are individually consistent;
// multi-record consistency comes from Commit, which applies a whole batch or
// nothing.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Contains(ctx context.Context, key string) (bool, error)

	Len(ctx context.Context, list string) (uint64, error)
	Index(ctx context.Context, list string, i uint64) ([]byte, error)
	// Range returns elements [start, stop) of list; stop is clamped to its length.
	Range(ctx context.Context, list string, start, stop uint64) ([][]byte, error)

	Commit(ctx context.Context, b *Batch) error
	Close() error
}

type OpKind int

const (
	OpSet OpKind = iota + 1
	OpDelete
	OpAppend
	OpSetIndex
)

func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "set"
	case OpDelete:
		return "delete"
	case OpAppend:
		return "append"
	case OpSetIndex:
		return "set_index"
	}
	return "unknown"
}

// Op is one write in a batch. Key names the key or the list depending on Kind.
type Op struct {
	Kind  OpKind
	Key   string
	Index uint64
	Value []byte
}

// Batch collects writes that must land together.
type Batch struct {
	ops []Op
}

func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) Set(key string, value []byte) {
	b.ops = append(b.ops, Op{Kind: OpSet, Key: key, Value: value})
}

func (b *Batch) Delete(key string) {
	b.ops = append(b.ops, Op{Kind: OpDelete, Key: key})
}

func (b *Batch) Append(list string, value []byte) {
	b.ops = append(b.ops, Op{Kind: OpAppend, Key: list, Value: value})
}

// SetIndex rewrites an existing list element in place.
func (b *Batch) SetIndex(list string, i uint64, value []byte) {
	b.ops = append(b.ops, Op{Kind: OpSetIndex, Key: list, Index: i, Value: value})
}

func (b *Batch) Ops() []Op {
	return b.ops
}

func (b *Batch) Len() int {
	return len(b.ops)
}
