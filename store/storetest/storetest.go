// Package storetest holds the behaviour every store.Store backend must share.
package storetest

import (
	"context"
	"errors"
	"testing"

	"eventers-ticket-ledger/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises s against the Store contract. s must start empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := s.Get(ctx, "missing")
		assert.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)

		ok, err := s.Contains(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("set get delete", func(t *testing.T) {
		b := store.NewBatch()
		b.Set("k1", []byte("v1"))
		b.Set("k2", []byte("v2"))
		require.NoError(t, s.Commit(ctx, b))

		v, err := s.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), v)

		b = store.NewBatch()
		b.Set("k1", []byte("v1b"))
		b.Delete("k2")
		require.NoError(t, s.Commit(ctx, b))

		v, err = s.Get(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1b"), v)

		ok, err := s.Contains(ctx, "k2")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("lists keep insertion order", func(t *testing.T) {
		n, err := s.Len(ctx, "l")
		require.NoError(t, err)
		assert.Equal(t, uint64(0), n)

		b := store.NewBatch()
		b.Append("l", []byte("a"))
		b.Append("l", []byte("b"))
		b.Append("l", []byte("c"))
		require.NoError(t, s.Commit(ctx, b))

		n, err = s.Len(ctx, "l")
		require.NoError(t, err)
		assert.Equal(t, uint64(3), n)

		v, err := s.Index(ctx, "l", 1)
		require.NoError(t, err)
		assert.Equal(t, []byte("b"), v)

		all, err := s.Range(ctx, "l", 0, 100)
		require.NoError(t, err)
		assert.Equal(t, [][]byte{[]byte("a"), []byte("b"), []byte("c")}, all)

		tail, err := s.Range(ctx, "l", 2, 3)
		require.NoError(t, err)
		assert.Equal(t, [][]byte{[]byte("c")}, tail)

		empty, err := s.Range(ctx, "l", 5, 9)
		require.NoError(t, err)
		assert.Len(t, empty, 0)

		_, err = s.Index(ctx, "l", 3)
		assert.True(t, errors.Is(err, store.ErrOutOfRange), "got %v", err)
	})

	t.Run("set index rewrites in place", func(t *testing.T) {
		b := store.NewBatch()
		b.SetIndex("l", 0, []byte("z"))
		require.NoError(t, s.Commit(ctx, b))

		all, err := s.Range(ctx, "l", 0, 10)
		require.NoError(t, err)
		assert.Equal(t, [][]byte{[]byte("z"), []byte("b"), []byte("c")}, all)
	})

	t.Run("failed batch leaves no trace", func(t *testing.T) {
		b := store.NewBatch()
		b.Set("atomic", []byte("x"))
		b.Append("l", []byte("d"))
		b.SetIndex("l", 99, []byte("boom"))
		require.Error(t, s.Commit(ctx, b))

		ok, err := s.Contains(ctx, "atomic")
		require.NoError(t, err)
		assert.False(t, ok)

		n, err := s.Len(ctx, "l")
		require.NoError(t, err)
		assert.Equal(t, uint64(3), n)
	})
}
