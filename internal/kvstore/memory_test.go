package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStore_LockFencedRelease(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	token, ok, err := m.Acquire(ctx, "u1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = m.Acquire(ctx, "u1", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.Release(ctx, "u1", "wrong-token"))
	_, ok, err = m.Acquire(ctx, "u1", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, m.Release(ctx, "u1", token))
	_, ok, err = m.Acquire(ctx, "u1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMemoryStore_ExpiresEntries(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.SetCooldown(ctx, "u1", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	in, err := m.InCooldown(ctx, "u1")
	require.NoError(t, err)
	require.False(t, in)
}

func TestMemoryStore_QueueOrderingAndDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	require.NoError(t, m.Push(ctx, "operator-notify", []byte("a")))
	require.NoError(t, m.Push(ctx, "operator-notify", []byte("b")))

	items, err := m.Range(ctx, "operator-notify", 0, -1)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("a"), []byte("b")}, items)

	require.NoError(t, m.Delete(ctx, "operator-notify", []byte("a")))
	items, err = m.Range(ctx, "operator-notify", 0, -1)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("b")}, items)
}

func TestMemoryStore_PruneEvictsOverCapacity(t *testing.T) {
	m := NewMemoryStore()
	m.maxSize = 2
	ctx := context.Background()

	require.NoError(t, m.Mark(ctx, "whatsapp", "m1"))
	require.NoError(t, m.Mark(ctx, "whatsapp", "m2"))
	require.NoError(t, m.Mark(ctx, "whatsapp", "m3"))

	m.mu.Lock()
	size := len(m.expiring)
	m.mu.Unlock()
	require.LessOrEqual(t, size, 2)
}
