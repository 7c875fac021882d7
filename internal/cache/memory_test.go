package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "k", snapshot{Name: "algebra", Count: 3}, time.Minute))

	var got snapshot
	hit, err := m.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, snapshot{Name: "algebra", Count: 3}, got)
}

func TestMemoryMiss(t *testing.T) {
	var got snapshot
	hit, err := NewMemory().Get(context.Background(), "absent", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "k", snapshot{Name: "algebra"}, 10*time.Second))

	m.Advance(9 * time.Second)
	var got snapshot
	hit, err := m.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)

	m.Advance(time.Second)
	hit, err = m.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.False(t, m.Has("k"))
	assert.Equal(t, 0, m.Len())
}

func TestMemoryZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "k", snapshot{Name: "algebra"}, 0))
	m.Advance(24 * time.Hour)

	var got snapshot
	hit, err := m.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "k", snapshot{}, time.Minute))
	require.NoError(t, m.Delete(ctx, "k"))
	require.NoError(t, m.Delete(ctx, "k")) // idempotent

	assert.False(t, m.Has("k"))
}
