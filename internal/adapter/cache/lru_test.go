package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)

	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("c", 3)
	assert.False(t, c.Contains("b"))
	assert.True(t, c.Contains("a"))
	assert.True(t, c.Contains("c"))
	assert.Equal(t, []string{"a", "c"}, c.Keys())
}

func TestLRU_PutExistingRefreshes(t *testing.T) {
	c := NewLRU[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("a", 10)
	c.Put("c", 3)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
	assert.False(t, c.Contains("b"))
	assert.Equal(t, 2, c.Len())
}

func TestLRU_HitReturnsSameValue(t *testing.T) {
	type parsed struct{ path string }
	c := NewLRU[string, *parsed](DefaultCapacity)
	p := &parsed{path: "main.go"}
	c.Put("main.go", p)

	got, ok := c.Get("main.go")
	require.True(t, ok)
	assert.Same(t, p, got)
}

func TestLRU_Invalidate(t *testing.T) {
	c := NewLRU[int, string](0)
	assert.Equal(t, DefaultCapacity, c.Capacity())
	c.Put(1, "one")
	c.Invalidate()
	assert.Zero(t, c.Len())
	_, ok := c.Get(1)
	assert.False(t, ok)
}
