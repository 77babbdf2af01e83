package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_InsertRetrieve(t *testing.T) {
	c := NewCache[string](10)
	assert.Equal(t, 10, c.GetBudget())

	require.NoError(t, c.Insert("a", "1", 1))
	require.NoError(t, c.Insert("b", "2", 2))
	assert.Equal(t, 3, c.GetWeight())

	val, ok := c.Retrieve("a")
	require.True(t, ok)
	assert.Equal(t, "1", val)

	_, ok = c.Retrieve("missing")
	assert.False(t, ok)

	assert.Equal(t, ErrKeyExists, c.Insert("a", "other", 1))
	val, _ = c.Retrieve("a")
	assert.Equal(t, "1", val)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache[int](3)

	require.NoError(t, c.Insert("a", 1, 1))
	require.NoError(t, c.Insert("b", 2, 1))
	require.NoError(t, c.Insert("c", 3, 1))

	// Touch a so b becomes least recently used
	_, ok := c.Retrieve("a")
	require.True(t, ok)

	require.NoError(t, c.Insert("d", 4, 1))
	assert.Equal(t, 3, c.GetWeight())

	_, ok = c.Retrieve("b")
	assert.False(t, ok)
	for _, key := range []string{"a", "c", "d"} {
		_, ok = c.Retrieve(key)
		assert.True(t, ok, key)
	}

	// A heavy item evicts as many items as needed
	require.NoError(t, c.Insert("heavy", 5, 3))
	assert.Equal(t, 3, c.GetWeight())
	for _, key := range []string{"a", "c", "d"} {
		_, ok = c.Retrieve(key)
		assert.False(t, ok, key)
	}
}

func TestCache_OverBudgetItem(t *testing.T) {
	c := NewCache[int](2)
	c.SetVerbose(true)

	require.NoError(t, c.Insert("too-big", 1, 3))
	assert.Equal(t, 0, c.GetWeight())

	_, ok := c.Retrieve("too-big")
	assert.False(t, ok)

	require.NoError(t, c.Insert("fits", 1, 2))
	_, ok = c.Retrieve("fits")
	assert.True(t, ok)
}

func TestCache_Clear(t *testing.T) {
	c := NewCache[int](100)
	for i := 0; i < 10; i++ {
		require.NoError(t, c.Insert(fmt.Sprintf("key%d", i), i, 1))
	}

	c.Clear()
	assert.Equal(t, 0, c.GetWeight())
	for i := 0; i < 10; i++ {
		_, ok := c.Retrieve(fmt.Sprintf("key%d", i))
		assert.False(t, ok)
	}

	require.NoError(t, c.Insert("key0", 0, 1))
}
