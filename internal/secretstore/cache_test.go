package secretstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRejectsStaleInsert(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		invalidate func(c *cache)
		wantStored bool
	}{
		{name: "untouched", invalidate: func(*cache) {}, wantStored: true},
		{name: "same name evicted", invalidate: func(c *cache) { c.evict("a") }, wantStored: false},
		{name: "other name evicted", invalidate: func(c *cache) { c.evict("b") }, wantStored: true},
		{name: "cleared", invalidate: func(c *cache) { c.clear() }, wantStored: false},
		{name: "cleared then evicted", invalidate: func(c *cache) { c.clear(); c.evict("a") }, wantStored: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newCache()
			st := c.stamp("a")
			tt.invalidate(c)

			assert.Equal(t, tt.wantStored, c.put("a", "value", st))
			_, ok := c.get("a")
			assert.Equal(t, tt.wantStored, ok)
		})
	}
}

func TestCacheGetPutEvict(t *testing.T) {
	t.Parallel()

	c := newCache()
	_, ok := c.get("a")
	assert.False(t, ok)

	require.True(t, c.put("a", "one", c.stamp("a")))
	require.True(t, c.put("a", "two", c.stamp("a")))
	v, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, "two", v)
	assert.Equal(t, 1, c.len())

	c.evict("a")
	_, ok = c.get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.len())

	// a fresh stamp after eviction is accepted
	assert.True(t, c.put("a", "three", c.stamp("a")))
}

func TestCacheClearDropsEverything(t *testing.T) {
	t.Parallel()

	c := newCache()
	for _, name := range []string{"a", "b", "c"} {
		require.True(t, c.put(name, "v-"+name, c.stamp(name)))
	}
	require.Equal(t, 3, c.len())

	c.clear()
	assert.Equal(t, 0, c.len())
	for _, name := range []string{"a", "b", "c"} {
		_, ok := c.get(name)
		assert.False(t, ok, name)
	}
}
