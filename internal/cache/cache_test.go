package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetSetRoundTrip(t *testing.T) {
	c := NewTTL(time.Minute, 10)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", "v")
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestExpiry(t *testing.T) {
	c := NewTTL(time.Minute, 10)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestCapacityEviction(t *testing.T) {
	c := NewTTL(time.Minute, 2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestResetAfterLazyExpiryKeepsNewEntry(t *testing.T) {
	c := NewTTL(time.Minute, 2)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	now = now.Add(2 * time.Minute)
	_, ok := c.Get("a")
	assert.False(t, ok)

	// re-setting an expired key must not leave a stale duplicate in the
	// eviction order; filling the cache should evict "b", not the fresh "a"
	c.Set("b", 2)
	c.Set("a", 3)
	c.Set("c", 4)

	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 3, got)
	_, ok = c.Get("b")
	assert.False(t, ok, "oldest live entry should be the one evicted")
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	c := NewTTL(time.Minute, 2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3)

	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 3, got)
	_, ok = c.Get("b")
	assert.True(t, ok)
}
