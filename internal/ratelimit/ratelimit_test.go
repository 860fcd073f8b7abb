package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowWithinBudget(t *testing.T) {
	k := NewPerMinute(5)
	for i := 0; i < 5; i++ {
		ok, _ := k.Allow("user:alice")
		assert.True(t, ok, "request %d should pass", i)
	}
}

func TestBlocksPastBudget(t *testing.T) {
	k := NewPerMinute(3)
	for i := 0; i < 3; i++ {
		k.Allow("ip:1.2.3.4")
	}
	ok, retryIn := k.Allow("ip:1.2.3.4")
	assert.False(t, ok)
	assert.Greater(t, retryIn.Seconds(), 0.0)
}

func TestKeysAreIndependent(t *testing.T) {
	k := NewPerMinute(1)
	ok, _ := k.Allow("user:a")
	assert.True(t, ok)
	ok, _ = k.Allow("user:a")
	assert.False(t, ok)

	ok, _ = k.Allow("user:b")
	assert.True(t, ok, "a different key has its own bucket")
}
