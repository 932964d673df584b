package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_AllowsUpToMax(t *testing.T) {
	l := New()
	key := "workflow-u1-1.2.3.4"

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(key, 5, time.Minute), "request %d should be admitted", i+1)
	}
	assert.False(t, l.Allow(key, 5, time.Minute))
}

func TestLimiter_ResetsAfterWindow(t *testing.T) {
	l := New()
	now := time.Now()
	l.now = func() time.Time { return now }
	key := "continue-episode-u1-1.2.3.4"

	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow(key, 10, time.Minute))
	}
	assert.False(t, l.Allow(key, 10, time.Minute))

	now = now.Add(time.Minute + time.Second)
	assert.True(t, l.Allow(key, 10, time.Minute))
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := New()
	assert.True(t, l.Allow("a", 1, time.Minute))
	assert.False(t, l.Allow("a", 1, time.Minute))
	assert.True(t, l.Allow("b", 1, time.Minute))
}

func TestLimiter_RetryAfter(t *testing.T) {
	l := New()
	now := time.Now()
	l.now = func() time.Time { return now }
	key := "k"

	assert.Equal(t, time.Duration(0), l.RetryAfter(key))
	l.Allow(key, 1, 5*time.Minute)
	assert.InDelta(t, (5 * time.Minute).Seconds(), l.RetryAfter(key).Seconds(), 1)
}

func TestLimiter_Sweep(t *testing.T) {
	l := New()
	now := time.Now()
	l.now = func() time.Time { return now }

	l.Allow("a", 1, time.Minute)
	l.Allow("b", 1, time.Minute)
	assert.Equal(t, 2, l.Len())

	now = now.Add(2 * time.Minute)
	removed := l.Sweep()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, l.Len())
}
