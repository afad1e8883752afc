package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucket_CapacityExhaustion(t *testing.T) {
	b := NewBucket(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := b.Allow(ctx, "a@x.com", 1)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be admitted", i)
	}

	ok, err := b.Allow(ctx, "a@x.com", 1)
	require.NoError(t, err)
	assert.False(t, ok, "request above capacity should be rejected")
}

func TestBucket_KeysAreIndependent(t *testing.T) {
	b := NewBucket(1, time.Minute)
	ctx := context.Background()

	ok, _ := b.Allow(ctx, "a@x.com", 1)
	assert.True(t, ok)

	ok, _ = b.Allow(ctx, "a@x.com", 1)
	assert.False(t, ok)

	// Другой ключ не задет исчерпанием первого
	ok, _ = b.Allow(ctx, "b@x.com", 1)
	assert.True(t, ok)
}

func TestBucket_RefillsOverTime(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	b := NewBucket(2, time.Minute)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := b.Allow(ctx, "a@x.com", 1)
	assert.True(t, ok)
	ok, _ = b.Allow(ctx, "a@x.com", 1)
	assert.True(t, ok)
	ok, _ = b.Allow(ctx, "a@x.com", 1)
	assert.False(t, ok)

	// За полокна должен накопиться один токен
	now = now.Add(30 * time.Second)
	ok, _ = b.Allow(ctx, "a@x.com", 1)
	assert.True(t, ok)
	ok, _ = b.Allow(ctx, "a@x.com", 1)
	assert.False(t, ok)

	// Токены не накапливаются выше емкости
	now = now.Add(10 * time.Minute)
	ok, _ = b.Allow(ctx, "a@x.com", 2)
	assert.True(t, ok)
	ok, _ = b.Allow(ctx, "a@x.com", 1)
	assert.False(t, ok)
}

func TestBucket_ConcurrentSingleUnit(t *testing.T) {
	b := NewBucket(1, time.Minute)
	ctx := context.Background()

	const goroutines = 2
	var wg sync.WaitGroup
	results := make([]bool, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], _ = b.Allow(ctx, "a@x.com", 1)
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, ok := range results {
		if ok {
			accepted++
		}
	}
	assert.Equal(t, 1, accepted, "exactly one of two concurrent requests should pass")
}

func TestBucket_ConcurrentManyRequests(t *testing.T) {
	const capacity = 10
	const goroutines = 50

	b := NewBucket(capacity, time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := b.Allow(ctx, "a@x.com", 1); ok {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, capacity, accepted)
}
