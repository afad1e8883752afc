package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Bucket - in-memory token bucket с отдельным бакетом на каждый ключ.
// Бакет пополняется равномерно: capacity токенов за window.
type Bucket struct {
	capacity float64
	rate     float64 // токенов в секунду

	mu      sync.Mutex
	buckets map[string]*bucketState

	now func() time.Time // подменяется в тестах
}

type bucketState struct {
	tokens float64
	last   time.Time
}

func NewBucket(capacity int, window time.Duration) *Bucket {
	return &Bucket{
		capacity: float64(capacity),
		rate:     float64(capacity) / window.Seconds(),
		buckets:  make(map[string]*bucketState),
		now:      time.Now,
	}
}

func (b *Bucket) Allow(_ context.Context, key string, cost int) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	st, ok := b.buckets[key]
	if !ok {
		st = &bucketState{tokens: b.capacity, last: now}
		b.buckets[key] = st
	}

	elapsed := now.Sub(st.last).Seconds()
	if elapsed > 0 {
		st.tokens += elapsed * b.rate
		if st.tokens > b.capacity {
			st.tokens = b.capacity
		}
		st.last = now
	}

	if st.tokens < float64(cost) {
		return false, nil
	}
	st.tokens -= float64(cost)
	return true, nil
}
