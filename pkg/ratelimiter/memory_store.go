package ratelimiter

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	tokens    int
	refilled  time.Time // start of the current, partially elapsed interval
	expiresAt time.Time // a full bucket is indistinguishable from a missing one after this
}

// MemoryStore keeps buckets in process memory. Use it for a single instance;
// replicas need RedisStore to share limits.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time

	cleanupInterval time.Duration
	stop            chan struct{}
	closeOnce       sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often expired buckets are dropped. Zero disables
// the background sweep.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) { ms.cleanupInterval = interval }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

// NewMemoryStore returns a store that sweeps expired buckets every five
// minutes unless configured otherwise. Call Close to stop the sweep.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		buckets:         make(map[string]*bucket),
		now:             time.Now,
		cleanupInterval: 5 * time.Minute,
		stop:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ms)
	}
	if ms.cleanupInterval > 0 {
		go ms.sweep()
	}
	return ms
}

func (ms *MemoryStore) ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (int, time.Time, error) {
	if ctx.Err() != nil {
		return 0, time.Time{}, ErrContextCancelled
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	b, ok := ms.buckets[key]
	if !ok || !now.Before(b.expiresAt) {
		b = &bucket{tokens: config.Capacity, refilled: now}
		ms.buckets[key] = b
	}
	b.refill(now, config)

	remaining := b.tokens - tokens
	if remaining >= 0 {
		b.tokens = remaining
	}
	b.expiresAt = now.Add(config.ttl())
	return remaining, b.refilled.Add(config.RefillInterval), nil
}

// refill credits whole elapsed intervals. A bucket that reaches capacity
// restarts its interval at now so idle time does not bank extra tokens.
func (b *bucket) refill(now time.Time, config Config) {
	intervals := int(now.Sub(b.refilled) / config.RefillInterval)
	if intervals <= 0 {
		return
	}
	needed := (config.Capacity - b.tokens + config.RefillRate - 1) / config.RefillRate
	if intervals >= needed {
		b.tokens = config.Capacity
		b.refilled = now
		return
	}
	b.tokens += intervals * config.RefillRate
	b.refilled = b.refilled.Add(time.Duration(intervals) * config.RefillInterval)
}

func (ms *MemoryStore) Reset(_ context.Context, key string) error {
	ms.mu.Lock()
	delete(ms.buckets, key)
	ms.mu.Unlock()
	return nil
}

func (ms *MemoryStore) sweep() {
	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ms.removeExpired()
		case <-ms.stop:
			return
		}
	}
}

func (ms *MemoryStore) removeExpired() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	for key, b := range ms.buckets {
		if !now.Before(b.expiresAt) {
			delete(ms.buckets, key)
		}
	}
}

// Close stops the background sweep. Safe to call more than once.
func (ms *MemoryStore) Close() {
	ms.closeOnce.Do(func() { close(ms.stop) })
}
