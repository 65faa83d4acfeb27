package mfa

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/dmitrymomot/mfakit/pkg/redis"
)

// RedisCodeCache stores channel codes in Redis. Keys carry the storage prefix,
// so a code for an SMS factor lives under mfa:sms:<principal>.
type RedisCodeCache struct {
	storage *redis.Storage
}

func NewRedisCodeCache(storage *redis.Storage) *RedisCodeCache {
	return &RedisCodeCache{storage: storage}
}

func (c *RedisCodeCache) Put(ctx context.Context, key string, digest []byte, ttl time.Duration) error {
	return unavailable(c.storage.Set(ctx, key, digest, ttl))
}

func (c *RedisCodeCache) Consume(ctx context.Context, key string, digest []byte) (CodeMatch, error) {
	res, err := c.storage.CompareAndDelete(ctx, key, digest)
	if err != nil {
		return CodeMissing, unavailable(err)
	}
	switch res {
	case redis.CompareConsumed:
		return CodeConsumed, nil
	case redis.CompareMismatch:
		return CodeMismatch, nil
	}
	return CodeMissing, nil
}

type cachedCode struct {
	digest    []byte
	expiresAt time.Time
}

// MemoryCodeCache is an in-process CodeCache for tests and single-instance
// development. Expiry is evaluated against now.
type MemoryCodeCache struct {
	mu    sync.Mutex
	now   func() time.Time
	codes map[string]cachedCode
}

func NewMemoryCodeCache(now func() time.Time) *MemoryCodeCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCodeCache{now: now, codes: make(map[string]cachedCode)}
}

func (c *MemoryCodeCache) Put(_ context.Context, key string, digest []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[key] = cachedCode{digest: bytes.Clone(digest), expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCodeCache) Consume(_ context.Context, key string, digest []byte) (CodeMatch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.codes[key]
	if !ok {
		return CodeMissing, nil
	}
	if !c.now().Before(v.expiresAt) {
		delete(c.codes, key)
		return CodeMissing, nil
	}
	if !bytes.Equal(v.digest, digest) {
		return CodeMismatch, nil
	}
	delete(c.codes, key)
	return CodeConsumed, nil
}
