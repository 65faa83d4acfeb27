// Package ratelimiter provides token bucket rate limiting with memory and Redis
// storage and HTTP middleware.
//
// The bucket allows bursts up to Capacity and refills RefillRate tokens every
// RefillInterval. A denied request does not consume tokens.
//
// # Basic Usage
//
//	store := ratelimiter.NewMemoryStore()
//	defer store.Close()
//
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       10,
//		RefillRate:     1,
//		RefillInterval: 6 * time.Second,
//	})
//	if err != nil {
//		return err
//	}
//
//	result, err := limiter.Allow(ctx, "verify:203.0.113.7")
//	if err != nil {
//		return err
//	}
//	if !result.Allowed() {
//		// retry after result.RetryAfter(time.Now())
//	}
//
// # Redis
//
// RedisStore runs the same algorithm as a Lua script, so replicas share buckets:
//
//	store := ratelimiter.NewRedisStore(client, "mfa:rl:", nil)
//
// # HTTP Middleware
//
//	mw := ratelimiter.Middleware(limiter, ratelimiter.Composite(ipKey, pathKey),
//		ratelimiter.WithDenyHandler(writeTooManyRequests),
//	)
//
// The middleware sets X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset on every limited response, and Retry-After on denials.
// Requests whose key is empty pass through unlimited.
package ratelimiter
