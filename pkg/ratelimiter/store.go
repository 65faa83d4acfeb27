package ratelimiter

import (
	"context"
	"time"
)

// Store keeps bucket state per key.
type Store interface {
	// ConsumeTokens refills the bucket for key and takes tokens when enough are
	// available. A denied call takes nothing and returns a negative remaining.
	// resetAt is when the next token arrives. tokens == 0 only refreshes state.
	ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error)

	// Reset drops the state for key.
	Reset(ctx context.Context, key string) error
}
