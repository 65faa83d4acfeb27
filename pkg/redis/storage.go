package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CompareResult is the outcome of Storage.CompareAndDelete.
type CompareResult int

const (
	CompareMissing  CompareResult = iota // key absent or expired
	CompareMismatch                      // key present, value differs; key kept
	CompareConsumed                      // value matched and key deleted
)

// compareAndDelete runs GET, compare and DEL as one server-side step so two
// concurrent callers can never both consume the same value.
var compareAndDelete = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
	return 0
end
if v ~= ARGV[1] then
	return 1
end
redis.call('DEL', KEYS[1])
return 2
`)

// Storage is a small key-value facade over go-redis with a fixed key prefix
// and context-aware operations.
type Storage struct {
	db     redis.UniversalClient
	prefix string
}

// NewStorage wraps client. Every key is written as prefix+key.
func NewStorage(client redis.UniversalClient, prefix string) *Storage {
	return &Storage{db: client, prefix: prefix}
}

func (s *Storage) key(k string) string { return s.prefix + k }

// Set stores val under key. A zero ttl keeps the key until it is deleted.
func (s *Storage) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.db.Set(ctx, s.key(key), val, ttl).Err()
}

// Get returns the value under key; ok is false when the key does not exist.
func (s *Storage) Get(ctx context.Context, key string) (val []byte, ok bool, err error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	val, err = s.db.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// TTL returns the remaining lifetime of key, or zero when it is missing or persistent.
func (s *Storage) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.db.PTTL(ctx, s.key(key)).Result()
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}

// Delete removes key. Missing keys are not an error.
func (s *Storage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.db.Del(ctx, s.key(key)).Err()
}

// CompareAndDelete deletes key only when its value equals expected.
func (s *Storage) CompareAndDelete(ctx context.Context, key string, expected []byte) (CompareResult, error) {
	if key == "" {
		return CompareMissing, ErrEmptyKey
	}
	n, err := compareAndDelete.Run(ctx, s.db, []string{s.key(key)}, expected).Int()
	if err != nil {
		return CompareMissing, err
	}
	switch CompareResult(n) {
	case CompareMissing, CompareMismatch, CompareConsumed:
		return CompareResult(n), nil
	default:
		return CompareMissing, ErrUnexpectedScriptResult
	}
}

// Conn returns the underlying client.
func (s *Storage) Conn() redis.UniversalClient {
	return s.db
}
