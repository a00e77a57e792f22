package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a shared [Store] backed by Redis. Every key is namespaced as
// "{prefix}:key" so several applications can share one database. The braces
// form a cluster hash tag: all keys of one prefix live in one slot and
// RemoveAll stays a single DEL.
type Redis struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis-backed store. A zero ttl stores keys without expiry.
//
//	Performance: 1 Redis command per operation.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "as"
	}
	return &Redis{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *Redis) key(key string) string {
	return "{" + r.prefix + "}:" + key
}

// Get returns the stored value, [ErrNotFound] on redis.Nil, or a wrapped
// [ErrUnavailable].
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.redis.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, nil
}

// Set stores value with the configured TTL.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.redis.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Remove deletes key. A missing key is not an error.
func (r *Redis) Remove(ctx context.Context, key string) error {
	if err := r.redis.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// RemoveAll deletes every key with a single DEL.
func (r *Redis) RemoveAll(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = r.key(key)
	}
	if err := r.redis.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (r *Redis) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return time.Since(start), nil
}
