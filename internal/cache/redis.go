package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis, relying on native key expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type RedisConfig struct {
	Prefix string
	TTL    time.Duration
}

// NewRedisStore creates a Redis-backed store. A TTL <= 0 uses DefaultTTL.
func NewRedisStore(client *redis.Client, config RedisConfig) *RedisStore {
	ttl := config.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		prefix: config.Prefix,
		ttl:    ttl,
	}
}

// key builds the final Redis key with prefix.
func (c *RedisStore) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + ":" + k
}

func (c *RedisStore) pattern() string {
	if c.prefix == "" {
		return "*"
	}
	return c.prefix + ":*"
}

// Get retrieves a reply. Expired keys are already gone in Redis, so a stale read is a clean miss.
// On Redis error it returns ("", false, err) so the caller can log and treat it as a miss.
func (c *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, fmt.Errorf("context error: %w", err)
	}

	res, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get failed: %w", err)
	}

	return res, true, nil
}

// Put stores a reply with the store TTL, replacing any previous value.
func (c *RedisStore) Put(ctx context.Context, key string, reply string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := c.client.Set(ctx, c.key(key), reply, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Clear deletes every key under the prefix.
func (c *RedisStore) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.pattern(), 500).Iterator()
	batch := make([]string, 0, 500)

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis del failed: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis del failed: %w", err)
		}
	}
	return nil
}

// Size counts keys under the prefix.
func (c *RedisStore) Size(ctx context.Context) (int, error) {
	n := 0
	iter := c.client.Scan(ctx, 0, c.pattern(), 500).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis scan failed: %w", err)
	}
	return n, nil
}

// TTL reports the expiry set on every key.
func (c *RedisStore) TTL() time.Duration {
	return c.ttl
}

// Ping checks if Redis connection is healthy.
func (c *RedisStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	return c.client.Ping(ctx).Err()
}
