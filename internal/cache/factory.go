package cache

import (
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	Backend         string
	TTL             time.Duration
	Prefix          string
	MaxEntries      int
	CleanupInterval time.Duration
}

// New builds the configured backend wrapped in a LoggingStore.
// The redis backend needs a non-nil client; otherwise the memory store is used.
func New(cfg Config, redisClient *redis.Client) *LoggingStore {
	switch {
	case cfg.Backend == BackendRedis && redisClient != nil:
		return NewLoggingStore(NewRedisStore(redisClient, RedisConfig{
			Prefix: cfg.Prefix,
			TTL:    cfg.TTL,
		}))
	default:
		return NewLoggingStore(NewMemoryStore(MemoryConfig{
			TTL:             cfg.TTL,
			MaxEntries:      cfg.MaxEntries,
			CleanupInterval: cfg.CleanupInterval,
		}))
	}
}
