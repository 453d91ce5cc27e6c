package cache

import (
	"context"
	"time"

	"email-responder/internal/metrics"
	"email-responder/pkg/logging/logging"

	"go.uber.org/zap"
)

// LoggingStore wraps a Store with logging + metrics.
type LoggingStore struct {
	inner Store
}

// NewLoggingStore returns a store that logs and records metrics.
func NewLoggingStore(inner Store) *LoggingStore {
	return &LoggingStore{inner: inner}
}

// Unwrap returns the decorated store.
func (c *LoggingStore) Unwrap() Store {
	return c.inner
}

func (c *LoggingStore) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	value, ok, err := c.inner.Get(ctx, key)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	result := "miss"
	if err != nil {
		result = "error"
	} else if ok {
		result = "hit"
	}
	metrics.CacheOperationsTotal.WithLabelValues("get", result).Inc()

	fields := []zap.Field{
		zap.String("cache_key", shortKey(key)),
		zap.String("cache_result", result), // hit | miss | error
		zap.Float64("latency_ms", latencyMs),
	}

	logger := logging.L(ctx)
	if err != nil {
		logger.Error("reply_cache_get", append(fields, zap.Error(err))...)
	} else {
		logger.Debug("reply_cache_get", fields...)
	}

	return value, ok, err
}

func (c *LoggingStore) Put(ctx context.Context, key string, reply string) error {
	start := time.Now()
	err := c.inner.Put(ctx, key, reply)
	latencyMs := float64(time.Since(start).Microseconds()) / 1000.0

	fields := []zap.Field{
		zap.String("cache_key", shortKey(key)),
		zap.Float64("latency_ms", latencyMs),
	}

	logger := logging.L(ctx)
	if err != nil {
		metrics.CacheOperationsTotal.WithLabelValues("put", "error").Inc()
		logger.Error("reply_cache_put", append(fields, zap.Error(err))...)
	} else {
		metrics.CacheOperationsTotal.WithLabelValues("put", "success").Inc()
		logger.Debug("reply_cache_put", fields...)
	}

	return err
}

func (c *LoggingStore) Clear(ctx context.Context) error {
	err := c.inner.Clear(ctx)
	logger := logging.L(ctx)
	if err != nil {
		metrics.CacheOperationsTotal.WithLabelValues("clear", "error").Inc()
		logger.Error("reply_cache_clear", zap.Error(err))
	} else {
		metrics.CacheOperationsTotal.WithLabelValues("clear", "success").Inc()
		logger.Info("reply_cache_clear")
	}
	return err
}

func (c *LoggingStore) Size(ctx context.Context) (int, error) {
	return c.inner.Size(ctx)
}
