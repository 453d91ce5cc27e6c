package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"email-responder/internal/aigateway"
	"email-responder/internal/cache"
	"email-responder/internal/classify"
	"email-responder/internal/config"
	"email-responder/internal/fallback"
	"email-responder/internal/llm"
	"email-responder/internal/pattern"
	"email-responder/internal/pipeline"
	"email-responder/internal/store"
	"email-responder/pkg/logging/logging"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	cache        *cache.LoggingStore
	store        *store.Store
	orchestrator *pipeline.Orchestrator

	closers []func() error
}

func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(logging.Options{
		Env:   cfg.Log.Env,
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
	})
	logging.SetDefault(logger)
	return cfg, logger, nil
}

func openStore(cfg *config.Config, logger *zap.Logger) (*store.Store, error) {
	db, err := store.Open(cfg.Store.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return db, nil
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	// ----- Redis client (only if needed) -----
	var redisClient *redis.Client
	if cfg.Cache.Backend == cache.BackendRedis {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		a.closers = append(a.closers, redisClient.Close)
	}

	// ----- Reply cache -----
	a.cache = cache.New(cache.Config{
		Backend:         cfg.Cache.Backend,
		TTL:             cfg.Cache.TTL,
		Prefix:          cfg.Cache.Prefix,
		MaxEntries:      cfg.Cache.MaxEntries,
		CleanupInterval: cfg.Cache.CleanupInterval,
	}, redisClient)
	if closer, ok := a.cache.Unwrap().(interface{ Close() error }); ok {
		a.closers = append(a.closers, closer.Close)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := cache.Ping(pingCtx, a.cache)
	cancel()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	if redisClient != nil {
		logger.Info("redis connection established", zap.String("addr", cfg.Cache.RedisAddr))
	}

	// ----- History store -----
	db, err := openStore(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = db
	a.closers = append(a.closers, db.Close)

	// ----- External generator -----
	var llmClient llm.Client
	if cfg.AI.Active() {
		llmClient, err = llm.NewClient(llm.Config{
			BaseURL:    cfg.AI.BaseURL,
			APIKey:     cfg.AI.APIKey,
			MaxRetries: cfg.AI.MaxRetries,
			// the gateway bounds each call; the transport limit only needs to be no tighter
			UpstreamTimeout: cfg.AI.Timeout,
		}, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("llm client: %w", err)
		}
		if closer, ok := llmClient.(interface{ Close() error }); ok {
			a.closers = append(a.closers, closer.Close)
		}
	} else {
		logger.Info("ai generation disabled, replies come from cache, patterns and templates")
	}

	gateway := aigateway.New(llmClient, aigateway.Config{
		Model:          cfg.AI.Model,
		MaxPromptChars: cfg.AI.MaxPromptChars,
		Timeout:        cfg.AI.Timeout,
		Temperature:    cfg.AI.Temperature,
		MaxTokens:      cfg.AI.MaxTokens,
	}, logger)

	// ----- Pipeline -----
	patterns := pattern.DefaultPatterns()
	if len(cfg.Patterns) > 0 {
		patterns = cfg.Patterns
	}
	classifier := classify.New(nil)

	a.orchestrator, err = pipeline.New(pipeline.Options{
		Cache:       a.cache,
		Patterns:    pattern.NewMatcher(patterns),
		Classifier:  classifier,
		Fallback:    fallback.New(classifier),
		Generator:   gateway,
		History:     db,
		DefaultType: classify.ParseType(cfg.DefaultType, classify.TypeGeneral),
		Logger:      logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
