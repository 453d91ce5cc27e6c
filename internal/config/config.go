// Package config holds the service configuration and its defaults.
package config

import (
	"errors"
	"fmt"
	"time"

	"email-responder/internal/classify"
	"email-responder/internal/pattern"
)

// Config holds all responder configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Cache  CacheConfig  `yaml:"cache"`
	AI     AIConfig     `yaml:"ai"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`

	// DefaultType is used when a request carries no response type hint.
	DefaultType string `yaml:"default_type"`
	// Patterns replaces the built-in quick-reply table when non-empty.
	Patterns []pattern.Pattern `yaml:"patterns"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	// CORSOrigins lists browser origins allowed to call the API; "*" allows any.
	CORSOrigins []string `yaml:"cors_origins"`
}

// CacheConfig selects and sizes the reply cache.
type CacheConfig struct {
	Backend         string        `yaml:"backend"`
	TTL             time.Duration `yaml:"ttl"`
	MaxEntries      int           `yaml:"max_entries"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	Prefix          string        `yaml:"prefix"`
	RedisAddr       string        `yaml:"redis_addr"`
}

// AIConfig controls the external generator. It is only used when Enabled and an API key is set.
type AIConfig struct {
	Enabled        bool          `yaml:"enabled"`
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	Model          string        `yaml:"model"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxPromptChars int           `yaml:"max_prompt_chars"`
	MaxRetries     int           `yaml:"max_retries"`
	Temperature    float32       `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
}

// Active reports whether the generator stage should be wired at all.
func (c AIConfig) Active() bool {
	return c.Enabled && c.APIKey != ""
}

type StoreConfig struct {
	DBPath string `yaml:"db_path"`
}

type LogConfig struct {
	Env   string `yaml:"env"`
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    512 * 1024,
			CORSOrigins:     []string{"*"},
		},
		Cache: CacheConfig{
			Backend:   "memory",
			TTL:       30 * time.Minute,
			Prefix:    "responder",
			RedisAddr: "127.0.0.1:6379",
		},
		AI: AIConfig{
			Enabled:        true,
			BaseURL:        "https://api.openai.com",
			Model:          "gpt-4o-mini",
			Timeout:        10 * time.Second,
			MaxPromptChars: 500,
			Temperature:    0.4,
			MaxTokens:      300,
		},
		Store: StoreConfig{
			DBPath: "email_responses.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		DefaultType: string(classify.TypeGeneral),
	}
}

// Validate checks the fields the service cannot start without.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.max_body_bytes must be positive"))
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			errs = append(errs, errors.New("cache.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if c.Cache.MaxEntries < 0 {
		errs = append(errs, errors.New("cache.max_entries must not be negative"))
	}
	if c.AI.Active() {
		if c.AI.BaseURL == "" {
			errs = append(errs, errors.New("ai.base_url is required when ai is enabled"))
		}
		if c.AI.Timeout <= 0 {
			errs = append(errs, errors.New("ai.timeout must be positive"))
		}
		if c.AI.MaxRetries < 0 {
			errs = append(errs, errors.New("ai.max_retries must not be negative"))
		}
	}
	if c.AI.MaxPromptChars <= 0 {
		errs = append(errs, errors.New("ai.max_prompt_chars must be positive"))
	}
	if c.Store.DBPath == "" {
		errs = append(errs, errors.New("store.db_path is required"))
	}

	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
