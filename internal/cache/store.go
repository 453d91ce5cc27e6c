package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long a resolved reply stays servable.
const DefaultTTL = 30 * time.Minute

// Store maps a message fingerprint to a previously resolved reply.
// All entries share the TTL the store was built with.
// Implemented by the memory store (single process) and the Redis store (shared).
type Store interface {
	// Get returns the reply if present and unexpired. Expired entries are removed.
	Get(ctx context.Context, key string) (string, bool, error)
	// Put inserts or replaces the entry and restarts its TTL.
	Put(ctx context.Context, key string, reply string) error
	// Clear drops every entry.
	Clear(ctx context.Context) error
	// Size is the current entry count, for observability only.
	Size(ctx context.Context) (int, error)
}

// unwrap walks decorators until a store satisfying ok is found.
func unwrap(s Store, ok func(Store) bool) Store {
	for s != nil {
		if ok(s) {
			return s
		}
		u, isWrapper := s.(interface{ Unwrap() Store })
		if !isWrapper {
			return nil
		}
		s = u.Unwrap()
	}
	return nil
}

// TTLOf reports the entry lifetime of s, looking through decorators. Zero when unknown.
func TTLOf(s Store) time.Duration {
	found := unwrap(s, func(s Store) bool {
		_, ok := s.(interface{ TTL() time.Duration })
		return ok
	})
	if found == nil {
		return 0
	}
	return found.(interface{ TTL() time.Duration }).TTL()
}

// Ping checks the backend behind s when it has one. In-process stores always succeed.
func Ping(ctx context.Context, s Store) error {
	found := unwrap(s, func(s Store) bool {
		_, ok := s.(interface{ Ping(context.Context) error })
		return ok
	})
	if found == nil {
		return nil
	}
	return found.(interface{ Ping(context.Context) error }).Ping(ctx)
}

// SampleKeys lists up to n keys when the backend can enumerate them cheaply, otherwise none.
func SampleKeys(s Store, n int) []string {
	found := unwrap(s, func(s Store) bool {
		_, ok := s.(interface{ Keys(int) []string })
		return ok
	})
	if found == nil {
		return []string{}
	}
	return found.(interface{ Keys(int) []string }).Keys(n)
}
