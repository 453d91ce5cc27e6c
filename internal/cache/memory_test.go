package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newTestStore(ttl time.Duration, maxEntries int) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	c := NewMemoryStore(MemoryConfig{TTL: ttl, MaxEntries: maxEntries})
	c.now = clock.Now
	return c, clock
}

func TestMemoryStore_TTL(t *testing.T) {
	c, clock := newTestStore(30*time.Minute, 0)
	defer c.Close()

	ctx := context.Background()
	key := Fingerprint("Hello", "general")

	if err := c.Put(ctx, key, "hello"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, hit, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !hit {
		t.Fatalf("expected hit immediately after Put")
	}
	if got != "hello" {
		t.Fatalf("expected 'hello', got %q", got)
	}

	clock.Advance(30*time.Minute - time.Second)
	if _, hit, _ := c.Get(ctx, key); !hit {
		t.Fatalf("expected hit inside the TTL window")
	}

	clock.Advance(time.Second)
	_, hit, err = c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get after TTL failed: %v", err)
	}
	if hit {
		t.Fatalf("expected miss after TTL expiry")
	}
	if n, _ := c.Size(ctx); n != 0 {
		t.Fatalf("expected stale entry to be removed, size=%d", n)
	}
}

func TestMemoryStore_PutResetsCreation(t *testing.T) {
	c, clock := newTestStore(time.Minute, 0)
	ctx := context.Background()

	_ = c.Put(ctx, "k", "v1")
	clock.Advance(50 * time.Second)
	_ = c.Put(ctx, "k", "v2")
	clock.Advance(50 * time.Second)

	got, hit, _ := c.Get(ctx, "k")
	if !hit || got != "v2" {
		t.Fatalf("expected re-inserted entry v2 to be live, got %q hit=%v", got, hit)
	}
	if n := c.Len(); n != 1 {
		t.Fatalf("expected a single entry, got %d", n)
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	c, _ := newTestStore(time.Minute, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_ = c.Put(ctx, fmt.Sprintf("k%d", i), "v")
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := c.Size(ctx); n != 0 {
		t.Fatalf("expected empty store, got %d", n)
	}
	if _, hit, _ := c.Get(ctx, "k1"); hit {
		t.Fatalf("expected miss after Clear")
	}
	_ = c.Put(ctx, "k1", "again")
	if _, hit, _ := c.Get(ctx, "k1"); !hit {
		t.Fatalf("expected store to be usable after Clear")
	}
}

func TestMemoryStore_MaxEntriesEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestStore(time.Minute, 2)
	ctx := context.Background()

	_ = c.Put(ctx, "a", "1")
	_ = c.Put(ctx, "b", "2")
	_, _, _ = c.Get(ctx, "a") // a is now most recent
	_ = c.Put(ctx, "c", "3")

	if _, hit, _ := c.Get(ctx, "b"); hit {
		t.Fatalf("expected b to be evicted")
	}
	if _, hit, _ := c.Get(ctx, "a"); !hit {
		t.Fatalf("expected a to survive")
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	if keys := c.Keys(5); len(keys) != 2 || keys[0] != "a" {
		t.Fatalf("unexpected key order: %v", keys)
	}
}

func TestMemoryStore_BackgroundSweep(t *testing.T) {
	c := NewMemoryStore(MemoryConfig{TTL: 10 * time.Millisecond, CleanupInterval: 5 * time.Millisecond})
	defer c.Close()

	_ = c.Put(context.Background(), "k", "v")

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.Len() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected sweep to remove expired entry")
}

func TestMemoryStore_Concurrent(t *testing.T) {
	c := NewMemoryStore(MemoryConfig{TTL: time.Minute})
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", i%20)
				_ = c.Put(ctx, key, fmt.Sprintf("g%d", g))
				_, _, _ = c.Get(ctx, key)
				if i%50 == 0 {
					_ = c.Clear(ctx)
				}
			}
		}(g)
	}
	wg.Wait()

	if n := c.Len(); n > 20 {
		t.Fatalf("unexpected entry count %d", n)
	}
}

func TestFingerprintNormalizes(t *testing.T) {
	a := Fingerprint("  Hello World ", "general")
	b := Fingerprint("hello world", "general")
	if a != b {
		t.Fatalf("expected normalized fingerprints to match")
	}
	if a == Fingerprint("hello world", "billing") {
		t.Fatalf("type hint must be part of the fingerprint")
	}
	if len(a) != 64 {
		t.Fatalf("expected sha256 hex digest, got %d chars", len(a))
	}
}

func TestNewFallsBackToMemory(t *testing.T) {
	s := New(Config{Backend: BackendRedis, TTL: time.Minute}, nil)
	if _, ok := s.Unwrap().(*MemoryStore); !ok {
		t.Fatalf("expected memory store when no redis client is given")
	}
}
