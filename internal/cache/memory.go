package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	key       string
	reply     string
	createdAt time.Time
}

// MemoryStore is an in-process Store guarded by a single mutex.
//
// Expiry is checked lazily on Get. A background sweep can be enabled to reclaim
// entries that are never looked up again, and MaxEntries bounds the store with
// least-recently-used eviction.
type MemoryStore struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	items      map[string]*list.Element
	order      *list.List // front = most recently used
	now        func() time.Time

	stopCleanup chan struct{}
	cleanupOnce sync.Once
}

// MemoryConfig configures a MemoryStore.
type MemoryConfig struct {
	TTL time.Duration
	// MaxEntries <= 0 leaves the store unbounded.
	MaxEntries int
	// CleanupInterval <= 0 disables the background sweep.
	CleanupInterval time.Duration
}

// NewMemoryStore creates an in-memory store. A TTL <= 0 uses DefaultTTL.
func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	c := &MemoryStore{
		ttl:         cfg.TTL,
		maxEntries:  cfg.MaxEntries,
		items:       make(map[string]*list.Element),
		order:       list.New(),
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	if cfg.CleanupInterval > 0 {
		go c.cleanupExpired(cfg.CleanupInterval)
	}

	return c
}

func (c *MemoryStore) expired(e *memoryEntry, now time.Time) bool {
	return now.Sub(e.createdAt) >= c.ttl
}

// Get retrieves a reply. A stale entry is deleted and reported as a miss.
func (c *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return "", false, nil
	}

	entry := el.Value.(*memoryEntry)
	if c.expired(entry, c.now()) {
		c.removeElement(el)
		return "", false, nil
	}

	c.order.MoveToFront(el)
	return entry.reply, true, nil
}

// Put inserts or replaces the entry under key with a fresh creation time.
func (c *MemoryStore) Put(_ context.Context, key string, reply string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &memoryEntry{key: key, reply: reply, createdAt: c.now()}

	if el, ok := c.items[key]; ok {
		el.Value = entry
		c.order.MoveToFront(el)
		return nil
	}

	c.items[key] = c.order.PushFront(entry)

	if c.maxEntries > 0 {
		for len(c.items) > c.maxEntries {
			c.removeElement(c.order.Back())
		}
	}
	return nil
}

// Clear removes all entries.
func (c *MemoryStore) Clear(_ context.Context) error {
	c.mu.Lock()
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.mu.Unlock()
	return nil
}

// Size returns the number of entries, including any not yet found stale.
func (c *MemoryStore) Size(_ context.Context) (int, error) {
	return c.Len(), nil
}

// Len returns the number of items currently in the cache.
func (c *MemoryStore) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns up to n fingerprints, most recently used first.
func (c *MemoryStore) Keys(n int) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, n)
	for el := c.order.Front(); el != nil && len(keys) < n; el = el.Next() {
		keys = append(keys, el.Value.(*memoryEntry).key)
	}
	return keys
}

// TTL reports the shared entry lifetime.
func (c *MemoryStore) TTL() time.Duration {
	return c.ttl
}

// caller holds mu
func (c *MemoryStore) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	c.order.Remove(el)
	delete(c.items, el.Value.(*memoryEntry).key)
}

// cleanupExpired runs periodically to remove expired entries.
func (c *MemoryStore) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := c.now()
			for el := c.order.Back(); el != nil; {
				prev := el.Prev()
				if c.expired(el.Value.(*memoryEntry), now) {
					c.removeElement(el)
				}
				el = prev
			}
			c.mu.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine. Call this on shutdown or in tests.
func (c *MemoryStore) Close() error {
	c.cleanupOnce.Do(func() {
		close(c.stopCleanup)
	})
	return nil
}
