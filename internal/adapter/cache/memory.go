package cache

import (
	"sync"
	"time"

	"repolens/internal/port"
)

var _ port.CompletionCache = (*Memory)(nil)

// Memory is a size-bounded LRU with per-entry expiry.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	order   []string
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type memEntry struct {
	value     string
	timestamp time.Time
}

func NewMemory(maxSize int, ttl time.Duration) *Memory {
	if maxSize <= 0 {
		maxSize = 500
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Memory{
		entries: make(map[string]*memEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *Memory) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return "", false
	}
	if c.now().Sub(entry.timestamp) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return "", false
	}
	c.moveToEnd(key)
	return entry.value, true
}

func (c *Memory) Put(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = &memEntry{value: value, timestamp: c.now()}
		c.moveToEnd(key)
		return nil
	}
	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = &memEntry{value: value, timestamp: c.now()}
	c.order = append(c.order, key)
	return nil
}

func (c *Memory) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*memEntry)
	c.order = c.order[:0]
}

func (c *Memory) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Memory) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *Memory) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *Memory) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
