// Package cache provides a thread-safe, in-memory key-value store with
// TTL-based expiration and size-bounded eviction. Expired entries are
// dropped lazily on access and during eviction.
package cache

import (
	"sort"
	"sync"
	"time"
)

const (
	DefaultMaxSize = 64 << 20 // 64 MB
	DefaultTTL     = 30 * time.Minute

	// MaxItemSize keeps single large payloads out of the heap.
	MaxItemSize = 512 << 10
)

type Item struct {
	Data      []byte
	ExpiresAt time.Time
	Size      int64
}

type Stats struct {
	Items     int   `json:"items"`
	UsedBytes int64 `json:"used_bytes"`
	MaxBytes  int64 `json:"max_bytes"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
}

type MemoryCache struct {
	mu        sync.RWMutex
	items     map[string]Item
	totalSize int64
	maxSize   int64
	ttl       time.Duration
	enabled   bool
	hits      int64
	misses    int64
	now       func() time.Time
}

// New creates a cache holding at most maxBytes. A disabled cache stores
// nothing and always misses.
func New(enabled bool, maxBytes int64, ttl time.Duration) *MemoryCache {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		items:   make(map[string]Item),
		maxSize: maxBytes,
		ttl:     ttl,
		enabled: enabled,
		now:     time.Now,
	}
}

func (c *MemoryCache) Enabled() bool {
	return c.enabled
}

// Set stores a value with the configured TTL. Items larger than
// MaxItemSize or half the capacity are ignored.
func (c *MemoryCache) Set(key string, data []byte) {
	if !c.enabled {
		return
	}

	size := int64(len(data))
	if size > c.maxSize/2 || size > MaxItemSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if oldItem, exists := c.items[key]; exists {
		c.totalSize -= oldItem.Size
		delete(c.items, key)
	}

	if c.totalSize+size > c.maxSize {
		c.prune(size)
	}

	c.items[key] = Item{
		Data:      data,
		ExpiresAt: c.now().Add(c.ttl),
		Size:      size,
	}
	c.totalSize += size
}

// Get retrieves an item if it exists and hasn't expired.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if !found {
		c.misses++
		return nil, false
	}
	if c.now().After(item.ExpiresAt) {
		delete(c.items, key)
		c.totalSize -= item.Size
		c.misses++
		return nil, false
	}
	c.hits++
	return item.Data, true
}

// Delete explicitly removes an item from the cache.
func (c *MemoryCache) Delete(key string) {
	if !c.enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if item, found := c.items[key]; found {
		delete(c.items, key)
		c.totalSize -= item.Size
	}
}

func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Items:     len(c.items),
		UsedBytes: c.totalSize,
		MaxBytes:  c.maxSize,
		Hits:      c.hits,
		Misses:    c.misses,
	}
}

// prune drops expired items, then evicts the soonest-expiring ones until
// usage is under 80% of capacity and needed bytes fit. Caller holds the lock.
func (c *MemoryCache) prune(needed int64) {
	now := c.now()
	for k, v := range c.items {
		if now.After(v.ExpiresAt) {
			delete(c.items, k)
			c.totalSize -= v.Size
		}
	}

	targetSize := int64(float64(c.maxSize) * 0.80)
	if c.totalSize+needed <= targetSize {
		return
	}

	type candidate struct {
		Key       string
		ExpiresAt time.Time
		Size      int64
	}

	candidates := make([]candidate, 0, len(c.items))
	for k, v := range c.items {
		candidates = append(candidates, candidate{k, v.ExpiresAt, v.Size})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ExpiresAt.Before(candidates[j].ExpiresAt)
	})

	for _, cand := range candidates {
		if c.totalSize+needed <= targetSize {
			break
		}
		delete(c.items, cand.Key)
		c.totalSize -= cand.Size
	}
}
