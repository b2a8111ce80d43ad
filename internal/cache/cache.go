package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tanu360/apple-intelligence-api/internal/core"
)

// LRUCache is a thread-safe LRU cache with expiration
type LRUCache struct {
	capacity int
	items    map[string]*CacheItem
	mu       sync.RWMutex
	head     *CacheItem
	tail     *CacheItem
	ctx      context.Context
	cancel   context.CancelFunc
}

// CacheItem represents an item in the cache with LRU links
type CacheItem struct {
	Value      any
	Expiration int64
	key        string
	prev       *CacheItem
	next       *CacheItem
}

// NewCache creates a new LRU Cache with the default capacity
func NewCache() *LRUCache {
	return NewCacheWithCapacity(core.CacheDefaultCapacity)
}

// NewCacheWithCapacity creates a new LRU Cache holding at most capacity items
func NewCacheWithCapacity(capacity int) *LRUCache {
	if capacity <= 0 {
		capacity = core.CacheDefaultCapacity
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &LRUCache{
		capacity: capacity,
		items:    make(map[string]*CacheItem),
		ctx:      ctx,
		cancel:   cancel,
	}

	c.head = &CacheItem{}
	c.tail = &CacheItem{}
	c.head.next = c.tail
	c.tail.prev = c.head

	go c.startCleanupWorker()
	return c
}

func (c *LRUCache) startCleanupWorker() {
	ticker := time.NewTicker(core.CacheCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.ctx.Done():
			return
		}
	}
}

// Stop terminates the cache cleanup worker goroutine.
func (c *LRUCache) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Set stores a value in the cache with the given TTL.
func (c *LRUCache) Set(key string, value any, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, exists := c.items[key]; exists {
		item.Value = value
		item.Expiration = time.Now().Add(duration).UnixNano()
		c.moveToFront(item)
		return
	}

	item := &CacheItem{
		Value:      value,
		Expiration: time.Now().Add(duration).UnixNano(),
		key:        key,
	}

	c.addToFront(item)
	c.items[key] = item

	if len(c.items) > c.capacity {
		c.evict()
	}
}

// Get retrieves a value from the cache, returning false if not found or expired.
func (c *LRUCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, found := c.items[key]
	if !found {
		return nil, false
	}

	if time.Now().UnixNano() > item.Expiration {
		c.remove(item)
		delete(c.items, key)
		return nil, false
	}

	c.moveToFront(item)
	return item.Value, true
}

func (c *LRUCache) addToFront(item *CacheItem) {
	item.next = c.head.next
	item.prev = c.head
	c.head.next.prev = item
	c.head.next = item
}

func (c *LRUCache) moveToFront(item *CacheItem) {
	c.remove(item)
	c.addToFront(item)
}

func (c *LRUCache) remove(item *CacheItem) {
	item.prev.next = item.next
	item.next.prev = item.prev
}

func (c *LRUCache) evict() {
	if c.tail.prev == c.head {
		return
	}
	item := c.tail.prev
	c.remove(item)
	delete(c.items, item.key)
}

func (c *LRUCache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixNano()
	for key, item := range c.items {
		if now > item.Expiration {
			c.remove(item)
			delete(c.items, key)
		}
	}
}

// Delete removes key from the cache
func (c *LRUCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, found := c.items[key]; found {
		c.remove(item)
		delete(c.items, key)
	}
}

// Len returns the number of stored items, expired ones included until cleanup
func (c *LRUCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear clears all cache items
func (c *LRUCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.head.next = c.tail
	c.tail.prev = c.head
	c.items = make(map[string]*CacheItem)
}

// Status snapshot kinds
const (
	KindAvailability = "availability"
	KindLanguages    = "languages"
)

// CacheService memoizes capability status reads. A zero TTL disables
// caching so every read goes to the capability.
type CacheService struct {
	status  core.Cache
	ttl     time.Duration
	metrics core.MetricsCollector
}

// NewCacheService creates a CacheService whose entries live for ttl.
func NewCacheService(ttl time.Duration, metrics core.MetricsCollector) *CacheService {
	if metrics == nil {
		metrics = &core.NopMetrics{}
	}
	return &CacheService{
		status:  NewCache(),
		ttl:     ttl,
		metrics: metrics,
	}
}

// Enabled reports whether entries are retained at all.
func (cs *CacheService) Enabled() bool {
	return cs.ttl > 0
}

// GetAvailability returns the cached availability for engine.
func (cs *CacheService) GetAvailability(engine string) (core.Availability, bool) {
	if !cs.Enabled() {
		return core.Availability{}, false
	}
	cached, found := cs.status.Get(StatusCacheKey(engine, KindAvailability))
	if !found {
		cs.metrics.RecordCacheMiss()
		return core.Availability{}, false
	}
	availability, ok := cached.(core.Availability)
	if !ok {
		cs.metrics.RecordCacheMiss()
		return core.Availability{}, false
	}
	cs.metrics.RecordCacheHit()
	return availability, true
}

// SetAvailability stores the availability reported by engine.
func (cs *CacheService) SetAvailability(engine string, availability core.Availability) {
	if !cs.Enabled() {
		return
	}
	cs.status.Set(StatusCacheKey(engine, KindAvailability), availability, cs.ttl)
}

// GetLanguages returns a copy of the cached language list for engine.
func (cs *CacheService) GetLanguages(engine string) ([]string, bool) {
	if !cs.Enabled() {
		return nil, false
	}
	cached, found := cs.status.Get(StatusCacheKey(engine, KindLanguages))
	if !found {
		cs.metrics.RecordCacheMiss()
		return nil, false
	}
	languages, ok := cached.([]string)
	if !ok {
		cs.metrics.RecordCacheMiss()
		return nil, false
	}
	cs.metrics.RecordCacheHit()
	return append([]string(nil), languages...), true
}

// SetLanguages stores a copy of the language list reported by engine.
func (cs *CacheService) SetLanguages(engine string, languages []string) {
	if !cs.Enabled() {
		return
	}
	cs.status.Set(StatusCacheKey(engine, KindLanguages), append([]string(nil), languages...), cs.ttl)
}

// Invalidate drops every cached snapshot for engine.
func (cs *CacheService) Invalidate(engine string) {
	cs.status.Delete(StatusCacheKey(engine, KindAvailability))
	cs.status.Delete(StatusCacheKey(engine, KindLanguages))
}

// Stop terminates the cache cleanup worker.
func (cs *CacheService) Stop() {
	cs.status.Stop()
}

// Close stops the cache service and releases resources.
func (cs *CacheService) Close() error {
	cs.Stop()
	return nil
}

// StatusCacheKey creates a cache key for a status snapshot
func StatusCacheKey(engine, kind string) string {
	return fmt.Sprintf("status:%s:%s:%s", core.CacheKeyVersion, engine, kind)
}
