package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/tanu360/apple-intelligence-api/internal/core"
)

type countingMetrics struct {
	core.NopMetrics
	mu     sync.Mutex
	hits   int
	misses int
}

func (m *countingMetrics) RecordCacheHit() {
	m.mu.Lock()
	m.hits++
	m.mu.Unlock()
}

func (m *countingMetrics) RecordCacheMiss() {
	m.mu.Lock()
	m.misses++
	m.mu.Unlock()
}

func TestLRUCache_SetGet(t *testing.T) {
	cache := NewCache()
	defer cache.Stop()

	cache.Set("key1", "value1", time.Hour)
	value, found := cache.Get("key1")
	if !found || value != "value1" {
		t.Errorf("expected value1, got %v (found=%v)", value, found)
	}

	if _, found := cache.Get("missing"); found {
		t.Error("should not find missing key")
	}
}

func TestLRUCache_Expiration(t *testing.T) {
	cache := NewCache()
	defer cache.Stop()

	cache.Set("short", "v", 50*time.Millisecond)
	cache.Set("long", "v", time.Hour)
	time.Sleep(100 * time.Millisecond)

	if _, found := cache.Get("short"); found {
		t.Error("short-lived key should be expired")
	}
	if _, found := cache.Get("long"); !found {
		t.Error("long-lived key should still exist")
	}
	if cache.Len() != 1 {
		t.Errorf("expired key should be removed on read, len=%d", cache.Len())
	}
}

func TestLRUCache_NonPositiveTTL(t *testing.T) {
	cache := NewCache()
	defer cache.Stop()

	cache.Set("zero", "v", 0)
	cache.Set("negative", "v", -time.Second)
	if _, found := cache.Get("zero"); found {
		t.Error("zero TTL entry should be expired immediately")
	}
	if _, found := cache.Get("negative"); found {
		t.Error("negative TTL entry should be expired immediately")
	}
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewCacheWithCapacity(2)
	defer cache.Stop()

	cache.Set("key1", 1, time.Hour)
	cache.Set("key2", 2, time.Hour)
	cache.Get("key1")
	cache.Set("key3", 3, time.Hour)

	if _, found := cache.Get("key2"); found {
		t.Error("key2 should be evicted as least recently used")
	}
	for _, key := range []string{"key1", "key3"} {
		if _, found := cache.Get(key); !found {
			t.Errorf("%s should exist", key)
		}
	}
}

func TestLRUCache_DeleteAndClear(t *testing.T) {
	cache := NewCache()
	defer cache.Stop()

	cache.Set("a", 1, time.Hour)
	cache.Set("b", 2, time.Hour)
	cache.Delete("a")
	cache.Delete("never-set")
	if _, found := cache.Get("a"); found {
		t.Error("deleted key should be gone")
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("expected empty cache after Clear, len=%d", cache.Len())
	}
	cache.Set("c", 3, time.Hour)
	if _, found := cache.Get("c"); !found {
		t.Error("cache should be usable after Clear")
	}
}

func TestLRUCache_CleanupExpired(t *testing.T) {
	cache := NewCache()
	defer cache.Stop()

	cache.Set("gone", 1, -time.Second)
	cache.Set("kept", 2, time.Hour)
	cache.cleanupExpired()
	if cache.Len() != 1 {
		t.Errorf("expected 1 item after cleanup, got %d", cache.Len())
	}
}

func TestLRUCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache()
	defer cache.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Set(string(rune('a'+(id+j)%26)), j, time.Hour)
			}
		}(i)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Get(string(rune('a' + (id+j)%26)))
			}
		}(i)
	}
	wg.Wait()
}

func TestCacheService_Availability(t *testing.T) {
	metrics := &countingMetrics{}
	service := NewCacheService(time.Hour, metrics)
	defer service.Stop()

	if _, found := service.GetAvailability("fake"); found {
		t.Error("nothing cached yet")
	}

	want := core.Availability{Available: false, Eligible: true, Reason: "model loading"}
	service.SetAvailability("fake", want)
	got, found := service.GetAvailability("fake")
	if !found || got != want {
		t.Errorf("expected %+v, got %+v (found=%v)", want, got, found)
	}
	if _, found := service.GetAvailability("ollama"); found {
		t.Error("entries are keyed per engine")
	}

	if metrics.hits != 1 || metrics.misses != 2 {
		t.Errorf("expected 1 hit and 2 misses, got %d/%d", metrics.hits, metrics.misses)
	}
}

func TestCacheService_LanguagesAreCopied(t *testing.T) {
	service := NewCacheService(time.Hour, nil)
	defer service.Stop()

	languages := []string{"en", "fr"}
	service.SetLanguages("fake", languages)
	languages[0] = "xx"

	got, found := service.GetLanguages("fake")
	if !found || got[0] != "en" {
		t.Fatalf("cached list should not alias the caller's slice: %v", got)
	}
	got[1] = "yy"
	again, _ := service.GetLanguages("fake")
	if again[1] != "fr" {
		t.Error("returned list should not alias the cached slice")
	}
}

func TestCacheService_Invalidate(t *testing.T) {
	service := NewCacheService(time.Hour, nil)
	defer service.Stop()

	service.SetAvailability("fake", core.Availability{Available: true})
	service.SetLanguages("fake", []string{"en"})
	service.Invalidate("fake")

	if _, found := service.GetAvailability("fake"); found {
		t.Error("availability should be invalidated")
	}
	if _, found := service.GetLanguages("fake"); found {
		t.Error("languages should be invalidated")
	}
}

func TestCacheService_ZeroTTLDisables(t *testing.T) {
	service := NewCacheService(0, nil)
	defer func() {
		if err := service.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	}()

	if service.Enabled() {
		t.Error("zero TTL should disable caching")
	}
	service.SetAvailability("fake", core.Availability{Available: true})
	if _, found := service.GetAvailability("fake"); found {
		t.Error("disabled cache must not return entries")
	}
}

func TestStatusCacheKey(t *testing.T) {
	key := StatusCacheKey("ollama", KindAvailability)
	if key != "status:"+core.CacheKeyVersion+":ollama:availability" {
		t.Errorf("unexpected key %s", key)
	}
}
