package memorycache

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestCache(t *testing.T, maxBytes int64) *Cache {
	t.Helper()
	c, err := New(&Config{MaxSizeBytes: maxBytes, DefaultTTL: time.Minute})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	return c
}

func TestCache_SetAndGet(t *testing.T) {
	cache := newTestCache(t, 1024*1024)
	ctx := context.Background()

	if err := cache.Set(ctx, "apikey:h1", `{"ID":"k1"}`, time.Minute); err != nil {
		t.Fatalf("failed to set value: %v", err)
	}

	value, found := cache.Get(ctx, "apikey:h1")
	if !found {
		t.Fatal("expected to find apikey:h1")
	}
	if value != `{"ID":"k1"}` {
		t.Errorf("unexpected value %v", value)
	}

	if _, found := cache.Get(ctx, "nonexistent"); found {
		t.Error("expected not to find nonexistent key")
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	cache := newTestCache(t, 1024*1024)
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Set(ctx, "short", "v", time.Second)
	cache.Set(ctx, "default", "v", 0)

	now = now.Add(2 * time.Second)
	if _, found := cache.Get(ctx, "short"); found {
		t.Error("expected short entry to expire")
	}
	if _, found := cache.Get(ctx, "default"); !found {
		t.Error("expected entry with default TTL to survive")
	}

	now = now.Add(time.Minute)
	if _, found := cache.Get(ctx, "default"); found {
		t.Error("expected default TTL entry to expire after a minute")
	}
	if cache.Len() != 0 {
		t.Errorf("expected expired entries to be removed, got %d", cache.Len())
	}
}

func TestCache_LRUEviction(t *testing.T) {
	// Room for roughly three entries
	cache := newTestCache(t, 3*(entryOverhead+2+10))
	ctx := context.Background()

	for _, key := range []string{"k1", "k2", "k3"} {
		cache.Set(ctx, key, strings.Repeat("x", 10), time.Minute)
	}
	// Touch k1 so k2 becomes least recently used
	cache.Get(ctx, "k1")
	cache.Set(ctx, "k4", strings.Repeat("x", 10), time.Minute)

	if _, found := cache.Get(ctx, "k2"); found {
		t.Error("expected least recently used key k2 to be evicted")
	}
	for _, key := range []string{"k1", "k3", "k4"} {
		if _, found := cache.Get(ctx, key); !found {
			t.Errorf("expected %s to remain", key)
		}
	}
	if cache.Metrics().KeysEvicted != 1 {
		t.Errorf("expected 1 eviction, got %d", cache.Metrics().KeysEvicted)
	}
}

func TestCache_SizeTracksValues(t *testing.T) {
	cache := newTestCache(t, 1024*1024)
	ctx := context.Background()

	cache.Set(ctx, "k", strings.Repeat("a", 100), time.Minute)
	first := cache.Size()
	cache.Set(ctx, "k", strings.Repeat("a", 10), time.Minute)

	if cache.Size() != first-90 {
		t.Errorf("expected size to shrink by 90, got %d -> %d", first, cache.Size())
	}
	if cache.Len() != 1 {
		t.Errorf("expected 1 item, got %d", cache.Len())
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	cache := newTestCache(t, 1024*1024)
	ctx := context.Background()

	cache.Set(ctx, "key1", "value1", time.Minute)
	cache.Set(ctx, "key2", "value2", time.Minute)

	if err := cache.Delete(ctx, "key1"); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if _, found := cache.Get(ctx, "key1"); found {
		t.Error("expected not to find key1 after deletion")
	}
	if err := cache.Delete(ctx, "nonexistent"); err != nil {
		t.Fatalf("delete of non-existent key should not error: %v", err)
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}
	if cache.Len() != 0 || cache.Size() != 0 {
		t.Errorf("expected empty cache after clear, got %d items / %d bytes", cache.Len(), cache.Size())
	}
}

func TestCache_Metrics(t *testing.T) {
	cache := newTestCache(t, 1024*1024)
	ctx := context.Background()

	cache.Set(ctx, "key1", "value1", time.Minute)
	cache.Get(ctx, "key1")
	cache.Get(ctx, "nonexistent")

	metrics := cache.Metrics()
	if metrics.Hits != 1 || metrics.Misses != 1 || metrics.KeysAdded != 1 {
		t.Errorf("unexpected metrics: %+v", metrics)
	}
	if metrics.HitRate() != 0.5 {
		t.Errorf("expected hit rate 0.5, got %f", metrics.HitRate())
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := newTestCache(t, 1024*1024)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		key := string(rune('a' + i))
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Set(ctx, key, "v", time.Minute)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Get(ctx, key)
			}
		}()
	}
	wg.Wait()

	if cache.Len() != 10 {
		t.Errorf("expected 10 keys, got %d", cache.Len())
	}
}
