package metrics

import (
	"sync"

	"github.com/flockhq/flock/pkg/cache"
)

// Collector keeps in-process request totals per endpoint and exposes the
// API key cache statistics. Endpoints are keyed "<transport> <method>",
// e.g. "grpc /flock.v1.Data/Create" or "http POST /v1/models/:model".
type Collector struct {
	mu        sync.Mutex
	endpoints map[string]*endpointStats

	keyCache cache.Cache
}

type endpointStats struct {
	requests     uint64
	errors       uint64
	totalSeconds float64
}

// CacheMetrics is a point-in-time view of the API key cache
type CacheMetrics struct {
	Hits        uint64
	Misses      uint64
	HitRate     float64
	KeysCurrent int64
	MemoryBytes int64
	Evictions   uint64
}

// APIMetrics is a point-in-time copy of the endpoint totals
type APIMetrics struct {
	RequestCounts        map[string]uint64
	ErrorCounts          map[string]uint64
	TotalDurationSeconds map[string]float64
}

// sizedCache is implemented by in-process caches that can report their footprint
type sizedCache interface {
	Len() int
	Size() int64
}

func NewCollector() *Collector {
	return &Collector{endpoints: make(map[string]*endpointStats)}
}

// SetCache attaches the API key cache whose statistics GetCacheMetrics reports
func (c *Collector) SetCache(keyCache cache.Cache) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keyCache = keyCache
}

// Observe records one finished request on endpoint
func (c *Collector) Observe(endpoint string, seconds float64, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, ok := c.endpoints[endpoint]
	if !ok {
		stats = &endpointStats{}
		c.endpoints[endpoint] = stats
	}
	stats.requests++
	stats.totalSeconds += seconds
	if failed {
		stats.errors++
	}
}

func (c *Collector) GetCacheMetrics() *CacheMetrics {
	c.mu.Lock()
	keyCache := c.keyCache
	c.mu.Unlock()

	if keyCache == nil {
		return &CacheMetrics{}
	}
	m := keyCache.Metrics()
	if m == nil {
		return &CacheMetrics{}
	}

	out := &CacheMetrics{
		Hits:      m.Hits,
		Misses:    m.Misses,
		HitRate:   m.HitRate(),
		Evictions: m.KeysEvicted,
	}
	if sized, ok := keyCache.(sizedCache); ok {
		out.KeysCurrent = int64(sized.Len())
		out.MemoryBytes = sized.Size()
	}
	return out
}

func (c *Collector) GetAPIMetrics() *APIMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := &APIMetrics{
		RequestCounts:        make(map[string]uint64, len(c.endpoints)),
		ErrorCounts:          make(map[string]uint64, len(c.endpoints)),
		TotalDurationSeconds: make(map[string]float64, len(c.endpoints)),
	}
	for endpoint, stats := range c.endpoints {
		out.RequestCounts[endpoint] = stats.requests
		out.TotalDurationSeconds[endpoint] = stats.totalSeconds
		if stats.errors > 0 {
			out.ErrorCounts[endpoint] = stats.errors
		}
	}
	return out
}
