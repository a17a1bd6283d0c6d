package geo

import (
	"net"
	"sync"
	"time"

	"github.com/cityboard/listings/internal/metrics"
	"github.com/cityboard/listings/internal/models"
)

// Info holds geographic information for an IP.
type Info struct {
	Country     string
	CountryCode string
	Region      string
	City        string
	PostalCode  string
	Latitude    float64
	Longitude   float64
	Timezone    string
}

// Provider interface for IP geolocation.
type Provider interface {
	Lookup(ip string) (*Info, error)
	Close() error
}

// Resolver turns client IPs into viewer contexts for ad targeting.
// Failed or missing lookups yield the zero ViewerContext, which the
// selector treats as fully permissive.
type Resolver struct {
	provider Provider
	cache    *lookupCache
	metrics  *metrics.Metrics
}

// lookupCache caches geo lookups.
type lookupCache struct {
	mu      sync.RWMutex
	data    map[string]*cacheEntry
	maxSize int
	ttl     time.Duration
}

type cacheEntry struct {
	info      *Info
	expiresAt time.Time
}

// NewResolver creates a new viewer geo resolver.
func NewResolver(provider Provider, cacheSize int, cacheTTL time.Duration, m *metrics.Metrics) *Resolver {
	return &Resolver{
		provider: provider,
		cache: &lookupCache{
			data:    make(map[string]*cacheEntry),
			maxSize: cacheSize,
			ttl:     cacheTTL,
		},
		metrics: m,
	}
}

// Resolve returns the viewer context for the given client IP.
func (r *Resolver) Resolve(ip string) models.ViewerContext {
	info := r.lookup(ip)
	if info == nil {
		return models.ViewerContext{}
	}
	return models.ViewerContext{
		State:   info.Region,
		City:    info.City,
		Pincode: info.PostalCode,
	}
}

// lookup performs a cached geo lookup.
func (r *Resolver) lookup(ip string) *Info {
	if ip == "" || r.provider == nil {
		return nil
	}

	start := time.Now()
	if info, ok := r.cache.get(ip); ok {
		if r.metrics != nil {
			r.metrics.RecordGeoLookup(true, time.Since(start))
		}
		return info
	}

	info, err := r.provider.Lookup(ip)
	if err != nil {
		return nil
	}

	r.cache.set(ip, info)
	if r.metrics != nil {
		r.metrics.RecordGeoLookup(false, time.Since(start))
	}

	return info
}

func (c *lookupCache) get(ip string) (*Info, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.data[ip]
	if !ok {
		return nil, false
	}

	if time.Now().After(entry.expiresAt) {
		return nil, false
	}

	return entry.info, true
}

func (c *lookupCache) set(ip string, info *Info) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Evict if at capacity (simple FIFO)
	if len(c.data) >= c.maxSize {
		for k := range c.data {
			delete(c.data, k)
			break
		}
	}

	c.data[ip] = &cacheEntry{
		info:      info,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// MockProvider is a simple geo provider for testing.
type MockProvider struct {
	data map[string]*Info
}

func NewMockProvider() *MockProvider {
	return &MockProvider{
		data: make(map[string]*Info),
	}
}

func (m *MockProvider) AddEntry(ip string, info *Info) {
	m.data[ip] = info
}

func (m *MockProvider) Lookup(ip string) (*Info, error) {
	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return nil, nil
	}

	if info, ok := m.data[ip]; ok {
		return info, nil
	}
	return nil, nil
}

func (m *MockProvider) Close() error {
	return nil
}
