package geo

import (
	"testing"
	"time"

	"github.com/cityboard/listings/internal/models"
)

func TestResolveKnownIP(t *testing.T) {
	provider := NewMockProvider()
	provider.AddEntry("203.0.113.10", &Info{
		Region:     "Texas",
		City:       "Austin",
		PostalCode: "73301",
	})
	r := NewResolver(provider, 100, time.Minute, nil)

	got := r.Resolve("203.0.113.10")
	want := models.ViewerContext{State: "Texas", City: "Austin", Pincode: "73301"}
	if got != want {
		t.Errorf("Resolve = %+v, want %+v", got, want)
	}
}

func TestResolveUnknownIPIsPermissive(t *testing.T) {
	r := NewResolver(NewMockProvider(), 100, time.Minute, nil)

	for _, ip := range []string{"", "not-an-ip", "198.51.100.1"} {
		if got := r.Resolve(ip); got != (models.ViewerContext{}) {
			t.Errorf("Resolve(%q) = %+v, want zero context", ip, got)
		}
	}
}

func TestResolveNilProviderIsPermissive(t *testing.T) {
	r := NewResolver(nil, 100, time.Minute, nil)
	if got := r.Resolve("203.0.113.10"); got != (models.ViewerContext{}) {
		t.Errorf("Resolve with nil provider = %+v, want zero context", got)
	}
}

func TestLookupCacheExpiry(t *testing.T) {
	c := &lookupCache{
		data:    make(map[string]*cacheEntry),
		maxSize: 2,
		ttl:     -time.Second, // already expired on insert
	}
	c.set("1.2.3.4", &Info{City: "Austin"})

	if _, ok := c.get("1.2.3.4"); ok {
		t.Error("expired entry served from cache")
	}
}

func TestLookupCacheEviction(t *testing.T) {
	c := &lookupCache{
		data:    make(map[string]*cacheEntry),
		maxSize: 1,
		ttl:     time.Minute,
	}
	c.set("1.1.1.1", &Info{City: "A"})
	c.set("2.2.2.2", &Info{City: "B"})

	if len(c.data) > 1 {
		t.Errorf("cache grew past maxSize: %d entries", len(c.data))
	}
}
