package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Time-to-live of each cached lookup kind.
const (
	propertyTTL = 30 * 24 * time.Hour
	rentTTL     = 14 * 24 * time.Hour
	valueTTL    = 14 * 24 * time.Hour
	marketTTL   = 30 * 24 * time.Hour
	compsTTL    = 48 * time.Hour
)

const (
	cacheCapacity = 10000
	// staleWindow is how long past its TTL an entry may still be served
	// while the provider is rate limited or failing.
	staleWindow = 7 * 24 * time.Hour
)

// cacheKey hashes the normalized address or zip so raw addresses never
// appear in keys.
func cacheKey(endpoint, addressOrZip string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(addressOrZip))))
	return "rentcast:" + endpoint + ":" + hex.EncodeToString(sum[:])
}

type cacheEntry struct {
	value      interface{}
	freshUntil time.Time
}

// responseCache holds normalized provider responses. Entries stay in the
// underlying cache for staleWindow past their TTL so Stale can serve them.
type responseCache struct {
	items *ttlcache.Cache[string, cacheEntry]
	stale time.Duration
	now   func() time.Time
}

func newResponseCache(capacity uint64, stale time.Duration) *responseCache {
	return &responseCache{
		items: ttlcache.New[string, cacheEntry](
			ttlcache.WithCapacity[string, cacheEntry](capacity),
			ttlcache.WithDisableTouchOnHit[string, cacheEntry](),
		),
		stale: stale,
		now:   time.Now,
	}
}

// Get returns a value that is still within its TTL.
func (c *responseCache) Get(key string) (interface{}, bool) {
	item := c.items.Get(key)
	if item == nil {
		return nil, false
	}
	e := item.Value()
	if !c.now().Before(e.freshUntil) {
		return nil, false
	}
	return e.value, true
}

// Stale returns the value even if its TTL has passed, as long as it is
// still inside the stale window.
func (c *responseCache) Stale(key string) (interface{}, bool) {
	item := c.items.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value().value, true
}

func (c *responseCache) Set(key string, value interface{}, ttl time.Duration) {
	c.items.DeleteExpired()
	c.items.Set(key, cacheEntry{value: value, freshUntil: c.now().Add(ttl)}, ttl+c.stale)
}

func (c *responseCache) Len() int {
	return c.items.Len()
}
