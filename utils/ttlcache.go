package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// TTLCache is a size bounded LRU cache whose entries expire after a fixed ttl.
// It is safe for concurrent use.
type TTLCache struct {
	cache *lru.Cache
	ttl   time.Duration
	now   func() time.Time
}

type ttlEntry struct {
	value     interface{}
	expiresAt time.Time
}

// NewTTLCache creates a cache holding at most size entries for ttl each.
// A zero or negative ttl disables caching.
func NewTTLCache(size int, ttl time.Duration) *TTLCache {
	if size <= 0 {
		size = 1000
	}
	c, err := lru.New(size)
	if err != nil {
		// lru.New only fails on a non-positive size
		panic(err)
	}
	return &TTLCache{cache: c, ttl: ttl, now: time.Now}
}

// SetClock replaces the clock used for expiry. Used by tests.
func (c *TTLCache) SetClock(now func() time.Time) {
	c.now = now
}

// Get returns the value stored under key if it has not expired yet
func (c *TTLCache) Get(key string) (interface{}, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	e := v.(ttlEntry)
	if !c.now().Before(e.expiresAt) {
		c.cache.Remove(key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key
func (c *TTLCache) Set(key string, value interface{}) {
	if c.ttl <= 0 {
		return
	}
	c.cache.Add(key, ttlEntry{value: value, expiresAt: c.now().Add(c.ttl)})
}

// Purge drops every entry
func (c *TTLCache) Purge() {
	c.cache.Purge()
}

// Len returns the number of entries, expired or not
func (c *TTLCache) Len() int {
	return c.cache.Len()
}
