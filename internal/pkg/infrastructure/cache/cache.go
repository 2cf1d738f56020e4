package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

//Cache is the capability handed to components that keep short lived results in memory
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
}

type memoryCache struct {
	impl *gocache.Cache
}

//NewMemoryCache returns a process local Cache. Expired entries are swept every cleanupInterval.
func NewMemoryCache(cleanupInterval time.Duration) Cache {
	return &memoryCache{
		impl: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

func (c *memoryCache) Get(key string) (interface{}, bool) {
	return c.impl.Get(key)
}

//Set stores value under key. A ttl of zero or less keeps the entry until it is overwritten.
func (c *memoryCache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.impl.Set(key, value, ttl)
}
