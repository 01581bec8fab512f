package fetch

import (
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Cache deduplicates fetches by key. Concurrent callers for the same key
// share one in-flight call; completed successes are memoized for the life of
// the Cache. Errors are returned to every waiting caller and then forgotten,
// so a retry performs a fresh fetch.
type Cache struct {
	group singleflight.Group
	store *gocache.Cache
}

// NewCache returns an empty cache. One Cache is owned by one invocation.
func NewCache() *Cache {
	return &Cache{store: gocache.New(gocache.NoExpiration, 0)}
}

// Len returns the number of memoized entries.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}

func (c *Cache) do(key string, fn func() (any, error)) (v any, hit bool, err error) {
	if v, ok := c.store.Get(key); ok {
		return v, true, nil
	}
	v, err, shared := c.group.Do(key, func() (any, error) {
		if v, ok := c.store.Get(key); ok {
			return v, nil
		}
		v, err := fn()
		if err != nil {
			return nil, err
		}
		c.store.Set(key, v, gocache.NoExpiration)
		return v, nil
	})
	return v, shared, err
}

// cached runs fn through c with a typed result.
func cached[T any](c *Cache, key string, fn func() (T, error)) (T, bool, error) {
	v, hit, err := c.do(key, func() (any, error) { return fn() })
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v.(T), hit, nil
}
