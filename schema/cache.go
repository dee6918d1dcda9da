package schema

import (
	"context"
	"errors"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/bawdo/oql/pipeline"
)

// DefaultTTL is how long a discovered schema is trusted.
const DefaultTTL = 5 * time.Minute

// Cache keeps the last discovery per database name. A discovery that fails
// without returning any table is not cached, so the next lookup retries.
type Cache struct {
	source Source
	cache  *ttlcache.Cache[string, pipeline.Tables]
}

// NewCache wraps source. A non-positive ttl means DefaultTTL.
func NewCache(source Source, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		source: source,
		cache: ttlcache.New[string, pipeline.Tables](
			ttlcache.WithTTL[string, pipeline.Tables](ttl),
			ttlcache.WithDisableTouchOnHit[string, pipeline.Tables](),
		),
	}
}

// Tables returns the definitions for database, loading them on a miss.
func (c *Cache) Tables(ctx context.Context, database string) (pipeline.Tables, error) {
	var loadErr error
	loader := ttlcache.LoaderFunc[string, pipeline.Tables](
		func(cache *ttlcache.Cache[string, pipeline.Tables], key string) *ttlcache.Item[string, pipeline.Tables] {
			tables, err := c.source.Discover(ctx, key)
			if err != nil && len(tables) == 0 {
				loadErr = err
				return nil
			}
			// Partial results are cached; the error still reaches this caller.
			loadErr = err
			return cache.Set(key, tables, ttlcache.DefaultTTL)
		},
	)
	item := c.cache.Get(database, ttlcache.WithLoader[string, pipeline.Tables](loader))
	if item == nil {
		if loadErr == nil {
			loadErr = errors.New("schema source returned nothing")
		}
		return nil, loadErr
	}
	return item.Value(), loadErr
}

// Set stores tables for database, replacing whatever was cached.
func (c *Cache) Set(database string, tables pipeline.Tables) {
	c.cache.Set(database, tables, ttlcache.DefaultTTL)
}

// Invalidate drops every cached schema.
func (c *Cache) Invalidate() {
	c.cache.DeleteAll()
}
