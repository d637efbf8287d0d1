package redis

import (
	"context"
	"errors"
	"time"

	"github.com/integration-hub/student-hub/internal/domain/city"
)

// CityInsightsCache implements city.Cache.
type CityInsightsCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewCityInsightsCache creates a cache; a non-positive ttl means TTLCityInsights.
func NewCityInsightsCache(cache *Cache, ttl time.Duration) *CityInsightsCache {
	if ttl <= 0 {
		ttl = TTLCityInsights
	}
	return &CityInsightsCache{cache: cache, ttl: ttl}
}

// Get returns cached insights, or (nil, nil) on a miss.
func (c *CityInsightsCache) Get(ctx context.Context, name string) (*city.Insights, error) {
	var in city.Insights
	if err := c.cache.Get(ctx, CityInsightsKey(name), &in); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return &in, nil
}

// Set stores insights under the normalized city key.
func (c *CityInsightsCache) Set(ctx context.Context, name string, in *city.Insights) error {
	if in == nil {
		return ErrCacheNilValue
	}
	return c.cache.Set(ctx, CityInsightsKey(name), in, c.ttl)
}
