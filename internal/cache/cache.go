package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iitslamaa/travel-scorer/internal/facts"
)

// DefaultTTL applies when NewCache is given a non-positive TTL.
const DefaultTTL = 6 * time.Hour

// Cache stores the assembled, unscored country record list in Redis. Entries
// are kept per calendar month because seasonality fields depend on it.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a Cache with the given TTL.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

// Period is the cache partition for t, e.g. "2026-07".
func Period(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func key(period string) string {
	return "countries:records:v1:" + period
}

// Get retrieves the record list for period.
// Returns nil, nil on a cache miss (not an error).
func (c *Cache) Get(ctx context.Context, period string) ([]facts.Record, error) {
	val, err := c.client.Get(ctx, key(period)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get for %s: %w", period, err)
	}

	var records []facts.Record
	if err := json.Unmarshal(val, &records); err != nil {
		return nil, fmt.Errorf("unmarshaling cached records for %s: %w", period, err)
	}

	return records, nil
}

// Set stores records for period with the configured TTL. An empty list is not
// cached.
func (c *Cache) Set(ctx context.Context, period string, records []facts.Record) error {
	if len(records) == 0 {
		return nil
	}

	b, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshaling records for %s: %w", period, err)
	}

	if err := c.client.Set(ctx, key(period), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set for %s: %w", period, err)
	}

	return nil
}

// Delete removes the cached list for period.
func (c *Cache) Delete(ctx context.Context, period string) error {
	if err := c.client.Del(ctx, key(period)).Err(); err != nil {
		return fmt.Errorf("cache delete for %s: %w", period, err)
	}
	return nil
}
