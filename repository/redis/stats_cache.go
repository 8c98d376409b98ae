package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/riskops/backend/repository"
)

// StatsCache is a read-through cache for risk statistics, keyed per
// organization. Misses return (nil, nil).
type StatsCache struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewStatsCache creates a Redis-backed statistics cache.
func NewStatsCache(client *redislib.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &StatsCache{
		client: client,
		prefix: "risk:stats:",
		ttl:    ttl,
	}
}

// Get returns the cached statistics for the organization, or nil on a miss.
func (c *StatsCache) Get(ctx context.Context, organizationID *int64) (*repository.Statistics, error) {
	result, err := c.client.Get(ctx, c.key(organizationID)).Result()
	if err != nil {
		if err == redislib.Nil {
			return nil, nil
		}
		return nil, err
	}
	var stats repository.Statistics
	if err := json.Unmarshal([]byte(result), &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Set stores the statistics under the cache TTL.
func (c *StatsCache) Set(ctx context.Context, organizationID *int64, stats *repository.Statistics) error {
	if stats == nil {
		return nil
	}
	payload, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(organizationID), payload, c.ttl).Err()
}

// Invalidate drops the cached entries affected by a write: the organization's
// own entry and the cross-organization entry.
func (c *StatsCache) Invalidate(ctx context.Context, organizationID int64) error {
	return c.client.Del(ctx, c.key(&organizationID), c.key(nil)).Err()
}

func (c *StatsCache) key(organizationID *int64) string {
	if organizationID == nil {
		return c.prefix + "all"
	}
	return fmt.Sprintf("%s%d", c.prefix, *organizationID)
}
