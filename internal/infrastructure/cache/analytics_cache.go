package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tallybook/backend/internal/domain/ledger"
)

const analyticsKeyPrefix = "analytics:"

// RedisAnalyticsCache stores computed metrics bundles in Redis keyed by
// business and window. Entries are disposable; the ledger is the source of
// truth and every miss just triggers a recompute.
type RedisAnalyticsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisAnalyticsCache creates a new RedisAnalyticsCache with the given TTL
func NewRedisAnalyticsCache(client *redis.Client, ttl time.Duration) *RedisAnalyticsCache {
	return &RedisAnalyticsCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the cached metrics bundle, or (nil, nil) on a miss
func (c *RedisAnalyticsCache) Get(ctx context.Context, businessID uuid.UUID, window ledger.Window) (*ledger.Metrics, error) {
	data, err := c.client.Get(ctx, c.key(businessID, window)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read analytics cache: %w", err)
	}

	var metrics ledger.Metrics
	if err := json.Unmarshal(data, &metrics); err != nil {
		// A corrupt entry is treated as a miss; the recompute overwrites it
		return nil, nil
	}
	return &metrics, nil
}

// Set stores the metrics bundle with the configured TTL
func (c *RedisAnalyticsCache) Set(ctx context.Context, businessID uuid.UUID, window ledger.Window, metrics *ledger.Metrics) error {
	data, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("failed to serialize metrics: %w", err)
	}
	if err := c.client.Set(ctx, c.key(businessID, window), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write analytics cache: %w", err)
	}
	return nil
}

// Invalidate drops all cached windows for a business
func (c *RedisAnalyticsCache) Invalidate(ctx context.Context, businessID uuid.UUID) error {
	keys := make([]string, 0, len(ledger.AllWindows))
	for _, w := range ledger.AllWindows {
		keys = append(keys, c.key(businessID, w))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate analytics cache: %w", err)
	}
	return nil
}

func (c *RedisAnalyticsCache) key(businessID uuid.UUID, window ledger.Window) string {
	return analyticsKeyPrefix + businessID.String() + ":" + window.String()
}
