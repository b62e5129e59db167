package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/posrapor/posrapor/internal/reports"
)

// TTLs per period. Recent data churns faster and is cached for less time.
const (
	ttlRecent   = 120 * time.Second
	ttlHistoric = 600 * time.Second
)

// Key composes the cache key. Every component that distinguishes two
// dashboards is part of the key; a collision between two (user, period,
// branch) combinations would be a cross-tenant data leak.
func Key(userID int64, branchIndex int, period, startDate, endDate string) string {
	return strings.Join([]string{
		"dashboard",
		strconv.FormatInt(userID, 10),
		strconv.Itoa(branchIndex),
		period,
		startDate,
		endDate,
	}, ":")
}

// TTLFor returns the cache lifetime for a period token.
func TTLFor(period string) time.Duration {
	switch period {
	case reports.PeriodToday, reports.PeriodYesterday:
		return ttlRecent
	default:
		return ttlHistoric
	}
}

// Cache is the redis-backed store for computed summaries. A nil client
// degrades to recomputing on every call.
type Cache struct {
	client *redis.Client
}

// NewCache wraps a redis client.
func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Get loads a cached summary into dest. The second return reports a hit.
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores a summary with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}
