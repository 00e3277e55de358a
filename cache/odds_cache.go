package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// OddsCache caches display coefficients in Redis with a short TTL.
// Purely advisory: misses and errors fall through to a database read,
// and PlaceBet never consults it.
type OddsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect creates a Redis client and verifies the connection
func Connect(addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return rdb, nil
}

// NewOddsCache creates an odds cache with the given TTL
func NewOddsCache(client *redis.Client, ttl time.Duration) *OddsCache {
	return &OddsCache{client: client, ttl: ttl}
}

func key(contestID, candidateID int64) string {
	return fmt.Sprintf("odds:contest:%d:candidate:%d", contestID, candidateID)
}

// Get returns the cached coefficient and whether it was present
func (c *OddsCache) Get(ctx context.Context, contestID, candidateID int64) (decimal.Decimal, bool, error) {
	val, err := c.client.Get(ctx, key(contestID, candidateID)).Result()
	if err == redis.Nil {
		return decimal.Decimal{}, false, nil
	}
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("failed to read odds cache: %w", err)
	}

	coefficient, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Decimal{}, false, fmt.Errorf("corrupt odds cache entry %q: %w", val, err)
	}
	return coefficient, true, nil
}

// Set stores a coefficient with the configured TTL
func (c *OddsCache) Set(ctx context.Context, contestID, candidateID int64, coefficient decimal.Decimal) error {
	return c.client.Set(ctx, key(contestID, candidateID), coefficient.String(), c.ttl).Err()
}

// Invalidate drops a cached coefficient after the pool moved
func (c *OddsCache) Invalidate(ctx context.Context, contestID, candidateID int64) error {
	return c.client.Del(ctx, key(contestID, candidateID)).Err()
}
