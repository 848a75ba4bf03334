package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// BalanceCache caches live provider balance lookups so repeated balance
// queries for the same address do not burn the outbound rate budget.
type BalanceCache struct {
	client *goredis.Client
	prefix string
}

// NewBalanceCache creates a Redis-backed balance cache.
func NewBalanceCache(client *goredis.Client) *BalanceCache {
	return &BalanceCache{
		client: client,
		prefix: "balance:",
	}
}

// Get returns the cached satoshi balance for an address.
// The second return value is false on a cache miss.
func (c *BalanceCache) Get(ctx context.Context, address string) (int64, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+address).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("balance cache get: %w", err)
	}

	balance, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("balance cache parse %q: %w", val, err)
	}
	return balance, true, nil
}

// Set stores a balance with the given TTL.
func (c *BalanceCache) Set(ctx context.Context, address string, balance int64, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+address, strconv.FormatInt(balance, 10), ttl).Err(); err != nil {
		return fmt.Errorf("balance cache set: %w", err)
	}
	return nil
}
