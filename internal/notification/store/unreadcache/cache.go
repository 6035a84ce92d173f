// Package unreadcache caches per-user unread notification counts in Redis.
package unreadcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "siwarga/pkg/domain"
)

const keyPrefix = "siwarga:notifications:unread:"

// Cache stores unread counts with a TTL so counts for rows whose schedule
// window opens later still converge.
type Cache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func New(client redis.Cmdable, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func key(userID id.UserID) string {
	return keyPrefix + userID.String()
}

// Get returns the cached count and whether it was present.
func (c *Cache) Get(ctx context.Context, userID id.UserID) (int, bool, error) {
	n, err := c.client.Get(ctx, key(userID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get unread count: %w", err)
	}
	return n, true, nil
}

func (c *Cache) Set(ctx context.Context, userID id.UserID, count int) error {
	if err := c.client.Set(ctx, key(userID), count, c.ttl).Err(); err != nil {
		return fmt.Errorf("set unread count: %w", err)
	}
	return nil
}

// Invalidate drops the cached count for the given users.
func (c *Cache) Invalidate(ctx context.Context, userIDs ...id.UserID) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, u := range userIDs {
		keys = append(keys, key(u))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate unread count: %w", err)
	}
	return nil
}
