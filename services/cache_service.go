package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CountTTL is how long a cached incoming-request count stays warm.
const CountTTL = time.Hour

// RedisCache wraps the Redis client used for the incoming-request counters.
type RedisCache struct {
	Client *redis.Client
}

// NewRedisCacheFromEnv builds the client from REDIS_ADDR, REDIS_PASSWORD
// and REDIS_DB. Only the address has a default.
func NewRedisCacheFromEnv() *RedisCache {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	db := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if dbInt, err := strconv.Atoi(dbStr); err == nil {
			db = dbInt
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	return &RedisCache{Client: client}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// KeyForIncomingCount generates the key for a user's incoming-request count.
func (c *RedisCache) KeyForIncomingCount(userID string) string {
	return fmt.Sprintf("requests:incoming:%s", userID)
}

// GetIncomingCount returns the cached count. A cache miss is reported via
// the second return value, not as an error.
func (c *RedisCache) GetIncomingCount(ctx context.Context, userID string) (int64, bool, error) {
	val, err := c.Client.Get(ctx, c.KeyForIncomingCount(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	} else if err != nil {
		return 0, false, err
	}

	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil // treat unparsable entries as a miss
	}

	// refresh TTL on access
	_ = c.Client.Expire(ctx, c.KeyForIncomingCount(userID), CountTTL).Err()
	return n, true, nil
}

// SetIncomingCount stores a freshly computed count with the standard TTL.
func (c *RedisCache) SetIncomingCount(ctx context.Context, userID string, count int64) error {
	return c.Client.Set(ctx, c.KeyForIncomingCount(userID), count, CountTTL).Err()
}

// IncrIncomingCount bumps the counter after a new pending request.
func (c *RedisCache) IncrIncomingCount(ctx context.Context, userID string) error {
	key := c.KeyForIncomingCount(userID)
	if err := c.Client.Incr(ctx, key).Err(); err != nil {
		return err
	}
	return c.Client.Expire(ctx, key, CountTTL).Err()
}

// DecrIncomingCount lowers the counter after a deny or cancel.
func (c *RedisCache) DecrIncomingCount(ctx context.Context, userID string) error {
	key := c.KeyForIncomingCount(userID)
	if err := c.Client.Decr(ctx, key).Err(); err != nil {
		return err
	}
	return c.Client.Expire(ctx, key, CountTTL).Err()
}

// InvalidateIncomingCount drops the counter entirely; the next read falls
// back to the store. Used when a match consumes both requests.
func (c *RedisCache) InvalidateIncomingCount(ctx context.Context, userID string) error {
	return c.Client.Del(ctx, c.KeyForIncomingCount(userID)).Err()
}
