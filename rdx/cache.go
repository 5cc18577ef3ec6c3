package rdx

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const productListPrefix = "products:list:"

// ProductCache keeps rendered product list responses for a short while.
type ProductCache struct {
	conn *redis.Client
	ttl  time.Duration
}

func NewProductCache(conn *redis.Client, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &ProductCache{conn: conn, ttl: ttl}
}

// Get returns the cached bytes for key. A miss is (nil, false, nil).
func (c *ProductCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.conn.Get(ctx, productListPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *ProductCache) Set(ctx context.Context, key string, val []byte) error {
	return c.conn.Set(ctx, productListPrefix+key, val, c.ttl).Err()
}

// Invalidate drops every cached product list.
func (c *ProductCache) Invalidate(ctx context.Context) error {
	iter := c.conn.Scan(ctx, 0, productListPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.conn.Del(ctx, keys...).Err()
}
