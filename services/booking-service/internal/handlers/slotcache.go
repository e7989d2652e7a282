package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// SlotCache shields the calendar service and the bookings table from bursts
// of public slot queries. Misses and errors both fall through to a fresh
// computation.
type SlotCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration)
}

type redisSlotCache struct {
	client *redis.Client
}

func NewRedisSlotCache(client *redis.Client) SlotCache {
	return &redisSlotCache{client: client}
}

func (c *redisSlotCache) Get(ctx context.Context, key string) ([]byte, bool) {
	body, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return body, true
}

func (c *redisSlotCache) Set(ctx context.Context, key string, body []byte, ttl time.Duration) {
	_ = c.client.Set(ctx, key, body, ttl).Err()
}

func encodeJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}
