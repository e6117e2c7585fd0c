package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sweepLeaseKey = "botfleet:sweep:lease"

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) *Client {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{
			Addr: redisURL,
		}
	}

	client := redis.NewClient(opt)

	return &Client{client}
}

func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.Set(ctx, key, data, expiration).Err()
}

func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), dest)
}

func (c *Client) CacheSubscription(ctx context.Context, tenantID string, sub interface{}) error {
	key := fmt.Sprintf("subscription:%s", tenantID)
	return c.SetJSON(ctx, key, sub, time.Minute)
}

func (c *Client) GetCachedSubscription(ctx context.Context, tenantID string, dest interface{}) error {
	key := fmt.Sprintf("subscription:%s", tenantID)
	return c.GetJSON(ctx, key, dest)
}

func (c *Client) InvalidateSubscription(ctx context.Context, tenantID string) error {
	return c.Del(ctx, fmt.Sprintf("subscription:%s", tenantID)).Err()
}

// AcquireSweepLease takes the cross-process sweep lock. The TTL bounds
// how long a crashed sweeper can block the next one.
func (c *Client) AcquireSweepLease(ctx context.Context, ttl time.Duration) (bool, error) {
	return c.SetNX(ctx, sweepLeaseKey, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

func (c *Client) ReleaseSweepLease(ctx context.Context) error {
	return c.Del(ctx, sweepLeaseKey).Err()
}
