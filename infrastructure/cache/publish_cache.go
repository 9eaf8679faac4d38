package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"crosspost/domain/model"
	"crosspost/domain/repository"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// PublishCache keeps the latest publish result per key in Redis.
// A nil client turns every call into a no-op miss.
type PublishCache struct {
	client *redis.Client
}

func NewPublishCache(client *redis.Client) repository.IPublishCache {
	return &PublishCache{client: client}
}

func (c *PublishCache) SetResult(ctx context.Context, key string, result model.PublishResult, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

func (c *PublishCache) GetResult(ctx context.Context, key string) (*model.PublishResult, error) {
	if c.client == nil {
		return nil, ErrCacheMiss
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	var result model.PublishResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
