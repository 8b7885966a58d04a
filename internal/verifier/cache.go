package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"veripass/pkg/platform/sentinel"
)

const cacheKeyPrefix = "veripass:verify:"

// RedisCache caches public verification records in redis. Records are
// immutable once minted, so entries live until the certificate's validity
// window closes; status is always recomputed by the service.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, hash string) (*Record, error) {
	payload, err := c.client.Get(ctx, cacheKeyPrefix+hash).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("verification cache get: %w", err)
	}
	var record Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("verification cache decode: %w", err)
	}
	return &record, nil
}

func (c *RedisCache) Set(ctx context.Context, hash string, record *Record, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("verification cache encode: %w", err)
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+hash, payload, ttl).Err(); err != nil {
		return fmt.Errorf("verification cache set: %w", err)
	}
	return nil
}
