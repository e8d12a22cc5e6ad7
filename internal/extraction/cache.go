package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/importflow/importflow/backend/go-services/pkg/logger"
)

const (
	cacheKeyPrefix  = "extraction:"
	DefaultCacheTTL = 24 * time.Hour
)

// CachedResult is the hot-cache value for one file hash.
type CachedResult struct {
	DocumentType  string          `json:"documentType"`
	ExtractedData json.RawMessage `json:"extractedData"`
}

// Cache stores finished extractions by file hash.
type Cache interface {
	Get(ctx context.Context, hash string) (*CachedResult, bool, error)
	Set(ctx context.Context, hash string, r *CachedResult) error
	Invalidate(ctx context.Context, hash string) error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func cacheKey(hash string) string { return cacheKeyPrefix + hash }

func (c *RedisCache) Get(ctx context.Context, hash string) (*CachedResult, bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var r CachedResult
	if err := json.Unmarshal(raw, &r); err != nil || len(r.ExtractedData) == 0 {
		// unreadable values are treated as a miss and overwritten on the next run
		return nil, false, nil
	}
	return &r, true, nil
}

func (c *RedisCache) Set(ctx context.Context, hash string, r *CachedResult) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(hash), b, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, hash string) error {
	return c.client.Del(ctx, cacheKey(hash)).Err()
}

// InvalidateOnDelete returns a hook that drops the cached result of a deleted
// upload, so the same content uploaded again is extracted afresh.
func InvalidateOnDelete(c Cache) func(ctx context.Context, hash string) {
	return func(ctx context.Context, hash string) {
		if err := c.Invalidate(ctx, hash); err != nil {
			logger.FromContext(ctx).Warnf("extraction %s: cache not invalidated after delete: %v", hash, err)
		}
	}
}
