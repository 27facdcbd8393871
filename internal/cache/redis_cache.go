package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/inkwell/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	trendingBlogsKey = "trending:blogs"
	trendingTagsKey  = "trending:tags"
)

// TrendingCache caches the trending listings, which are aggregation queries over every published blog
type TrendingCache interface {
	GetTrendingBlogs(ctx context.Context) ([]models.BlogView, bool, error)
	SetTrendingBlogs(ctx context.Context, blogs []models.BlogView) error
	GetTrendingTags(ctx context.Context) ([]string, bool, error)
	SetTrendingTags(ctx context.Context, tags []string) error
	Invalidate(ctx context.Context) error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// GetTrendingBlogs returns the cached trending blogs; the bool is false on a cache miss
func (c *RedisCache) GetTrendingBlogs(ctx context.Context) ([]models.BlogView, bool, error) {
	var blogs []models.BlogView
	ok, err := c.get(ctx, trendingBlogsKey, &blogs)
	return blogs, ok, err
}

func (c *RedisCache) SetTrendingBlogs(ctx context.Context, blogs []models.BlogView) error {
	return c.set(ctx, trendingBlogsKey, blogs)
}

// GetTrendingTags returns the cached trending tags; the bool is false on a cache miss
func (c *RedisCache) GetTrendingTags(ctx context.Context) ([]string, bool, error) {
	var tags []string
	ok, err := c.get(ctx, trendingTagsKey, &tags)
	return tags, ok, err
}

func (c *RedisCache) SetTrendingTags(ctx context.Context, tags []string) error {
	return c.set(ctx, trendingTagsKey, tags)
}

// Invalidate drops both trending listings
func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, trendingBlogsKey, trendingTagsKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}

func (c *RedisCache) get(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get from cache: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}
