package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/advisory-service/internal/domain"
)

const userViewKeyPrefix = "user_view:"

// RedisUserViewCache stores sanitized user views as JSON with a TTL.
type RedisUserViewCache struct {
	client redis.Cmdable
}

// NewRedisUserViewCache wraps a go-redis client.
func NewRedisUserViewCache(client redis.Cmdable) *RedisUserViewCache {
	return &RedisUserViewCache{client: client}
}

func (c *RedisUserViewCache) Get(ctx context.Context, id string) (*domain.UserView, error) {
	raw, err := c.client.Get(ctx, userViewKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get user view: %w", err)
	}
	var view domain.UserView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, fmt.Errorf("decode user view: %w", err)
	}
	return &view, nil
}

func (c *RedisUserViewCache) Set(ctx context.Context, view domain.UserView, ttl time.Duration) error {
	raw, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode user view: %w", err)
	}
	return c.client.Set(ctx, userViewKeyPrefix+view.ID, raw, ttl).Err()
}

// Invalidate drops the cached view so the next lookup reads the store.
func (c *RedisUserViewCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, userViewKeyPrefix+id).Err()
}
