package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type RedisCache struct {
	client *redis.Client
}

var _ Cache = (*RedisCache)(nil)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// HMSet go-redis/v8 中 HMSet 已弃用, 使用 HSet 配合 map
func (r *RedisCache) HMSet(ctx context.Context, key string, fields map[string]any) error {
	if err := r.client.HSet(ctx, key, fields).Err(); err != nil {
		logger.Error("HMSet: Failed to set hash fields in Redis", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (r *RedisCache) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	result, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		logger.Error("HGetAll: Failed to read hash from Redis", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	// key 不存在时 HGetAll 返回空 map 而不是 redis.Nil
	if len(result) == 0 {
		return nil, ErrCacheMiss
	}
	return result, nil
}

func (r *RedisCache) Expire(ctx context.Context, key string, expiration time.Duration) error {
	if err := r.client.Expire(ctx, key, expiration).Err(); err != nil {
		logger.Error("Expire: Failed to set key expiration in Redis", zap.String("key", key), zap.Duration("expiration", expiration), zap.Error(err))
		return fmt.Errorf("redis expire: %w", err)
	}
	return nil
}

func (r *RedisCache) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		logger.Error("Del: Failed to delete keys from Redis", zap.Strings("keys", keys), zap.Error(err))
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
