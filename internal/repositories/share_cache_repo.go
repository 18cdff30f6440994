package repositories

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/3Eeeecho/supfile/internal/models"
	"github.com/3Eeeecho/supfile/internal/pkg/cache"
	"github.com/3Eeeecho/supfile/internal/pkg/logger"
	"github.com/3Eeeecho/supfile/internal/pkg/mapper"
	"github.com/3Eeeecho/supfile/internal/pkg/xerr"
	"go.uber.org/zap"
)

// cachedShareRepository 在数据库仓储外包一层 redis 缓存
// 只缓存按 token 查询，创建和删除时清掉对应的 key
type cachedShareRepository struct {
	next  ShareRepository
	cache cache.Cache
	ttl   time.Duration
}

var _ ShareRepository = (*cachedShareRepository)(nil)

func NewCachedShareRepository(next ShareRepository, c cache.Cache, ttl time.Duration) ShareRepository {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &cachedShareRepository{next: next, cache: c, ttl: ttl}
}

// 加随机抖动，避免大量 key 同时过期
func (r *cachedShareRepository) expiration() time.Duration {
	return r.ttl + time.Duration(rand.Intn(60))*time.Second
}

func (r *cachedShareRepository) Create(ctx context.Context, share *models.Share) error {
	if err := r.next.Create(ctx, share); err != nil {
		return err
	}
	// 之前可能缓存过"不存在"标记
	r.invalidate(ctx, share.ShareToken)
	return nil
}

func (r *cachedShareRepository) FindByToken(ctx context.Context, token string) (*models.Share, error) {
	key := cache.GenerateShareTokenKey(token)

	fields, err := r.cache.HGetAll(ctx, key)
	switch {
	case err == nil:
		if _, ok := fields[cache.NotFoundMarker]; ok {
			return nil, xerr.ErrShareNotFound
		}
		share, mapErr := mapper.MapToShare(fields)
		if mapErr == nil {
			return share, nil
		}
		logger.Warn("FindByToken: Corrupted share cache entry, falling back to DB", zap.String("key", key), zap.Error(mapErr))
	case !errors.Is(err, cache.ErrCacheMiss):
		logger.Warn("FindByToken: Cache read failed, falling back to DB", zap.String("key", key), zap.Error(err))
	}

	share, err := r.next.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, xerr.ErrShareNotFound) {
			r.store(ctx, key, map[string]any{cache.NotFoundMarker: "1"}, time.Minute)
		}
		return nil, err
	}
	r.store(ctx, key, mapper.ShareToMap(share), r.expiration())
	return share, nil
}

func (r *cachedShareRepository) FindByID(ctx context.Context, userID, id string) (*models.Share, error) {
	return r.next.FindByID(ctx, userID, id)
}

func (r *cachedShareRepository) ListByTarget(ctx context.Context, userID string, target models.ShareTarget) ([]models.Share, error) {
	return r.next.ListByTarget(ctx, userID, target)
}

func (r *cachedShareRepository) Delete(ctx context.Context, share *models.Share) error {
	if err := r.next.Delete(ctx, share); err != nil {
		return err
	}
	r.invalidate(ctx, share.ShareToken)
	return nil
}

// IncrementDownloadCount 缓存中没有下载次数，不需要删除
func (r *cachedShareRepository) IncrementDownloadCount(ctx context.Context, share *models.Share) (int64, error) {
	return r.next.IncrementDownloadCount(ctx, share)
}

func (r *cachedShareRepository) store(ctx context.Context, key string, fields map[string]any, ttl time.Duration) {
	if err := r.cache.HMSet(ctx, key, fields); err != nil {
		logger.Warn("store: Failed to write share cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.cache.Expire(ctx, key, ttl); err != nil {
		logger.Warn("store: Failed to set share cache expiration", zap.String("key", key), zap.Error(err))
	}
}

func (r *cachedShareRepository) invalidate(ctx context.Context, token string) {
	if token == "" {
		return
	}
	key := cache.GenerateShareTokenKey(token)
	if err := r.cache.Del(ctx, key); err != nil {
		logger.Warn("invalidate: Failed to delete share cache", zap.String("key", key), zap.Error(err))
	}
}
