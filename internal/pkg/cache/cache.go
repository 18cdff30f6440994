package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrCacheMiss = errors.New("cache miss: key does not exist")

// NotFoundMarker 写入哈希中表示数据库里也不存在，防止缓存穿透
const NotFoundMarker = "__NOT_FOUND__"

// Cache 仓储层使用的哈希缓存接口
type Cache interface {
	HMSet(ctx context.Context, key string, fields map[string]any) error
	// HGetAll key 不存在或哈希为空时返回 ErrCacheMiss
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

func GenerateShareTokenKey(token string) string {
	return fmt.Sprintf("share:token:%s", token)
}
