package search

import "context"

const (
	KindFile   = "file"
	KindFolder = "folder"
)

// Document 名称索引中的一条记录
type Document struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	Kind         string `json:"kind"`
	Name         string `json:"name"`
	OriginalName string `json:"original_name,omitempty"`
}

// Index 名称索引，只用来缩小候选集合
// 是否删除、归属等条件仍由数据库过滤，所以索引可以滞后
type Index interface {
	Enabled() bool
	Index(ctx context.Context, doc Document) error
	Remove(ctx context.Context, id string) error
	// SearchIDs 返回名称包含 query 的候选 ID, kind 为空表示不限类型
	SearchIDs(ctx context.Context, userID, kind, query string, size int) ([]string, error)
}

// NoopIndex 未启用搜索引擎时使用
type NoopIndex struct{}

var _ Index = NoopIndex{}

func (NoopIndex) Enabled() bool { return false }

func (NoopIndex) Index(ctx context.Context, doc Document) error { return nil }

func (NoopIndex) Remove(ctx context.Context, id string) error { return nil }

func (NoopIndex) SearchIDs(ctx context.Context, userID, kind, query string, size int) ([]string, error) {
	return nil, nil
}
