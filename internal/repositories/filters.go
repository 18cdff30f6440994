package repositories

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// likeEscaper 用 '!' 作为 LIKE 的转义字符，mysql/postgres/sqlite 通用
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// ContainsPattern 生成大小写不敏感的包含匹配模式
func ContainsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

// PrefixPattern 生成前缀匹配模式
func PrefixPattern(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

// parentCondition 处理根目录 (NULL) 和普通目录两种情况
func parentCondition(db *gorm.DB, column string, parentID *string) *gorm.DB {
	if parentID == nil {
		return db.Where(column + " IS NULL")
	}
	return db.Where(column+" = ?", *parentID)
}

// SearchFilter 查询层的搜索条件，零值字段表示不过滤
type SearchFilter struct {
	// Name 名称包含匹配，文件同时匹配 original_name
	Name string
	// IDs 由搜索引擎给出的候选集合，nil 表示不限制
	IDs []string

	// MimeExact 精确匹配; MimePrefixes/MimeExacts 任一命中即可
	MimeExact    string
	MimePrefixes []string
	MimeExacts   []string
	MinSize      *int64
	MaxSize      *int64

	CreatedAfter   *time.Time
	CreatedBefore  *time.Time
	ModifiedAfter  *time.Time
	ModifiedBefore *time.Time

	// ScopeSet 为 true 时按父目录过滤, ScopeParentID 为 nil 表示根目录
	ScopeSet      bool
	ScopeParentID *string

	Limit  int
	Offset int
}

func applyTimeRange(db *gorm.DB, f SearchFilter) *gorm.DB {
	if f.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		db = db.Where("created_at <= ?", *f.CreatedBefore)
	}
	if f.ModifiedAfter != nil {
		db = db.Where("updated_at >= ?", *f.ModifiedAfter)
	}
	if f.ModifiedBefore != nil {
		db = db.Where("updated_at <= ?", *f.ModifiedBefore)
	}
	return db
}

func applyPage(db *gorm.DB, f SearchFilter) *gorm.DB {
	if f.Limit > 0 {
		db = db.Limit(f.Limit)
	}
	if f.Offset > 0 {
		db = db.Offset(f.Offset)
	}
	return db
}
