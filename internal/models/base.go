package models

import "github.com/google/uuid"

// newID 生成主键, 所有实体使用 UUID 字符串作为不透明标识
func newID(current string) string {
	if current != "" {
		return current
	}
	return uuid.NewString()
}
