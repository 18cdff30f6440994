package models

import (
	"time"

	"gorm.io/gorm"
)

// User 对应 users 表
type User struct {
	ID           string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	Email        string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Username     string  `gorm:"type:varchar(64);not null;default:''" json:"username"`
	PasswordHash *string `gorm:"type:varchar(255)" json:"-"` // OAuth 账户没有本地密码
	StorageUsed  int64   `gorm:"not null;default:0" json:"storage_used"`
	StorageQuota int64   `gorm:"not null" json:"storage_quota"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.ID = newID(u.ID)
	return nil
}

// AvailableSpace 剩余可用空间，不会小于 0
func (u *User) AvailableSpace() int64 {
	if u.StorageUsed >= u.StorageQuota {
		return 0
	}
	return u.StorageQuota - u.StorageUsed
}
