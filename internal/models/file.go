package models

import (
	"time"

	"gorm.io/gorm"
)

// File 对应 files 表
// Name 是存储用的内部名称, OriginalName 是用户看到的文件名
type File struct {
	ID           string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name         string     `gorm:"type:varchar(255);not null" json:"name"`
	OriginalName string     `gorm:"type:varchar(255);not null" json:"original_name"`
	MimeType     string     `gorm:"type:varchar(128);not null;default:'application/octet-stream'" json:"mime_type"`
	Size         int64      `gorm:"not null;default:0" json:"size"`
	Bucket       string     `gorm:"type:varchar(64);not null;default:''" json:"-"`
	BlobPath     string     `gorm:"type:varchar(512);not null" json:"-"`
	FolderID     *string    `gorm:"type:varchar(36);index" json:"folder_id"`
	UserID       string     `gorm:"type:varchar(36);not null;index" json:"user_id"`
	IsDeleted    bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt    *time.Time `json:"deleted_at"`
	IsFavorite   bool       `gorm:"not null;default:false" json:"is_favorite"`
	Hash         *string    `gorm:"type:varchar(64)" json:"hash,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (File) TableName() string {
	return "files"
}

func (f *File) BeforeCreate(tx *gorm.DB) error {
	f.ID = newID(f.ID)
	return nil
}

// DisplayName 优先返回用户上传时的文件名
func (f *File) DisplayName() string {
	if f.OriginalName != "" {
		return f.OriginalName
	}
	return f.Name
}
