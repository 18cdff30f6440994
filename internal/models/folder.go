package models

import (
	"time"

	"gorm.io/gorm"
)

// Folder 对应 folders 表, ParentID 为 nil 表示位于根目录
type Folder struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name       string     `gorm:"type:varchar(255);not null" json:"name"`
	ParentID   *string    `gorm:"type:varchar(36);index" json:"parent_id"`
	UserID     string     `gorm:"type:varchar(36);not null;index" json:"user_id"`
	IsDeleted  bool       `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt  *time.Time `json:"deleted_at"`
	IsFavorite bool       `gorm:"not null;default:false" json:"is_favorite"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Folder) TableName() string {
	return "folders"
}

func (f *Folder) BeforeCreate(tx *gorm.DB) error {
	f.ID = newID(f.ID)
	return nil
}

// FolderContents 目录的直接子项
type FolderContents struct {
	Folder     *Folder  `json:"folder,omitempty"`
	Files      []File   `json:"files"`
	Subfolders []Folder `json:"subfolders"`
}
