package models

import (
	"time"

	"gorm.io/gorm"
)

type TargetKind string

const (
	TargetFile   TargetKind = "file"
	TargetFolder TargetKind = "folder"
)

// ShareTarget 分享对象: 一个文件或一个目录，二者只能取其一
type ShareTarget struct {
	Kind TargetKind `json:"type"`
	ID   string     `json:"id"`
}

func FileTarget(id string) ShareTarget {
	return ShareTarget{Kind: TargetFile, ID: id}
}

func FolderTarget(id string) ShareTarget {
	return ShareTarget{Kind: TargetFolder, ID: id}
}

func (t ShareTarget) Valid() bool {
	return t.ID != "" && (t.Kind == TargetFile || t.Kind == TargetFolder)
}

// Share 对应 shares 表
// FileID/FolderID 只通过 Target/SetTarget 读写
type Share struct {
	ID            string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	ShareToken    string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"token"`
	UserID        string     `gorm:"type:varchar(36);not null;index" json:"user_id"`
	FileID        *string    `gorm:"type:varchar(36);index" json:"-"`
	FolderID      *string    `gorm:"type:varchar(36);index" json:"-"`
	ExpiresAt     *time.Time `json:"expires_at"`
	PasswordHash  *string    `gorm:"type:varchar(255)" json:"-"`
	DownloadCount int64      `gorm:"not null;default:0" json:"download_count"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Share) TableName() string {
	return "shares"
}

func (s *Share) BeforeCreate(tx *gorm.DB) error {
	s.ID = newID(s.ID)
	return nil
}

// Target 还原分享对象；两列都为空或都不为空时返回零值
func (s *Share) Target() ShareTarget {
	switch {
	case s.FileID != nil && s.FolderID == nil:
		return FileTarget(*s.FileID)
	case s.FolderID != nil && s.FileID == nil:
		return FolderTarget(*s.FolderID)
	default:
		return ShareTarget{}
	}
}

func (s *Share) SetTarget(t ShareTarget) {
	id := t.ID
	s.FileID, s.FolderID = nil, nil
	switch t.Kind {
	case TargetFile:
		s.FileID = &id
	case TargetFolder:
		s.FolderID = &id
	}
}

func (s *Share) HasPassword() bool {
	return s.PasswordHash != nil && *s.PasswordHash != ""
}

// IsExpired 过期时间为空表示永不过期
func (s *Share) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}
