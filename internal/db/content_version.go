package db

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// VersionStatusDraft 表示可编辑的草稿快照。
	VersionStatusDraft = "draft"
	// VersionStatusPublished 表示对访客生效的发布快照。
	VersionStatusPublished = "published"
)

// MaxPublishedVersions 是保留的发布历史上限，超出部分在发布时清理。
const MaxPublishedVersions = 10

// ContentVersion 记录站点内容的草稿与发布快照。
// 任意时刻最多只有一条 Active 的草稿和一条 Active 的发布记录。
type ContentVersion struct {
	gorm.Model
	Version         int    `gorm:"index"`
	Status          string `gorm:"size:20;index;not null"`
	Active          bool   `gorm:"index"`
	Data            datatypes.JSON
	Note            string `gorm:"size:255"`
	CreatedByID     uint
	PublishedAt     *time.Time
	SourceVersionID *uint
}

// TableName 指定自定义表名。
func (ContentVersion) TableName() string {
	return "content_versions"
}
