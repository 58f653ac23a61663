package db

import (
	"time"

	"gorm.io/gorm"
)

const (
	// PostStatusDraft 表示未发布的文章。
	PostStatusDraft = "draft"
	// PostStatusPublished 表示已对访客公开的文章。
	PostStatusPublished = "published"
)

// BlogPost 定义了博客文章模型，Slug 全局唯一。
type BlogPost struct {
	gorm.Model
	Title       string `gorm:"size:200;not null"`
	Slug        string `gorm:"size:200;uniqueIndex;not null"`
	Summary     string `gorm:"type:text"`
	Content     string `gorm:"type:text"`
	CoverURL    string `gorm:"size:512"`
	Status      string `gorm:"size:20;index;default:draft"`
	PublishedAt *time.Time
	AuthorID    uint
	Author      User
}

// IsPublished 判断文章是否已发布。
func (p BlogPost) IsPublished() bool {
	return p.Status == PostStatusPublished
}
