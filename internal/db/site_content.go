package db

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SiteContentKey 是唯一一份站点内容文档的键。
const SiteContentKey = "site"

// SiteContent 保存当前生效的站点内容 JSON 文档。
type SiteContent struct {
	gorm.Model
	Key         string `gorm:"size:50;uniqueIndex;not null"`
	Data        datatypes.JSON
	UpdatedByID uint
}

// TableName 自定义表名以保持命名一致。
func (SiteContent) TableName() string {
	return "site_contents"
}
