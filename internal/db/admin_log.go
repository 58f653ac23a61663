package db

import "time"

// AdminLog 记录后台的每一次变更操作。
type AdminLog struct {
	ID          uint   `gorm:"primarykey"`
	Action      string `gorm:"size:80;index;not null"`
	ActorID     uint
	ActorEmail  string    `gorm:"size:255"`
	Detail      string    `gorm:"type:text"`
	ChangedKeys string    `gorm:"size:255"`
	RemoteIP    string    `gorm:"size:64"`
	CreatedAt   time.Time `gorm:"index"`
}

// TableName 返回自定义表名
func (AdminLog) TableName() string {
	return "admin_logs"
}
