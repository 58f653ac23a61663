package service

import (
	"fmt"
	"strings"

	"github.com/folio/internal/db"
	"gorm.io/gorm"
)

// 后台日志中使用的动作名。
const (
	ActionContentReplace = "content.replace"
	ActionContentPatch   = "content.patch"
	ActionContentOrder   = "content.order"
	ActionContentReset   = "content.reset"
	ActionDraftSave      = "draft.save"
	ActionDraftPatch     = "draft.patch"
	ActionPublish        = "content.publish"
	ActionRollback       = "content.rollback"
	ActionBlogCreate     = "blog.create"
	ActionBlogUpdate     = "blog.update"
	ActionBlogDelete     = "blog.delete"
	ActionUserUpdate     = "user.update"
	ActionUserDelete     = "user.delete"
	ActionLogsClear      = "logs.clear"
	ActionConsole        = "console"
	ActionAdminLogin     = "admin.login"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

// AdminLogEntry 描述一条待写入的后台日志。
type AdminLogEntry struct {
	Action      string
	ActorID     uint
	ActorEmail  string
	Detail      string
	ChangedKeys []string
	RemoteIP    string
}

// AdminLogService 记录并查询后台操作日志。
type AdminLogService struct {
	db *gorm.DB
}

// NewAdminLogService 构造 AdminLogService。
func NewAdminLogService(gdb *gorm.DB) *AdminLogService {
	return &AdminLogService{db: gdb}
}

// Record 写入一条日志。
func (s *AdminLogService) Record(entry AdminLogEntry) error {
	record := db.AdminLog{
		Action:      strings.TrimSpace(entry.Action),
		ActorID:     entry.ActorID,
		ActorEmail:  entry.ActorEmail,
		Detail:      entry.Detail,
		ChangedKeys: strings.Join(entry.ChangedKeys, ","),
		RemoteIP:    entry.RemoteIP,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return fmt.Errorf("record admin log: %w", err)
	}
	return nil
}

// List 返回最新的日志，limit 超出范围时回退到默认值或上限。
func (s *AdminLogService) List(limit int) ([]db.AdminLog, error) {
	switch {
	case limit <= 0:
		limit = defaultLogLimit
	case limit > maxLogLimit:
		limit = maxLogLimit
	}

	var logs []db.AdminLog
	if err := s.db.Order("created_at desc, id desc").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list admin logs: %w", err)
	}
	return logs, nil
}

// Clear 删除全部日志，返回删除的条数。
func (s *AdminLogService) Clear() (int64, error) {
	result := s.db.Where("1 = 1").Delete(&db.AdminLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("clear admin logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Count 返回日志总数。
func (s *AdminLogService) Count() (int64, error) {
	var count int64
	if err := s.db.Model(&db.AdminLog{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count admin logs: %w", err)
	}
	return count, nil
}
