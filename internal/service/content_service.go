package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/folio/internal/content"
	"github.com/folio/internal/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ContentSnapshot 是站点内容文档及其元信息。
type ContentSnapshot struct {
	Document    content.Document
	UpdatedAt   time.Time
	UpdatedByID uint
}

// ContentService 维护唯一一份生效的站点内容文档。
// 写入没有冲突检测，后写入者覆盖先写入者。
type ContentService struct {
	db *gorm.DB
}

// NewContentService 构造 ContentService。
func NewContentService(gdb *gorm.DB) *ContentService {
	return &ContentService{db: gdb}
}

// EnsureSeeded 在内容文档不存在时写入默认文档，返回是否执行了写入。
func (s *ContentService) EnsureSeeded() (bool, error) {
	var count int64
	if err := s.db.Model(&db.SiteContent{}).Where("key = ?", db.SiteContentKey).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count site content: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	if _, _, err := s.load(s.db); err != nil {
		return false, err
	}
	return true, nil
}

// Get 返回归一化后的当前文档。
func (s *ContentService) Get() (*ContentSnapshot, error) {
	record, doc, err := s.load(s.db)
	if err != nil {
		return nil, err
	}
	return snapshotOf(record, doc), nil
}

// Public 返回访客可见的文档。发布与回滚都会同步写入当前文档，因此这里只读当前文档；主密钥会被移除。
func (s *ContentService) Public() (content.Document, error) {
	snapshot, err := s.Get()
	if err != nil {
		return nil, err
	}
	return content.Public(snapshot.Document), nil
}

// MasterKey 读取内容文档中配置的主密钥。
func (s *ContentService) MasterKey() (string, error) {
	snapshot, err := s.Get()
	if err != nil {
		return "", err
	}
	return content.MasterKey(snapshot.Document), nil
}

// Replace 用新文档整体覆盖当前文档，返回发生变化的顶层键。
func (s *ContentService) Replace(doc content.Document, actorID uint) (*ContentSnapshot, []string, error) {
	doc = content.KeepMasterKey(doc, true)
	return s.mutate(actorID, func(current content.Document) (content.Document, error) {
		return content.Normalize(doc), nil
	})
}

// Patch 仅替换补丁中出现的顶层键。
func (s *ContentService) Patch(patch content.Document, actorID uint) (*ContentSnapshot, []string, error) {
	patch = content.KeepMasterKey(patch, false)
	return s.mutate(actorID, func(current content.Document) (content.Document, error) {
		return content.ApplyPatch(current, patch)
	})
}

// UpdateOrder 校验并保存新的区块顺序。
func (s *ContentService) UpdateOrder(order []string, actorID uint) (*ContentSnapshot, error) {
	snapshot, _, err := s.mutate(actorID, func(current content.Document) (content.Document, error) {
		if err := content.ValidateOrder(current, order); err != nil {
			return nil, err
		}
		next := content.Clone(current)
		ids := make([]any, 0, len(order))
		for _, id := range order {
			ids = append(ids, id)
		}
		next[content.KeySectionOrder] = ids
		return content.Normalize(next), nil
	})
	return snapshot, err
}

// Reset 把当前文档恢复为默认文档，保留已配置的主密钥。
func (s *ContentService) Reset(actorID uint) (*ContentSnapshot, error) {
	snapshot, _, err := s.mutate(actorID, func(current content.Document) (content.Document, error) {
		next := content.Default()
		if key := content.MasterKey(current); key != "" {
			next[content.KeySettings].(map[string]any)["masterKey"] = key
		}
		return next, nil
	})
	return snapshot, err
}

func (s *ContentService) mutate(actorID uint, apply func(current content.Document) (content.Document, error)) (*ContentSnapshot, []string, error) {
	var (
		snapshot *ContentSnapshot
		changed  []string
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		record, current, err := s.load(tx)
		if err != nil {
			return err
		}

		next, err := apply(current)
		if err != nil {
			return err
		}
		content.PreserveMasterKey(next, current)

		changed, _ = content.Diff(current, next)
		if len(changed) == 0 {
			snapshot = snapshotOf(record, current)
			return nil
		}

		if err := saveDocument(tx, record, next, actorID); err != nil {
			return err
		}
		if err := syncActiveDraft(tx, next, changed, actorID); err != nil {
			return err
		}
		snapshot = snapshotOf(record, next)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return snapshot, changed, nil
}

// load 读取内容记录，不存在时写入默认文档。
func (s *ContentService) load(tx *gorm.DB) (*db.SiteContent, content.Document, error) {
	var record db.SiteContent
	err := tx.Where("key = ?", db.SiteContentKey).First(&record).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("load site content: %w", err)
		}

		doc := content.Normalize(nil)
		raw, err := content.Marshal(doc)
		if err != nil {
			return nil, nil, err
		}
		record = db.SiteContent{Key: db.SiteContentKey, Data: datatypes.JSON(raw)}
		if err := tx.Create(&record).Error; err != nil {
			return nil, nil, fmt.Errorf("seed site content: %w", err)
		}
		return &record, doc, nil
	}

	doc, err := content.Parse(record.Data)
	if err != nil {
		return nil, nil, err
	}
	return &record, content.Normalize(doc), nil
}

func saveDocument(tx *gorm.DB, record *db.SiteContent, doc content.Document, actorID uint) error {
	raw, err := content.Marshal(doc)
	if err != nil {
		return err
	}

	record.Data = datatypes.JSON(raw)
	record.UpdatedByID = actorID
	if err := tx.Save(record).Error; err != nil {
		return fmt.Errorf("save site content: %w", err)
	}
	return nil
}

func snapshotOf(record *db.SiteContent, doc content.Document) *ContentSnapshot {
	return &ContentSnapshot{
		Document:    doc,
		UpdatedAt:   record.UpdatedAt,
		UpdatedByID: record.UpdatedByID,
	}
}
