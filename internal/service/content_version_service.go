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

var (
	ErrVersionNotFound = errors.New("content version not found")
)

// VersionSnapshot 是一条版本记录及其解析后的文档。
type VersionSnapshot struct {
	Version  db.ContentVersion
	Document content.Document
}

// ContentVersionService 提供草稿、发布与回滚的内容版本流程。
type ContentVersionService struct {
	db       *gorm.DB
	contents *ContentService
	now      func() time.Time
}

// NewContentVersionService 构造 ContentVersionService。
func NewContentVersionService(gdb *gorm.DB, contents *ContentService) *ContentVersionService {
	return &ContentVersionService{db: gdb, contents: contents, now: time.Now}
}

// Draft 返回生效的草稿，不存在时以当前文档创建一份。
func (s *ContentVersionService) Draft(actorID uint) (*VersionSnapshot, error) {
	var snapshot *VersionSnapshot
	err := s.db.Transaction(func(tx *gorm.DB) error {
		draft, doc, err := s.activeDraft(tx, actorID)
		if err != nil {
			return err
		}
		snapshot = &VersionSnapshot{Version: *draft, Document: doc}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// SaveDraft 整体替换草稿内容，返回发生变化的顶层键。
func (s *ContentVersionService) SaveDraft(doc content.Document, actorID uint) (*VersionSnapshot, []string, error) {
	doc = content.KeepMasterKey(doc, true)
	return s.mutateDraft(actorID, func(current content.Document) (content.Document, error) {
		return content.Normalize(doc), nil
	})
}

// PatchDraft 对草稿做顶层键的浅合并。
func (s *ContentVersionService) PatchDraft(patch content.Document, actorID uint) (*VersionSnapshot, []string, error) {
	patch = content.KeepMasterKey(patch, false)
	return s.mutateDraft(actorID, func(current content.Document) (content.Document, error) {
		return content.ApplyPatch(current, patch)
	})
}

// Publish 把草稿深拷贝为新的发布版本，停用上一条发布记录，并清理超出上限的历史。
func (s *ContentVersionService) Publish(actorID uint, note string) (*db.ContentVersion, error) {
	var published *db.ContentVersion
	err := s.db.Transaction(func(tx *gorm.DB) error {
		draft, doc, err := s.activeDraft(tx, actorID)
		if err != nil {
			return err
		}

		published, err = s.publishDocument(tx, doc, actorID, note, nil)
		if err != nil {
			return err
		}

		return tx.Model(draft).Update("version", published.Version+1).Error
	})
	if err != nil {
		return nil, err
	}
	return published, nil
}

// Rollback 以历史版本的数据发布一个新版本，同时把草稿重置为该数据。
func (s *ContentVersionService) Rollback(versionID, actorID uint) (*db.ContentVersion, error) {
	var published *db.ContentVersion
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var target db.ContentVersion
		if err := tx.Where("id = ? AND status = ?", versionID, db.VersionStatusPublished).First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVersionNotFound
			}
			return fmt.Errorf("find version: %w", err)
		}

		doc, err := content.Parse(target.Data)
		if err != nil {
			return err
		}
		doc = content.Normalize(doc)

		sourceID := target.ID
		note := fmt.Sprintf("rollback to v%d", target.Version)
		published, err = s.publishDocument(tx, doc, actorID, note, &sourceID)
		if err != nil {
			return err
		}

		draft, _, err := s.activeDraft(tx, actorID)
		if err != nil {
			return err
		}
		return tx.Model(draft).Updates(map[string]interface{}{
			"data":          datatypes.JSON(append([]byte(nil), published.Data...)),
			"version":       published.Version + 1,
			"created_by_id": actorID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return published, nil
}

// History 返回发布历史，按版本号倒序。
func (s *ContentVersionService) History(limit int) ([]db.ContentVersion, error) {
	if limit <= 0 || limit > db.MaxPublishedVersions {
		limit = db.MaxPublishedVersions
	}

	var versions []db.ContentVersion
	if err := s.db.Where("status = ?", db.VersionStatusPublished).
		Order("version desc").
		Limit(limit).
		Find(&versions).Error; err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

func (s *ContentVersionService) mutateDraft(actorID uint, apply func(current content.Document) (content.Document, error)) (*VersionSnapshot, []string, error) {
	var (
		snapshot *VersionSnapshot
		changed  []string
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		draft, current, err := s.activeDraft(tx, actorID)
		if err != nil {
			return err
		}

		next, err := apply(current)
		if err != nil {
			return err
		}
		content.PreserveMasterKey(next, current)

		changed, _ = content.Diff(current, next)
		if len(changed) > 0 {
			raw, err := content.Marshal(next)
			if err != nil {
				return err
			}
			draft.Data = datatypes.JSON(raw)
			draft.CreatedByID = actorID
			if err := tx.Save(draft).Error; err != nil {
				return fmt.Errorf("save draft: %w", err)
			}
			current = next
		}

		snapshot = &VersionSnapshot{Version: *draft, Document: current}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return snapshot, changed, nil
}

// activeDraft 读取生效的草稿，不存在时以当前文档创建。
func (s *ContentVersionService) activeDraft(tx *gorm.DB, actorID uint) (*db.ContentVersion, content.Document, error) {
	var draft db.ContentVersion
	err := tx.Where("status = ? AND active = ?", db.VersionStatusDraft, true).
		Order("id desc").
		First(&draft).Error
	if err == nil {
		doc, parseErr := content.Parse(draft.Data)
		if parseErr != nil {
			return nil, nil, parseErr
		}
		return &draft, content.Normalize(doc), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("load draft: %w", err)
	}

	_, live, err := s.contents.load(tx)
	if err != nil {
		return nil, nil, err
	}
	raw, err := content.Marshal(live)
	if err != nil {
		return nil, nil, err
	}

	next, err := nextVersionNumber(tx)
	if err != nil {
		return nil, nil, err
	}

	draft = db.ContentVersion{
		Version:     next,
		Status:      db.VersionStatusDraft,
		Active:      true,
		Data:        datatypes.JSON(raw),
		CreatedByID: actorID,
	}
	if err := tx.Create(&draft).Error; err != nil {
		return nil, nil, fmt.Errorf("create draft: %w", err)
	}
	return &draft, live, nil
}

// publishDocument 写入新的发布记录并同步到站点内容文档。
func (s *ContentVersionService) publishDocument(tx *gorm.DB, doc content.Document, actorID uint, note string, source *uint) (*db.ContentVersion, error) {
	raw, err := content.Marshal(content.Clone(doc))
	if err != nil {
		return nil, err
	}

	version, err := nextVersionNumber(tx)
	if err != nil {
		return nil, err
	}

	if err := tx.Model(&db.ContentVersion{}).
		Where("status = ? AND active = ?", db.VersionStatusPublished, true).
		Update("active", false).Error; err != nil {
		return nil, fmt.Errorf("deactivate published version: %w", err)
	}

	publishedAt := s.now()
	record := db.ContentVersion{
		Version:         version,
		Status:          db.VersionStatusPublished,
		Active:          true,
		Data:            datatypes.JSON(raw),
		Note:            note,
		CreatedByID:     actorID,
		PublishedAt:     &publishedAt,
		SourceVersionID: source,
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("create published version: %w", err)
	}

	if err := prunePublished(tx); err != nil {
		return nil, err
	}

	live, _, err := s.contents.load(tx)
	if err != nil {
		return nil, err
	}
	if err := saveDocument(tx, live, doc, actorID); err != nil {
		return nil, err
	}

	return &record, nil
}

// syncActiveDraft 把对当前文档的直接修改带入生效的草稿，只覆盖发生变化的顶层键，草稿中其余未发布的修改保留。
func syncActiveDraft(tx *gorm.DB, live content.Document, changed []string, actorID uint) error {
	if len(changed) == 0 {
		return nil
	}

	var draft db.ContentVersion
	err := tx.Where("status = ? AND active = ?", db.VersionStatusDraft, true).
		Order("id desc").
		First(&draft).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load draft: %w", err)
	}

	doc, err := content.Parse(draft.Data)
	if err != nil {
		return err
	}
	doc = content.Normalize(doc)
	for _, key := range changed {
		doc[key] = content.Clone(content.Document{key: live[key]})[key]
	}

	raw, err := content.Marshal(content.Normalize(doc))
	if err != nil {
		return err
	}
	if err := tx.Model(&draft).Updates(map[string]interface{}{
		"data":          datatypes.JSON(raw),
		"created_by_id": actorID,
	}).Error; err != nil {
		return fmt.Errorf("sync draft: %w", err)
	}
	return nil
}

func nextVersionNumber(tx *gorm.DB) (int, error) {
	var latest int
	if err := tx.Model(&db.ContentVersion{}).
		Where("status = ?", db.VersionStatusPublished).
		Select("COALESCE(MAX(version), 0)").
		Scan(&latest).Error; err != nil {
		return 0, fmt.Errorf("resolve version number: %w", err)
	}
	return latest + 1, nil
}

// prunePublished 只保留最新的 MaxPublishedVersions 条发布记录。
func prunePublished(tx *gorm.DB) error {
	var ids []uint
	if err := tx.Model(&db.ContentVersion{}).
		Where("status = ?", db.VersionStatusPublished).
		Order("version desc").
		Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("list published versions: %w", err)
	}
	if len(ids) <= db.MaxPublishedVersions {
		return nil
	}

	stale := ids[db.MaxPublishedVersions:]
	if err := tx.Unscoped().Delete(&db.ContentVersion{}, stale).Error; err != nil {
		return fmt.Errorf("prune published versions: %w", err)
	}
	return nil
}
