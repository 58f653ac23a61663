package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/folio/internal/content"
	"github.com/folio/internal/service"
	"github.com/gin-gonic/gin"
)

// maxDocumentBytes 限制内容文档请求体的大小。
const maxDocumentBytes = 2 << 20

type sectionOrderRequest struct {
	Order []string `json:"order" binding:"required"`
}

type publishRequest struct {
	Note string `json:"note"`
}

// GetPublicContent 返回访客可见的站点内容。
func (a *API) GetPublicContent(c *gin.Context) {
	doc, err := a.contents.Public()
	if err != nil {
		a.respondInternal(c, err, "获取站点内容失败")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"content": doc})
}

// GetAdminContent 返回当前生效的文档，主密钥以占位值展示。
func (a *API) GetAdminContent(c *gin.Context) {
	snapshot, err := a.contents.Get()
	if err != nil {
		a.respondInternal(c, err, "获取站点内容失败")
		return
	}
	respondOK(c, http.StatusOK, contentSnapshotPayload(snapshot, nil))
}

// ReplaceContent 整体覆盖站点内容。
func (a *API) ReplaceContent(c *gin.Context) {
	doc, ok := bindDocument(c)
	if !ok {
		return
	}

	snapshot, changed, err := a.contents.Replace(doc, currentUser(c).ID)
	if err != nil {
		a.handleContentError(c, err)
		return
	}

	a.audit(c, service.ActionContentReplace, "", changed)
	respondOK(c, http.StatusOK, contentSnapshotPayload(snapshot, changed))
}

// PatchContent 只替换请求中出现的顶层键。
func (a *API) PatchContent(c *gin.Context) {
	patch, ok := bindDocument(c)
	if !ok {
		return
	}

	snapshot, changed, err := a.contents.Patch(patch, currentUser(c).ID)
	if err != nil {
		a.handleContentError(c, err)
		return
	}

	if len(changed) > 0 {
		a.audit(c, service.ActionContentPatch, "", changed)
	}
	respondOK(c, http.StatusOK, contentSnapshotPayload(snapshot, changed))
}

// UpdateSectionOrder 保存新的区块顺序。
func (a *API) UpdateSectionOrder(c *gin.Context) {
	var req sectionOrderRequest
	if !bindJSON(c, &req, "排序不能为空") {
		return
	}

	snapshot, err := a.contents.UpdateOrder(req.Order, currentUser(c).ID)
	if err != nil {
		a.handleContentError(c, err)
		return
	}

	a.audit(c, service.ActionContentOrder, "", []string{content.KeySectionOrder})
	respondOK(c, http.StatusOK, gin.H{"sectionOrder": snapshot.Document[content.KeySectionOrder]})
}

// GetDraft 返回生效的草稿，不存在时以当前内容创建。
func (a *API) GetDraft(c *gin.Context) {
	snapshot, err := a.versions.Draft(currentUser(c).ID)
	if err != nil {
		a.handleContentError(c, err)
		return
	}
	respondOK(c, http.StatusOK, draftPayload(snapshot, nil))
}

// SaveDraft 整体替换草稿。
func (a *API) SaveDraft(c *gin.Context) {
	doc, ok := bindDocument(c)
	if !ok {
		return
	}

	snapshot, changed, err := a.versions.SaveDraft(doc, currentUser(c).ID)
	if err != nil {
		a.handleContentError(c, err)
		return
	}

	a.audit(c, service.ActionDraftSave, "", changed)
	respondOK(c, http.StatusOK, draftPayload(snapshot, changed))
}

// PatchDraft 对草稿做顶层键的浅合并。
func (a *API) PatchDraft(c *gin.Context) {
	patch, ok := bindDocument(c)
	if !ok {
		return
	}

	snapshot, changed, err := a.versions.PatchDraft(patch, currentUser(c).ID)
	if err != nil {
		a.handleContentError(c, err)
		return
	}

	if len(changed) > 0 {
		a.audit(c, service.ActionDraftPatch, "", changed)
	}
	respondOK(c, http.StatusOK, draftPayload(snapshot, changed))
}

// PublishDraft 把草稿发布为新版本。
func (a *API) PublishDraft(c *gin.Context) {
	var req publishRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req, "请求格式错误") {
		return
	}

	version, err := a.versions.Publish(currentUser(c).ID, req.Note)
	if err != nil {
		a.handleContentError(c, err)
		return
	}

	a.audit(c, service.ActionPublish, fmt.Sprintf("v%d", version.Version), nil)
	respondOK(c, http.StatusCreated, gin.H{"version": versionPayload(*version)})
}

// ListVersions 返回发布历史，最新的在前。
func (a *API) ListVersions(c *gin.Context) {
	history, err := a.versions.History(0)
	if err != nil {
		a.respondInternal(c, err, "获取版本历史失败")
		return
	}

	items := make([]gin.H, 0, len(history))
	for _, version := range history {
		items = append(items, versionPayload(version))
	}
	respondOK(c, http.StatusOK, gin.H{"versions": items})
}

// RollbackVersion 以历史版本的数据重新发布。
func (a *API) RollbackVersion(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的版本ID")
		return
	}

	version, err := a.versions.Rollback(id, currentUser(c).ID)
	if err != nil {
		a.handleContentError(c, err)
		return
	}

	a.audit(c, service.ActionRollback, version.Note, nil)
	respondOK(c, http.StatusCreated, gin.H{"version": versionPayload(*version)})
}

func bindDocument(c *gin.Context) (content.Document, bool) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxDocumentBytes))
	if err != nil {
		respondError(c, http.StatusBadRequest, "读取请求失败")
		return nil, false
	}

	doc, err := content.Parse(raw)
	if err != nil || doc == nil {
		respondError(c, http.StatusBadRequest, "内容必须是 JSON 对象")
		return nil, false
	}
	return doc, true
}

func contentSnapshotPayload(snapshot *service.ContentSnapshot, changed []string) gin.H {
	payload := gin.H{
		"content":     content.Masked(snapshot.Document),
		"updatedAt":   formatTime(snapshot.UpdatedAt),
		"updatedById": snapshot.UpdatedByID,
	}
	if changed != nil {
		payload["changedKeys"] = changed
	} else {
		payload["changedKeys"] = []string{}
	}
	return payload
}

func draftPayload(snapshot *service.VersionSnapshot, changed []string) gin.H {
	if changed == nil {
		changed = []string{}
	}
	return gin.H{
		"draft":       versionPayload(snapshot.Version),
		"content":     content.Masked(snapshot.Document),
		"changedKeys": changed,
	}
}

func (a *API) handleContentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, content.ErrUnknownKey):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, content.ErrUnknownSection), errors.Is(err, content.ErrDuplicateSection):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, content.ErrInvalidDocument):
		respondError(c, http.StatusBadRequest, "内容格式错误")
	case errors.Is(err, service.ErrVersionNotFound):
		respondError(c, http.StatusNotFound, "版本不存在")
	default:
		a.respondInternal(c, err, "保存站点内容失败")
	}
}
