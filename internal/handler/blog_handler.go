package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/folio/internal/content"
	"github.com/folio/internal/service"
	"github.com/gin-gonic/gin"
)

const maxBlogPerPage = 50

type blogPostRequest struct {
	Title    string `json:"title" binding:"required"`
	Slug     string `json:"slug"`
	Summary  string `json:"summary"`
	Content  string `json:"content"`
	CoverURL string `json:"coverUrl"`
	Status   string `json:"status"`
}

func (r blogPostRequest) toInput(authorID uint) service.BlogPostInput {
	return service.BlogPostInput{
		Title:    r.Title,
		Slug:     r.Slug,
		Summary:  r.Summary,
		Content:  r.Content,
		CoverURL: r.CoverURL,
		Status:   r.Status,
		AuthorID: authorID,
	}
}

// ListPublishedPosts 返回已发布文章的分页列表，默认分页大小取自站点内容的 blog.postsPerPage。
func (a *API) ListPublishedPosts(c *gin.Context) {
	result, err := a.blog.List(service.BlogFilter{
		Search:  c.Query("search"),
		Status:  "published",
		Page:    parsePositiveInt(c.Query("page"), 1),
		PerPage: clampPerPage(c.Query("per_page"), a.postsPerPage(), maxBlogPerPage),
	})
	if err != nil {
		a.respondInternal(c, err, "获取文章列表失败")
		return
	}

	posts := make([]gin.H, 0, len(result.Posts))
	for _, post := range result.Posts {
		posts = append(posts, blogPostPayload(post, false))
	}
	respondOK(c, http.StatusOK, gin.H{
		"posts":      posts,
		"pagination": paginationPayload(result.Page, result.PerPage, result.TotalPages, result.Total),
	})
}

// GetPublishedPost 按 slug 返回已发布文章，附带渲染后的 HTML。
func (a *API) GetPublishedPost(c *gin.Context) {
	post, err := a.blog.GetBySlug(c.Param("slug"), true)
	if err != nil {
		a.handleBlogError(c, err)
		return
	}

	rendered, err := renderMarkdown(post.Content)
	if err != nil {
		a.respondInternal(c, err, "渲染文章失败")
		return
	}

	payload := blogPostPayload(*post, true)
	payload["html"] = rendered
	respondOK(c, http.StatusOK, gin.H{"post": payload})
}

// ListPosts 返回后台文章列表，包含草稿。
func (a *API) ListPosts(c *gin.Context) {
	result, err := a.blog.List(service.BlogFilter{
		Search:  c.Query("search"),
		Status:  c.Query("status"),
		Page:    parsePositiveInt(c.Query("page"), 1),
		PerPage: clampPerPage(c.Query("per_page"), 10, maxBlogPerPage),
	})
	if err != nil {
		a.respondInternal(c, err, "获取文章列表失败")
		return
	}

	posts := make([]gin.H, 0, len(result.Posts))
	for _, post := range result.Posts {
		posts = append(posts, blogPostPayload(post, false))
	}
	respondOK(c, http.StatusOK, gin.H{
		"posts":          posts,
		"publishedCount": result.PublishedCount,
		"draftCount":     result.DraftCount,
		"pagination":     paginationPayload(result.Page, result.PerPage, result.TotalPages, result.Total),
	})
}

// GetPost 返回单篇文章的完整内容。
func (a *API) GetPost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	post, err := a.blog.Get(id)
	if err != nil {
		a.handleBlogError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"post": blogPostPayload(*post, true)})
}

// CreatePost 创建文章
func (a *API) CreatePost(c *gin.Context) {
	var req blogPostRequest
	if !bindJSON(c, &req, "文章标题不能为空") {
		return
	}

	post, err := a.blog.Create(req.toInput(currentUser(c).ID))
	if err != nil {
		a.handleBlogError(c, err)
		return
	}

	a.audit(c, service.ActionBlogCreate, post.Slug, nil)
	respondOK(c, http.StatusCreated, gin.H{"post": blogPostPayload(*post, true)})
}

// UpdatePost 更新文章
func (a *API) UpdatePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	var req blogPostRequest
	if !bindJSON(c, &req, "文章标题不能为空") {
		return
	}

	existing, err := a.blog.Get(id)
	if err != nil {
		a.handleBlogError(c, err)
		return
	}

	post, err := a.blog.Update(id, req.toInput(existing.AuthorID))
	if err != nil {
		a.handleBlogError(c, err)
		return
	}

	a.audit(c, service.ActionBlogUpdate, post.Slug, nil)
	respondOK(c, http.StatusOK, gin.H{"post": blogPostPayload(*post, true)})
}

// DeletePost 删除文章
func (a *API) DeletePost(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的文章ID")
		return
	}

	if err := a.blog.Delete(id); err != nil {
		a.handleBlogError(c, err)
		return
	}

	a.audit(c, service.ActionBlogDelete, c.Param("id"), nil)
	respondOK(c, http.StatusOK, gin.H{"message": "文章已删除"})
}

// postsPerPage 读取站点内容中配置的每页文章数。
func (a *API) postsPerPage() int {
	const fallback = 6

	doc, err := a.contents.Public()
	if err != nil {
		return fallback
	}
	blog, ok := doc[content.KeyBlog].(map[string]any)
	if !ok {
		return fallback
	}
	var perPage int
	switch value := blog["postsPerPage"].(type) {
	case float64:
		perPage = int(value)
	case int:
		perPage = value
	}
	switch {
	case perPage < 1:
		return fallback
	case perPage > maxBlogPerPage:
		return maxBlogPerPage
	}
	return perPage
}

func (a *API) handleBlogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPostNotFound):
		respondError(c, http.StatusNotFound, "文章不存在")
	case errors.Is(err, service.ErrSlugTaken):
		respondError(c, http.StatusConflict, "slug 已被占用")
	case errors.Is(err, service.ErrPostInvalidInput):
		respondError(c, http.StatusBadRequest, strings.TrimPrefix(err.Error(), service.ErrPostInvalidInput.Error()+": "))
	default:
		a.respondInternal(c, err, "保存文章失败")
	}
}
