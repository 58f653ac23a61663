package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/folio/internal/db"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPostNotFound     = errors.New("post not found")
	ErrSlugTaken        = errors.New("slug already in use")
	ErrPostInvalidInput = errors.New("invalid post input")
)

// BlogFilter describes filters for listing blog posts.
type BlogFilter struct {
	Search  string
	Status  string
	Page    int
	PerPage int
}

// BlogListResult aggregates paginated list data and counters.
type BlogListResult struct {
	Posts          []db.BlogPost
	Total          int64
	PublishedCount int64
	DraftCount     int64
	TotalPages     int
	Page           int
	PerPage        int
}

// BlogPostInput represents fields accepted when creating or updating a post.
type BlogPostInput struct {
	Title    string
	Slug     string
	Summary  string
	Content  string
	CoverURL string
	Status   string
	AuthorID uint
}

// BlogService wraps blog post related database operations.
type BlogService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewBlogService creates a BlogService instance.
func NewBlogService(gdb *gorm.DB) *BlogService {
	return &BlogService{db: gdb, now: time.Now}
}

// Get fetches a post by id with its author preloaded.
func (s *BlogService) Get(id uint) (*db.BlogPost, error) {
	var post db.BlogPost
	if err := s.db.Preload("Author").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &post, nil
}

// GetBySlug 按 slug 查询文章，publishedOnly 为 true 时草稿视为不存在。
func (s *BlogService) GetBySlug(slug string, publishedOnly bool) (*db.BlogPost, error) {
	query := s.db.Preload("Author").Where("slug = ?", strings.TrimSpace(slug))
	if publishedOnly {
		query = query.Where("status = ?", db.PostStatusPublished)
	}

	var post db.BlogPost
	if err := query.First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("get post by slug: %w", err)
	}
	return &post, nil
}

// List provides paginated posts with aggregated counters based on filters.
func (s *BlogService) List(filter BlogFilter) (*BlogListResult, error) {
	result := &BlogListResult{Page: filter.Page, PerPage: filter.PerPage}
	if result.Page <= 0 {
		result.Page = 1
	}
	if result.PerPage <= 0 {
		result.PerPage = 10
	}

	if err := applyBlogFilter(s.db.Model(&db.BlogPost{}), filter, true).Count(&result.Total).Error; err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}

	orderBy := "created_at desc, id desc"
	if strings.EqualFold(filter.Status, db.PostStatusPublished) {
		orderBy = "published_at desc, id desc"
	}

	offset := (result.Page - 1) * result.PerPage
	if err := applyBlogFilter(s.db.Model(&db.BlogPost{}).Preload("Author"), filter, true).
		Order(orderBy).
		Limit(result.PerPage).
		Offset(offset).
		Find(&result.Posts).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	if err := applyBlogFilter(s.db.Model(&db.BlogPost{}), filter, false).
		Where("status = ?", db.PostStatusPublished).
		Count(&result.PublishedCount).Error; err != nil {
		return nil, fmt.Errorf("count published posts: %w", err)
	}
	if err := applyBlogFilter(s.db.Model(&db.BlogPost{}), filter, false).
		Where("status = ?", db.PostStatusDraft).
		Count(&result.DraftCount).Error; err != nil {
		return nil, fmt.Errorf("count draft posts: %w", err)
	}

	result.TotalPages = totalPages(result.Total, result.PerPage)
	return result, nil
}

// Create persists a new post. 未提供 slug 时由标题生成。
func (s *BlogService) Create(input BlogPostInput) (*db.BlogPost, error) {
	post := db.BlogPost{AuthorID: input.AuthorID}
	if err := s.apply(&post, input); err != nil {
		return nil, err
	}
	return s.save(&post)
}

// Update applies updates to an existing post.
func (s *BlogService) Update(id uint, input BlogPostInput) (*db.BlogPost, error) {
	var existing db.BlogPost
	if err := s.db.First(&existing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}

	if err := s.apply(&existing, input); err != nil {
		return nil, err
	}
	return s.save(&existing)
}

// Delete removes a post permanently so its slug can be reused.
func (s *BlogService) Delete(id uint) error {
	result := s.db.Unscoped().Delete(&db.BlogPost{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete post: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

// Count 返回文章总数以及已发布的数量。
func (s *BlogService) Count() (int64, int64, error) {
	var total, published int64
	if err := s.db.Model(&db.BlogPost{}).Count(&total).Error; err != nil {
		return 0, 0, fmt.Errorf("count posts: %w", err)
	}
	if err := s.db.Model(&db.BlogPost{}).Where("status = ?", db.PostStatusPublished).Count(&published).Error; err != nil {
		return 0, 0, fmt.Errorf("count published posts: %w", err)
	}
	return total, published, nil
}

func (s *BlogService) apply(post *db.BlogPost, input BlogPostInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrPostInvalidInput)
	}

	status := strings.ToLower(strings.TrimSpace(input.Status))
	switch status {
	case "":
		// 更新时未提供状态则保持原状态
		status = post.Status
		if status == "" {
			status = db.PostStatusDraft
		}
	case db.PostStatusDraft, db.PostStatusPublished:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrPostInvalidInput, input.Status)
	}

	slug := Slugify(input.Slug)
	if slug == "" {
		// 已有文章不随标题改变 slug，保持链接稳定
		slug = post.Slug
	}
	if slug == "" {
		slug = Slugify(title)
	}
	if slug == "" {
		slug = "post-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
	}

	summary := strings.TrimSpace(input.Summary)
	if summary == "" {
		summary = summarizeMarkdown(input.Content)
	}

	post.Title = title
	post.Slug = slug
	post.Summary = summary
	post.Content = input.Content
	post.CoverURL = strings.TrimSpace(input.CoverURL)

	switch {
	case status == db.PostStatusPublished && post.PublishedAt == nil:
		publishedAt := s.now()
		post.PublishedAt = &publishedAt
	case status == db.PostStatusDraft:
		post.PublishedAt = nil
	}
	post.Status = status
	return nil
}

func (s *BlogService) save(post *db.BlogPost) (*db.BlogPost, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.BlogPost{}).
			Where("slug = ? AND id <> ?", post.Slug, post.ID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check slug: %w", err)
		}
		if count > 0 {
			return ErrSlugTaken
		}

		if err := tx.Omit(clause.Associations).Save(post).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSlugTaken
			}
			return fmt.Errorf("save post: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(post.ID)
}

func applyBlogFilter(query *gorm.DB, filter BlogFilter, includeStatus bool) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(summary) LIKE ?", like, like)
	}
	if includeStatus {
		if status := strings.ToLower(strings.TrimSpace(filter.Status)); status != "" {
			query = query.Where("status = ?", status)
		}
	}
	return query
}

// summarizeMarkdown 去掉常见的 Markdown 标记后截取前 160 个字符作为摘要。
func summarizeMarkdown(markdown string) string {
	replacer := strings.NewReplacer(
		"#", " ",
		"*", " ",
		"`", " ",
		"_", " ",
		">", " ",
		"[", " ",
		"]", " ",
		"(", " ",
		")", " ",
	)
	plain := strings.Join(strings.Fields(replacer.Replace(markdown)), " ")
	if plain == "" {
		return ""
	}

	const limit = 160
	if utf8.RuneCountInString(plain) <= limit {
		return plain
	}

	runes := []rune(plain)
	return string(runes[:limit]) + "…"
}
