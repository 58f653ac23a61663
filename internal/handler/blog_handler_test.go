package handler

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlogAdminCRUDAndPublicView(t *testing.T) {
	server := setupHandlerTest(t)
	admin, adminUser := server.adminClient()
	visitor := server.client()

	created := admin.mustDo(http.MethodPost, "/api/admin/blog", map[string]string{
		"title":   "Hello World",
		"content": "# Heading\n\n<script>alert(1)</script>\n\nSome *text*.",
		"status":  "published",
	}, http.StatusCreated)
	post := created["post"].(map[string]interface{})
	require.Equal(t, "hello-world", post["slug"])
	require.NotNil(t, post["publishedAt"])
	require.EqualValues(t, adminUser.ID, post["author"].(map[string]interface{})["id"])

	status, _ := admin.do(http.MethodPost, "/api/admin/blog", map[string]string{"title": "Hello, world!"})
	require.Equal(t, http.StatusConflict, status)

	status, _ = admin.do(http.MethodPost, "/api/admin/blog", map[string]string{"title": "Broken", "status": "archived"})
	require.Equal(t, http.StatusBadRequest, status)

	public := visitor.mustDo(http.MethodGet, "/api/blog/hello-world", nil, http.StatusOK)
	html := public["post"].(map[string]interface{})["html"].(string)
	require.Contains(t, html, "<h1")
	require.Contains(t, html, "<em>text</em>")
	require.False(t, strings.Contains(html, "<script>"))

	id := fmt.Sprintf("%v", post["id"])
	admin.mustDo(http.MethodPut, "/api/admin/blog/"+id, map[string]string{
		"title":  "Hello World",
		"slug":   "hello-world",
		"status": "draft",
	}, http.StatusOK)

	status, _ = visitor.do(http.MethodGet, "/api/blog/hello-world", nil)
	require.Equal(t, http.StatusNotFound, status)

	fetched := admin.mustDo(http.MethodGet, "/api/admin/blog/"+id, nil, http.StatusOK)
	require.Equal(t, "draft", fetched["post"].(map[string]interface{})["status"])

	admin.mustDo(http.MethodDelete, "/api/admin/blog/"+id, nil, http.StatusOK)
	status, _ = admin.do(http.MethodGet, "/api/admin/blog/"+id, nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestBlogPublicListOnlyShowsPublished(t *testing.T) {
	server := setupHandlerTest(t)
	admin, _ := server.adminClient()

	for i := 1; i <= 3; i++ {
		admin.mustDo(http.MethodPost, "/api/admin/blog", map[string]string{
			"title":  fmt.Sprintf("Published %d", i),
			"status": "published",
		}, http.StatusCreated)
	}
	admin.mustDo(http.MethodPost, "/api/admin/blog", map[string]string{"title": "Secret draft"}, http.StatusCreated)

	list := server.client().mustDo(http.MethodGet, "/api/blog?per_page=2", nil, http.StatusOK)
	require.Len(t, list["posts"].([]interface{}), 2)
	pagination := list["pagination"].(map[string]interface{})
	require.EqualValues(t, 3, pagination["total"])
	require.EqualValues(t, 2, pagination["totalPages"])

	adminList := admin.mustDo(http.MethodGet, "/api/admin/blog", nil, http.StatusOK)
	require.EqualValues(t, 1, adminList["draftCount"])
	require.EqualValues(t, 3, adminList["publishedCount"])
}

func TestBlogUsesConfiguredPageSize(t *testing.T) {
	server := setupHandlerTest(t)
	admin, _ := server.adminClient()

	admin.mustDo(http.MethodPatch, "/api/admin/content", map[string]interface{}{
		"blog": map[string]interface{}{"enabled": true, "heading": "Notes", "postsPerPage": 1},
	}, http.StatusOK)
	for i := 1; i <= 2; i++ {
		admin.mustDo(http.MethodPost, "/api/admin/blog", map[string]string{
			"title":  fmt.Sprintf("Post %d", i),
			"status": "published",
		}, http.StatusCreated)
	}

	list := server.client().mustDo(http.MethodGet, "/api/blog", nil, http.StatusOK)
	require.Len(t, list["posts"].([]interface{}), 1)
	require.EqualValues(t, 1, list["pagination"].(map[string]interface{})["perPage"])
}

func TestRenderMarkdownSanitizes(t *testing.T) {
	html, err := renderMarkdown("[click](javascript:alert(1)) and **bold**")
	require.NoError(t, err)
	require.Contains(t, html, "<strong>bold</strong>")
	require.NotContains(t, html, "javascript:")
}

func TestBlogUpdateWithoutStatusStaysPublished(t *testing.T) {
	server := setupHandlerTest(t)
	admin, _ := server.adminClient()

	created := admin.mustDo(http.MethodPost, "/api/admin/blog", map[string]string{
		"title":  "Permalink",
		"status": "published",
	}, http.StatusCreated)
	id := fmt.Sprintf("%v", created["post"].(map[string]interface{})["id"])

	updated := admin.mustDo(http.MethodPut, "/api/admin/blog/"+id, map[string]string{
		"title":   "Permalink, revised",
		"content": "Updated body.",
	}, http.StatusOK)
	post := updated["post"].(map[string]interface{})
	require.Equal(t, "published", post["status"])
	require.Equal(t, "permalink", post["slug"])

	server.client().mustDo(http.MethodGet, "/api/blog/permalink", nil, http.StatusOK)
}
