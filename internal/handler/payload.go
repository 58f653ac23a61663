package handler

import (
	"time"

	"github.com/folio/internal/db"
	"github.com/gin-gonic/gin"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// publicUserPayload 只包含访客可见的字段。
func publicUserPayload(user db.User) gin.H {
	return gin.H{
		"id":             user.ID,
		"name":           user.Name,
		"bio":            user.Bio,
		"avatarUrl":      user.AvatarURL,
		"followersCount": user.FollowersCount,
		"followingCount": user.FollowingCount,
		"createdAt":      formatTime(user.CreatedAt),
	}
}

// privateUserPayload 在公开字段之外附带邮箱与账号状态，仅返回给本人或管理员。
func privateUserPayload(user db.User) gin.H {
	payload := publicUserPayload(user)
	payload["email"] = user.Email
	payload["isAdmin"] = user.IsAdmin
	payload["verified"] = user.Verified
	return payload
}

func usersPayload(users []db.User, private bool) []gin.H {
	items := make([]gin.H, 0, len(users))
	for _, user := range users {
		if private {
			items = append(items, privateUserPayload(user))
		} else {
			items = append(items, publicUserPayload(user))
		}
	}
	return items
}

func blogPostPayload(post db.BlogPost, includeContent bool) gin.H {
	payload := gin.H{
		"id":          post.ID,
		"title":       post.Title,
		"slug":        post.Slug,
		"summary":     post.Summary,
		"coverUrl":    post.CoverURL,
		"status":      post.Status,
		"publishedAt": formatTimePtr(post.PublishedAt),
		"createdAt":   formatTime(post.CreatedAt),
		"updatedAt":   formatTime(post.UpdatedAt),
	}
	if post.Author.ID != 0 {
		payload["author"] = gin.H{"id": post.Author.ID, "name": post.Author.Name}
	}
	if includeContent {
		payload["content"] = post.Content
	}
	return payload
}

func versionPayload(version db.ContentVersion) gin.H {
	return gin.H{
		"id":              version.ID,
		"version":         version.Version,
		"status":          version.Status,
		"active":          version.Active,
		"note":            version.Note,
		"createdById":     version.CreatedByID,
		"sourceVersionId": version.SourceVersionID,
		"publishedAt":     formatTimePtr(version.PublishedAt),
		"createdAt":       formatTime(version.CreatedAt),
	}
}

func adminLogPayload(entry db.AdminLog) gin.H {
	return gin.H{
		"id":          entry.ID,
		"action":      entry.Action,
		"actorId":     entry.ActorID,
		"actorEmail":  entry.ActorEmail,
		"detail":      entry.Detail,
		"changedKeys": entry.ChangedKeys,
		"remoteIp":    entry.RemoteIP,
		"createdAt":   formatTime(entry.CreatedAt),
	}
}

func paginationPayload(page, perPage, totalPages int, total int64) gin.H {
	return gin.H{
		"page":       page,
		"perPage":    perPage,
		"total":      total,
		"totalPages": totalPages,
	}
}
