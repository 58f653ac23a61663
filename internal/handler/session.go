package handler

import (
	"errors"
	"net/http"

	"github.com/folio/internal/db"
	"github.com/folio/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	sessionUserIDKey = "user_id"
	sessionEmailKey  = "email"
	sessionAdminKey  = "is_admin"

	currentUserContextKey = "__current_user"
)

func startSession(c *gin.Context, user *db.User, admin bool) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionUserIDKey, user.ID)
	session.Set(sessionEmailKey, user.Email)
	session.Set(sessionAdminKey, admin)
	return session.Save()
}

func clearSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}

func sessionUserID(c *gin.Context) (uint, bool) {
	switch id := sessions.Default(c).Get(sessionUserIDKey).(type) {
	case uint:
		return id, id > 0
	case int:
		return uint(id), id > 0
	default:
		return 0, false
	}
}

func sessionIsAdmin(c *gin.Context) bool {
	admin, _ := sessions.Default(c).Get(sessionAdminKey).(bool)
	return admin
}

// currentUser 返回认证中间件写入上下文的用户。
func currentUser(c *gin.Context) *db.User {
	if value, exists := c.Get(currentUserContextKey); exists {
		if user, ok := value.(*db.User); ok {
			return user
		}
	}
	return nil
}

// AuthRequired 要求请求携带有效的登录会话。
func (a *API) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := a.loadSessionUser(c); !ok {
			return
		}
		c.Next()
	}
}

// AdminRequired 要求会话通过管理员登录建立，且账号仍然拥有管理员权限。
func (a *API) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := a.loadSessionUser(c)
		if !ok {
			return
		}
		if !sessionIsAdmin(c) || !user.IsAdmin {
			respondError(c, http.StatusForbidden, "需要管理员权限")
			return
		}
		c.Next()
	}
}

func (a *API) loadSessionUser(c *gin.Context) (*db.User, bool) {
	userID, ok := sessionUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return nil, false
	}

	user, err := a.users.Get(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			_ = clearSession(c)
			respondError(c, http.StatusUnauthorized, "会话已失效，请重新登录")
			return nil, false
		}
		a.respondInternal(c, err, "读取会话用户失败")
		return nil, false
	}

	c.Set(currentUserContextKey, user)
	return user, true
}
