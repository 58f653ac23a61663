package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/folio/internal/db"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testMasterKey = "test-master-key"

type testServer struct {
	t      *testing.T
	api    *API
	db     *gorm.DB
	engine *gin.Engine
}

func setupHandlerTest(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(dsn, logger.Silent)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	api := NewAPI(gdb, Options{MasterKey: testMasterKey, Logger: zerolog.New(io.Discard)})

	r := gin.New()
	r.Use(sessions.Sessions("folio_test", cookie.NewStore([]byte("handler-test-secret"))))

	r.POST("/api/auth/register", api.Register)
	r.POST("/api/auth/login", api.Login)
	r.POST("/api/auth/admin/login", api.AdminLogin)
	r.POST("/api/auth/logout", api.Logout)
	r.GET("/api/auth/me", api.AuthRequired(), api.Me)
	r.GET("/api/auth/verify", api.VerifyEmail)
	r.POST("/api/auth/forgot", api.ForgotPassword)
	r.POST("/api/auth/reset", api.ResetPassword)

	r.GET("/api/content", api.GetPublicContent)
	r.GET("/api/blog", api.ListPublishedPosts)
	r.GET("/api/blog/:slug", api.GetPublishedPost)
	r.GET("/api/users/:id", api.GetUserProfile)
	r.GET("/api/users/:id/followers", api.ListFollowers)
	r.GET("/api/users/:id/following", api.ListFollowing)

	member := r.Group("/api/users", api.AuthRequired())
	member.PUT("/me", api.UpdateMyProfile)
	member.PUT("/me/password", api.ChangeMyPassword)
	member.POST("/:id/follow", api.FollowUser)
	member.DELETE("/:id/follow", api.UnfollowUser)

	admin := r.Group("/api/admin", api.AdminRequired())
	admin.GET("/content", api.GetAdminContent)
	admin.PUT("/content", api.ReplaceContent)
	admin.PATCH("/content", api.PatchContent)
	admin.PUT("/content/order", api.UpdateSectionOrder)
	admin.GET("/content/draft", api.GetDraft)
	admin.PUT("/content/draft", api.SaveDraft)
	admin.PATCH("/content/draft", api.PatchDraft)
	admin.POST("/content/publish", api.PublishDraft)
	admin.GET("/content/versions", api.ListVersions)
	admin.POST("/content/rollback/:id", api.RollbackVersion)
	admin.GET("/blog", api.ListPosts)
	admin.POST("/blog", api.CreatePost)
	admin.GET("/blog/:id", api.GetPost)
	admin.PUT("/blog/:id", api.UpdatePost)
	admin.DELETE("/blog/:id", api.DeletePost)
	admin.GET("/users", api.ListUsers)
	admin.PUT("/users/:id", api.AdminUpdateUser)
	admin.DELETE("/users/:id", api.AdminDeleteUser)
	admin.GET("/logs", api.ListAdminLogs)
	admin.DELETE("/logs", api.ClearAdminLogs)
	admin.POST("/console", api.RunConsoleCommand)
	admin.GET("/social-icons", api.ListSocialIcons)

	return &testServer{t: t, api: api, db: gdb, engine: r}
}

func (s *testServer) createUser(email, password string, admin bool) db.User {
	s.t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		s.t.Fatalf("hash password: %v", err)
	}
	user := db.User{Email: email, PasswordHash: string(hashed), Name: email, IsAdmin: admin, Verified: true}
	if err := s.db.Create(&user).Error; err != nil {
		s.t.Fatalf("create user: %v", err)
	}
	return user
}

// client 在多次请求之间保留会话 cookie。
type client struct {
	server  *testServer
	cookies map[string]*http.Cookie
}

func (s *testServer) client() *client {
	return &client{server: s, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, path string, body interface{}) (int, map[string]interface{}) {
	c.server.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.server.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}

	rr := httptest.NewRecorder()
	c.server.engine.ServeHTTP(rr, req)

	for _, ck := range rr.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}

	var payload map[string]interface{}
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
			c.server.t.Fatalf("decode response %q: %v", rr.Body.String(), err)
		}
	}
	return rr.Code, payload
}

func (c *client) mustDo(method, path string, body interface{}, expected int) map[string]interface{} {
	c.server.t.Helper()
	status, payload := c.do(method, path, body)
	if status != expected {
		c.server.t.Fatalf("%s %s: expected status %d, got %d (%v)", method, path, expected, status, payload)
	}
	return payload
}

func (s *testServer) adminClient() (*client, db.User) {
	s.t.Helper()
	admin := s.createUser("admin@example.com", "admin-password", true)
	cl := s.client()
	cl.mustDo(http.MethodPost, "/api/auth/admin/login", map[string]string{
		"email":     admin.Email,
		"password":  "admin-password",
		"masterKey": testMasterKey,
	}, http.StatusOK)
	return cl, admin
}
