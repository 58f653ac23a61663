package router

import (
	"net/http"

	"github.com/folio/internal/db"
	"github.com/folio/internal/handler"
	"github.com/folio/internal/logging"
	"github.com/folio/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	sessionCookieName = "folio_session"
	sessionMaxAge     = 7 * 24 * 60 * 60
)

// Options 汇总构建路由所需的配置。
type Options struct {
	SessionSecret      string
	CookieSecure       bool
	MasterKey          string
	LoginRatePerMinute int
	Logger             zerolog.Logger
	Mailer             service.Mailer
}

// SetupRouter 配置 Gin 引擎和路由。gdb 为空时使用全局 db.DB。
func SetupRouter(gdb *gorm.DB, opts Options) *gin.Engine {
	if gdb == nil {
		gdb = db.DB
	}

	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(opts.Logger))

	// 配置会话中间件
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionCookieName, store))

	api := handler.NewAPI(gdb, handler.Options{
		MasterKey: opts.MasterKey,
		Mailer:    opts.Mailer,
		Logger:    opts.Logger,
	})
	limiter := handler.NewLoginLimiter(opts.LoginRatePerMinute)

	r.GET("/healthz", api.HealthCheck)

	public := r.Group("/api")
	{
		public.GET("/content", api.GetPublicContent)
		public.GET("/blog", api.ListPublishedPosts)
		public.GET("/blog/:slug", api.GetPublishedPost)
		public.GET("/users/:id", api.GetUserProfile)
		public.GET("/users/:id/followers", api.ListFollowers)
		public.GET("/users/:id/following", api.ListFollowing)
	}

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", limiter.Middleware(), api.Register)
		auth.POST("/login", limiter.Middleware(), api.Login)
		auth.POST("/admin/login", limiter.Middleware(), api.AdminLogin)
		auth.POST("/logout", api.Logout)
		auth.GET("/me", api.AuthRequired(), api.Me)
		auth.GET("/verify", api.VerifyEmail)
		auth.POST("/forgot", limiter.Middleware(), api.ForgotPassword)
		auth.POST("/reset", limiter.Middleware(), api.ResetPassword)
	}

	// 需要登录的用户路由
	member := r.Group("/api/users")
	member.Use(api.AuthRequired())
	{
		member.PUT("/me", api.UpdateMyProfile)
		member.PUT("/me/password", api.ChangeMyPassword)
		member.POST("/:id/follow", api.FollowUser)
		member.DELETE("/:id/follow", api.UnfollowUser)
	}

	// 后台管理路由
	admin := r.Group("/api/admin")
	admin.Use(api.AdminRequired())
	{
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
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "not found"})
	})

	return r
}
