package handler

import (
	"github.com/folio/internal/service"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db       *gorm.DB
	logger   zerolog.Logger
	auth     *service.AuthService
	users    *service.UserService
	follows  *service.FollowService
	blog     *service.BlogService
	contents *service.ContentService
	versions *service.ContentVersionService
	logs     *service.AdminLogService
	console  *service.ConsoleService
}

// Options 是构造 API 时可选的依赖。
type Options struct {
	// MasterKey 来自 ADMIN_MASTER_KEY，为空时回退到内容文档中的配置。
	MasterKey string
	Mailer    service.Mailer
	Logger    zerolog.Logger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, opts Options) *API {
	contents := service.NewContentService(gdb)
	versions := service.NewContentVersionService(gdb, contents)
	users := service.NewUserService(gdb)
	blog := service.NewBlogService(gdb)
	logs := service.NewAdminLogService(gdb)

	return &API{
		db:       gdb,
		logger:   opts.Logger,
		auth:     service.NewAuthService(gdb, contents, opts.MasterKey, opts.Mailer, opts.Logger),
		users:    users,
		follows:  service.NewFollowService(gdb),
		blog:     blog,
		contents: contents,
		versions: versions,
		logs:     logs,
		console:  service.NewConsoleService(users, blog, contents, versions, logs),
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}
