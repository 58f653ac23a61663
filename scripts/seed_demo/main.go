package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/folio/internal/config"
	"github.com/folio/internal/db"
	"github.com/folio/internal/logging"
	"github.com/folio/internal/service"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const demoPassword = "demo-password"

type demoUser struct {
	email string
	name  string
	bio   string
	admin bool
}

var demoUsers = []demoUser{
	{email: "admin@example.com", name: "Admin", bio: "站点维护者", admin: true},
	{email: "ada@example.com", name: "Ada", bio: "写代码，也写诗。"},
	{email: "linus@example.com", name: "Linus", bio: "偶尔看看内核邮件列表。"},
	{email: "grace@example.com", name: "Grace", bio: "编译器爱好者。"},
}

// 每一项为 关注者 -> 被关注者
var demoFollows = [][2]string{
	{"ada@example.com", "admin@example.com"},
	{"linus@example.com", "admin@example.com"},
	{"grace@example.com", "admin@example.com"},
	{"ada@example.com", "grace@example.com"},
	{"grace@example.com", "ada@example.com"},
}

var demoPosts = []service.BlogPostInput{
	{
		Title:   "使用 Go 构建作品集后端",
		Content: "## 为什么是 Go\n\n单个二进制、标准库的 `net/http` 加上 Gin，足够支撑一个个人站点。\n\n- 内容以 JSON 文档存储\n- 草稿与发布分离\n- 最多保留 10 个历史版本",
		Status:  db.PostStatusPublished,
	},
	{
		Title:   "SQLite 在小型站点中的实践",
		Content: "SQLite 足以承载一个个人站点的全部数据。本文记录 WAL 模式、索引与备份的一些经验。",
		Status:  db.PostStatusPublished,
	},
	{
		Title:   "Markdown 渲染与 XSS 防护",
		Content: "渲染用户提交的 Markdown 时，先用 goldmark 转为 HTML，再经过 bluemonday 过滤。\n\n```go\nhtml := policy.SanitizeBytes(buf.Bytes())\n```",
		Status:  db.PostStatusPublished,
	},
	{
		Title:   "下一步计划",
		Content: "还没想好要写什么，先存为草稿。",
		Status:  db.PostStatusDraft,
	},
}

// 演示数据生成器
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, "console", os.Stderr)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		logger.Fatal().Err(err).Msg("数据库初始化失败")
	}

	summary, err := seedDemo(db.DB, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("生成演示数据失败")
	}

	fmt.Println("演示数据生成完成！")
	fmt.Printf("用户: %d 个新账号 (密码: %s)\n", summary.users, demoPassword)
	fmt.Printf("关注: %d 条新关系\n", summary.follows)
	fmt.Printf("文章: %d 篇新文章\n", summary.posts)
}

type seedSummary struct {
	users   int
	follows int
	posts   int
}

// seedDemo 写入演示账号、关注关系与博客文章，已存在的数据会被跳过。
func seedDemo(gdb *gorm.DB, logger zerolog.Logger) (seedSummary, error) {
	var summary seedSummary

	if _, err := service.NewContentService(gdb).EnsureSeeded(); err != nil {
		return summary, err
	}

	ids := make(map[string]uint, len(demoUsers))
	for _, data := range demoUsers {
		user, created, err := ensureDemoUser(gdb, data)
		if err != nil {
			return summary, err
		}
		if created {
			summary.users++
		}
		ids[data.email] = user.ID
	}

	follows := service.NewFollowService(gdb)
	for _, edge := range demoFollows {
		created, err := follows.Follow(ids[edge[0]], ids[edge[1]])
		if err != nil {
			return summary, fmt.Errorf("follow %s -> %s: %w", edge[0], edge[1], err)
		}
		if created {
			summary.follows++
		}
	}

	blog := service.NewBlogService(gdb)
	authorID := ids[demoUsers[0].email]
	for _, input := range demoPosts {
		input.AuthorID = authorID
		if _, err := blog.Create(input); err != nil {
			if errors.Is(err, service.ErrSlugTaken) {
				logger.Debug().Str("title", input.Title).Msg("文章已存在，跳过")
				continue
			}
			return summary, fmt.Errorf("create post %q: %w", input.Title, err)
		}
		summary.posts++
	}

	return summary, nil
}

func ensureDemoUser(gdb *gorm.DB, data demoUser) (*db.User, bool, error) {
	var existing db.User
	if err := gdb.Where("email = ?", data.email).First(&existing).Error; err == nil {
		return &existing, false, nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, err
	}

	user := db.User{
		Email:        data.email,
		PasswordHash: string(hashed),
		Name:         data.name,
		Bio:          data.bio,
		IsAdmin:      data.admin,
		Verified:     true,
	}
	if err := gdb.Create(&user).Error; err != nil {
		return nil, false, fmt.Errorf("create user %s: %w", data.email, err)
	}
	return &user, true, nil
}
