package main

import (
	"fmt"
	"os"

	"github.com/folio/internal/config"
	"github.com/folio/internal/db"
	"github.com/folio/internal/logging"
	"github.com/joho/godotenv"
)

// 根据 ADMIN_EMAIL / ADMIN_PASSWORD 创建或提升管理员账号
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, "console", os.Stderr)

	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		logger.Fatal().Msg("ADMIN_EMAIL 与 ADMIN_PASSWORD 必须同时设置")
	}

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		logger.Fatal().Err(err).Msg("数据库初始化失败")
	}

	if err := db.EnsureAdmin(db.DB, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Fatal().Err(err).Msg("创建管理员失败")
	}

	fmt.Println("管理员账号已就绪")
	fmt.Println("邮箱:", db.NormalizeEmail(cfg.AdminEmail))
}
