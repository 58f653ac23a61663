package main

import (
	"os"

	"github.com/folio/internal/config"
	"github.com/folio/internal/db"
	"github.com/folio/internal/logging"
	"github.com/folio/internal/router"
	"github.com/folio/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if envErr != nil {
		logger.Debug().Msg("no .env file found, using process environment")
	}

	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to initialize database")
	}

	if err := db.EnsureAdmin(db.DB, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Fatal().Err(err).Msg("failed to bootstrap admin account")
	}

	seeded, err := service.NewContentService(db.DB).EnsureSeeded()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to seed site content")
	}
	if seeded {
		logger.Info().Msg("seeded default site content")
	}

	if cfg.SessionSecret == config.DefaultSessionSecret {
		logger.Warn().Msg("SESSION_SECRET is not set, using the development default")
	}
	if cfg.AdminMasterKey == "" {
		logger.Warn().Msg("ADMIN_MASTER_KEY is not set, admin login falls back to the content settings key")
	}

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(db.DB, router.Options{
		SessionSecret:      cfg.SessionSecret,
		CookieSecure:       cfg.CookieSecure,
		MasterKey:          cfg.AdminMasterKey,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
		Logger:             logger,
	})

	logger.Info().Str("addr", cfg.ListenAddr).Msg("server listening")
	if err := r.Run(cfg.ListenAddr); err != nil {
		logger.Fatal().Err(err).Msg("failed to run server")
	}
}
