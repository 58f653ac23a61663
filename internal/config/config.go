package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr         string
	Port               string
	DatabasePath       string
	SessionSecret      string
	GinMode            string
	AdminMasterKey     string
	AdminEmail         string
	AdminPassword      string
	LogLevel           string
	LogFormat          string
	CookieSecure       bool
	LoginRatePerMinute int
}

// DefaultSessionSecret 仅用于本地开发，生产环境必须通过 SESSION_SECRET 覆盖。
const DefaultSessionSecret = "folio-dev-secret"

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := envOr("PORT", "8080")

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	return AppConfig{
		ListenAddr:         listenAddr,
		Port:               port,
		DatabasePath:       envOr("DATABASE_PATH", "folio.db"),
		SessionSecret:      envOr("SESSION_SECRET", DefaultSessionSecret),
		GinMode:            envOr("GIN_MODE", "release"),
		AdminMasterKey:     strings.TrimSpace(os.Getenv("ADMIN_MASTER_KEY")),
		AdminEmail:         strings.TrimSpace(os.Getenv("ADMIN_EMAIL")),
		AdminPassword:      strings.TrimSpace(os.Getenv("ADMIN_PASSWORD")),
		LogLevel:           strings.ToLower(envOr("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(envOr("LOG_FORMAT", "json")),
		CookieSecure:       envBool("COOKIE_SECURE", false),
		LoginRatePerMinute: envInt("LOGIN_RATE_PER_MINUTE", 10),
	}
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
