package db

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB 是一个全局的数据库连接实例
var DB *gorm.DB

// Models 列出需要自动迁移的全部模型，测试中也复用这份列表。
func Models() []interface{} {
	return []interface{}{
		&User{},
		&Follow{},
		&BlogPost{},
		&SiteContent{},
		&ContentVersion{},
		&AdminLog{},
	}
}

// Init 初始化数据库连接并执行自动迁移。
// databasePath 为空时将回退到默认值 folio.db。
func Init(databasePath string) error {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		path = "folio.db"
	}

	if err := ensureParentDir(path); err != nil {
		return err
	}

	gdb, err := Open(path, logger.Warn)
	if err != nil {
		return err
	}

	DB = gdb
	return nil
}

// Open 打开指定 DSN 的 sqlite 连接并完成迁移，不修改全局 DB。
func Open(dsn string, level logger.LogLevel) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// 自动迁移模式，为核心模型创建表
	if err := gdb.AutoMigrate(Models()...); err != nil {
		return nil, err
	}

	return gdb, nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
