package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/opengpts/backend/internal/infrastructure/config"
)

// DefaultDBPath 获取默认数据库路径
// Windows: %USERPROFILE%\.opengpts\opengpts.db
// macOS/Linux: ~/.opengpts/opengpts.db
func DefaultDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".opengpts", "opengpts.db"), nil
}

// OpenDB 打开数据库连接
// 配置未指定路径时使用默认路径
func OpenDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dbPath := cfg.Path
	if dbPath == "" {
		var err error
		dbPath, err = DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}

	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
