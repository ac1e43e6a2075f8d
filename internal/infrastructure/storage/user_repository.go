package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opengpts/backend/internal/domain/account"
)

// UserRepository 用户仓储接口
type UserRepository interface {
	GetOrCreate(sub string) (*account.User, error)
	FindByID(userID string) (*account.User, error)
}

// userRepository 用户 SQLite 仓储实现
type userRepository struct {
	db *sql.DB
}

// NewUserRepository 创建用户仓储实例
func NewUserRepository(db *sql.DB) (UserRepository, error) {
	if err := initUserTable(db); err != nil {
		return nil, err
	}
	return &userRepository{db: db}, nil
}

func initUserTable(db *sql.DB) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		sub TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL
	);`

	if _, err := db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	createIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_users_sub ON users(sub);`

	if _, err := db.Exec(createIndexSQL); err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	return nil
}

// GetOrCreate 按主体标识查找用户，不存在时创建
func (r *userRepository) GetOrCreate(sub string) (*account.User, error) {
	user, err := r.findBySub(sub)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	user = &account.User{
		UserID:    uuid.New().String(),
		Sub:       sub,
		CreatedAt: time.Now(),
	}
	_, err = r.db.Exec(
		`INSERT INTO users (user_id, sub, created_at) VALUES (?, ?, ?)`,
		user.UserID, user.Sub, user.CreatedAt.UnixMilli(),
	)
	if err != nil {
		// 并发创建同一主体时回落到查询
		if existing, findErr := r.findBySub(sub); findErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// FindByID 根据 ID 查找用户
func (r *userRepository) FindByID(userID string) (*account.User, error) {
	return r.scanUser(r.db.QueryRow(
		`SELECT user_id, sub, created_at FROM users WHERE user_id = ?`, userID))
}

func (r *userRepository) findBySub(sub string) (*account.User, error) {
	return r.scanUser(r.db.QueryRow(
		`SELECT user_id, sub, created_at FROM users WHERE sub = ?`, sub))
}

func (r *userRepository) scanUser(row *sql.Row) (*account.User, error) {
	var user account.User
	var createdAt int64

	err := row.Scan(&user.UserID, &user.Sub, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user.CreatedAt = time.UnixMilli(createdAt)
	return &user, nil
}
