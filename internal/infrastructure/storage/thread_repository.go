package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opengpts/backend/internal/domain/account"
)

// ThreadRepository 线程仓储接口
type ThreadRepository interface {
	Save(thread *account.Thread) error
	FindByID(userID, threadID string) (*account.Thread, error)
	FindByUser(userID string) ([]*account.Thread, error)
	Delete(userID, threadID string) error
}

// threadRepository 线程 SQLite 仓储实现
type threadRepository struct {
	db *sql.DB
}

// NewThreadRepository 创建线程仓储实例
func NewThreadRepository(db *sql.DB) (ThreadRepository, error) {
	if err := initThreadTable(db); err != nil {
		return nil, err
	}
	return &threadRepository{db: db}, nil
}

func initThreadTable(db *sql.DB) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS threads (
		thread_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		assistant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`

	if _, err := db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create threads table: %w", err)
	}

	createIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_threads_user_id ON threads(user_id);`

	if _, err := db.Exec(createIndexSQL); err != nil {
		return fmt.Errorf("failed to create threads index: %w", err)
	}

	return nil
}

// Save 保存线程，ID 为空时生成
func (r *threadRepository) Save(thread *account.Thread) error {
	if thread.ThreadID == "" {
		thread.ThreadID = uuid.New().String()
	}
	thread.UpdatedAt = time.Now()

	query := `
		INSERT OR REPLACE INTO threads
		(thread_id, user_id, assistant_id, name, updated_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		thread.ThreadID,
		thread.UserID,
		thread.AssistantID,
		thread.Name,
		thread.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save thread: %w", err)
	}
	return nil
}

// FindByID 查找用户自己的线程
func (r *threadRepository) FindByID(userID, threadID string) (*account.Thread, error) {
	query := `
		SELECT thread_id, user_id, assistant_id, name, updated_at
		FROM threads
		WHERE thread_id = ? AND user_id = ?`

	var thread account.Thread
	var updatedAt int64

	err := r.db.QueryRow(query, threadID, userID).Scan(
		&thread.ThreadID,
		&thread.UserID,
		&thread.AssistantID,
		&thread.Name,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan thread: %w", err)
	}

	thread.UpdatedAt = time.UnixMilli(updatedAt)
	return &thread, nil
}

// FindByUser 列举用户的线程
func (r *threadRepository) FindByUser(userID string) ([]*account.Thread, error) {
	query := `
		SELECT thread_id, user_id, assistant_id, name, updated_at
		FROM threads
		WHERE user_id = ?
		ORDER BY updated_at DESC`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query threads: %w", err)
	}
	defer rows.Close()

	var threads []*account.Thread
	for rows.Next() {
		var thread account.Thread
		var updatedAt int64
		if err := rows.Scan(
			&thread.ThreadID,
			&thread.UserID,
			&thread.AssistantID,
			&thread.Name,
			&updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		thread.UpdatedAt = time.UnixMilli(updatedAt)
		threads = append(threads, &thread)
	}
	return threads, rows.Err()
}

// Delete 删除用户自己的线程
func (r *threadRepository) Delete(userID, threadID string) error {
	_, err := r.db.Exec(
		`DELETE FROM threads WHERE thread_id = ? AND user_id = ?`,
		threadID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return nil
}
