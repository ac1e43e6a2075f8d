package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opengpts/backend/internal/domain/account"
)

// AssistantRepository 助手仓储接口
type AssistantRepository interface {
	Save(assistant *account.Assistant) error
	FindByID(userID, assistantID string) (*account.Assistant, error)
	FindByUser(userID string) ([]*account.Assistant, error)
	Delete(userID, assistantID string) error
}

// assistantRepository 助手 SQLite 仓储实现
type assistantRepository struct {
	db *sql.DB
}

// NewAssistantRepository 创建助手仓储实例
func NewAssistantRepository(db *sql.DB) (AssistantRepository, error) {
	if err := initAssistantTable(db); err != nil {
		return nil, err
	}
	return &assistantRepository{db: db}, nil
}

func initAssistantTable(db *sql.DB) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS assistants (
		assistant_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		config TEXT NOT NULL,
		public INTEGER DEFAULT 0,
		updated_at INTEGER NOT NULL
	);`

	if _, err := db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create assistants table: %w", err)
	}

	createIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_assistants_user_id ON assistants(user_id);`

	if _, err := db.Exec(createIndexSQL); err != nil {
		return fmt.Errorf("failed to create assistants index: %w", err)
	}

	return nil
}

// Save 保存助手，ID 为空时生成
func (r *assistantRepository) Save(assistant *account.Assistant) error {
	if assistant.AssistantID == "" {
		assistant.AssistantID = uuid.New().String()
	}
	assistant.UpdatedAt = time.Now()

	configJSON, err := json.Marshal(assistant.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal assistant config: %w", err)
	}

	public := 0
	if assistant.Public {
		public = 1
	}

	query := `
		INSERT OR REPLACE INTO assistants
		(assistant_id, user_id, name, config, public, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err = r.db.Exec(query,
		assistant.AssistantID,
		assistant.UserID,
		assistant.Name,
		string(configJSON),
		public,
		assistant.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save assistant: %w", err)
	}
	return nil
}

// FindByID 查找用户可见的助手（本人创建或公开）
func (r *assistantRepository) FindByID(userID, assistantID string) (*account.Assistant, error) {
	query := `
		SELECT assistant_id, user_id, name, config, public, updated_at
		FROM assistants
		WHERE assistant_id = ? AND (user_id = ? OR public = 1)`

	return scanAssistant(r.db.QueryRow(query, assistantID, userID))
}

// FindByUser 列举用户创建的助手
func (r *assistantRepository) FindByUser(userID string) ([]*account.Assistant, error) {
	query := `
		SELECT assistant_id, user_id, name, config, public, updated_at
		FROM assistants
		WHERE user_id = ?
		ORDER BY updated_at DESC`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assistants: %w", err)
	}
	defer rows.Close()

	var assistants []*account.Assistant
	for rows.Next() {
		assistant, err := scanAssistantRow(rows)
		if err != nil {
			return nil, err
		}
		assistants = append(assistants, assistant)
	}
	return assistants, rows.Err()
}

// Delete 删除用户自己的助手
func (r *assistantRepository) Delete(userID, assistantID string) error {
	_, err := r.db.Exec(
		`DELETE FROM assistants WHERE assistant_id = ? AND user_id = ?`,
		assistantID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete assistant: %w", err)
	}
	return nil
}

func scanAssistant(row *sql.Row) (*account.Assistant, error) {
	var assistant account.Assistant
	var configJSON string
	var public int
	var updatedAt int64

	err := row.Scan(
		&assistant.AssistantID,
		&assistant.UserID,
		&assistant.Name,
		&configJSON,
		&public,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan assistant: %w", err)
	}

	return fillAssistant(&assistant, configJSON, public, updatedAt)
}

func scanAssistantRow(rows *sql.Rows) (*account.Assistant, error) {
	var assistant account.Assistant
	var configJSON string
	var public int
	var updatedAt int64

	err := rows.Scan(
		&assistant.AssistantID,
		&assistant.UserID,
		&assistant.Name,
		&configJSON,
		&public,
		&updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan assistant: %w", err)
	}

	return fillAssistant(&assistant, configJSON, public, updatedAt)
}

func fillAssistant(assistant *account.Assistant, configJSON string, public int, updatedAt int64) (*account.Assistant, error) {
	if configJSON != "" {
		if err := json.Unmarshal([]byte(configJSON), &assistant.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal assistant config: %w", err)
		}
	}
	assistant.Public = public == 1
	assistant.UpdatedAt = time.UnixMilli(updatedAt)
	return assistant, nil
}
