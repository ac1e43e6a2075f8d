package account

import "time"

// User 用户
// Sub 为认证令牌携带的主体标识，同一主体只对应一个用户
type User struct {
	UserID    string    `json:"user_id"`
	Sub       string    `json:"sub"`
	CreatedAt time.Time `json:"created_at"`
}

// Assistant 助手
type Assistant struct {
	AssistantID string         `json:"assistant_id"`
	UserID      string         `json:"user_id"`
	Name        string         `json:"name"`
	Config      map[string]any `json:"config"`
	Public      bool           `json:"public"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Thread 会话线程
type Thread struct {
	ThreadID    string    `json:"thread_id"`
	UserID      string    `json:"user_id"`
	AssistantID string    `json:"assistant_id"`
	Name        string    `json:"name"`
	UpdatedAt   time.Time `json:"updated_at"`
}
