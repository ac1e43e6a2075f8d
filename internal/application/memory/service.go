package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log/slog"

	domainIngest "github.com/opengpts/backend/internal/domain/ingest"
	domainRun "github.com/opengpts/backend/internal/domain/run"
	"github.com/opengpts/backend/internal/infrastructure/log"
)

// Source 记忆片段在向量库中的来源标记，与文件摄取的片段区分开
const Source = "memory"

// 构建上下文时的默认上限
const (
	defaultContextItems = 4
	defaultContextChars = 1200
)

// UserNamespace 用户记忆命名空间
func UserNamespace(userID string) domainIngest.Namespace {
	return domainIngest.Namespace("user:" + userID)
}

// Item 一条用户记忆
type Item struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	Role        string `json:"role,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
	ThreadID    string `json:"thread_id,omitempty"`
	AssistantID string `json:"assistant_id,omitempty"`
}

// Service 用户长期记忆服务
// 把运行产生的消息写入向量库，并在新一轮对话前检索相关记忆
type Service struct {
	store  domainIngest.VectorStore
	logger *slog.Logger
}

// NewService 创建记忆服务
func NewService(store domainIngest.VectorStore) *Service {
	return &Service{
		store:  store,
		logger: log.NewModuleLogger("memory", "service"),
	}
}

// StoreMessages 将一次运行中的用户/助手消息写入记忆库
// 空白消息与 user/assistant 之外的角色跳过
func (s *Service) StoreMessages(
	ctx context.Context,
	userID, threadID, assistantID string,
	messages []*domainRun.Message,
) error {
	namespace := UserNamespace(userID)
	createdAt := time.Now().UTC().Format(time.RFC3339)

	var chunks []*domainIngest.Chunk
	for _, message := range messages {
		text := strings.TrimSpace(message.Text)
		if text == "" {
			continue
		}
		var prefix, role string
		switch message.Role {
		case domainRun.RoleUser:
			prefix, role = "User: ", "user"
		case domainRun.RoleAssistant:
			prefix, role = "Assistant: ", "assistant"
		default:
			continue
		}
		chunks = append(chunks, &domainIngest.Chunk{
			Text:      prefix + text,
			Namespace: namespace,
			Source:    Source,
			Metadata: map[string]string{
				"role":         role,
				"user_id":      userID,
				"thread_id":    threadID,
				"assistant_id": assistantID,
				"created_at":   createdAt,
			},
		})
	}
	if len(chunks) == 0 {
		return nil
	}

	if _, err := s.store.AddChunks(ctx, chunks); err != nil {
		return fmt.Errorf("failed to store memory: %w", err)
	}
	return nil
}

// BuildContext 为新一轮对话检索相关记忆并拼装注入文本
// 查询为空或没有可用记忆时返回空串
func (s *Service) BuildContext(ctx context.Context, userID, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", nil
	}

	hits, err := s.store.Search(ctx, query, UserNamespace(userID), Source, defaultContextItems)
	if err != nil {
		return "", fmt.Errorf("failed to search memory: %w", err)
	}

	var lines []string
	usedChars := 0
	for _, hit := range hits {
		text := strings.TrimSpace(hit.Text)
		if text == "" {
			continue
		}
		line := "- " + text
		if usedChars+len(line) > defaultContextChars {
			break
		}
		lines = append(lines, line)
		usedChars += len(line)
	}
	if len(lines) == 0 {
		return "", nil
	}
	return "User memory (use only if relevant):\n" + strings.Join(lines, "\n"), nil
}

// List 分页列举用户记忆，按写入时间倒序
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]*Item, error) {
	stored, err := s.store.List(ctx, UserNamespace(userID), Source, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list memory: %w", err)
	}

	items := make([]*Item, 0, len(stored))
	for _, chunk := range stored {
		items = append(items, &Item{
			ID:          chunk.ID,
			Content:     chunk.Text,
			Role:        chunk.Metadata["role"],
			CreatedAt:   chunk.Metadata["created_at"],
			ThreadID:    chunk.Metadata["thread_id"],
			AssistantID: chunk.Metadata["assistant_id"],
		})
	}
	return items, nil
}

// Delete 删除用户的一条记忆，返回是否确有删除
func (s *Service) Delete(ctx context.Context, userID, memoryID string) (bool, error) {
	deleted, err := s.store.Delete(ctx, UserNamespace(userID), Source, memoryID)
	if err != nil {
		return false, fmt.Errorf("failed to delete memory: %w", err)
	}
	return deleted > 0, nil
}

// Clear 清空用户全部记忆，返回删除条数
func (s *Service) Clear(ctx context.Context, userID string) (int, error) {
	deleted, err := s.store.Delete(ctx, UserNamespace(userID), Source)
	if err != nil {
		return 0, fmt.Errorf("failed to clear memory: %w", err)
	}
	return deleted, nil
}
