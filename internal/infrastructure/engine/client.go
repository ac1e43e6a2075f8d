package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	domainRun "github.com/opengpts/backend/internal/domain/run"
	"github.com/opengpts/backend/internal/infrastructure/config"
	"github.com/opengpts/backend/internal/infrastructure/log"
)

// Client 生成引擎客户端（OpenAI 兼容 Chat API，流式）
// 将上游 SSE 流转换为运行事件序列：run-start、逐 token 的
// token-delta，以及携带引擎上报用量的 completion
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient 创建引擎客户端
func NewClient(cfg *config.EngineConfig) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		httpClient: &http.Client{
			// 流式响应由调用方消费，这里不做整体超时
			Timeout: 0,
		},
		logger: log.NewModuleLogger("engine", "client"),
	}
}

// chatMessage Chat API 消息
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest Chat API 请求
type chatRequest struct {
	Model         string        `json:"model"`
	Messages      []chatMessage `json:"messages"`
	Stream        bool          `json:"stream"`
	StreamOptions struct {
		IncludeUsage bool `json:"include_usage"`
	} `json:"stream_options"`
}

// chatChunk 流式响应的一个分片
type chatChunk struct {
	ID      string `json:"id"`
	Choices []struct {
		Delta struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// StreamEvents 发起一次流式生成
func (c *Client) StreamEvents(ctx context.Context, input []*domainRun.Message) (domainRun.EventSource, error) {
	request := chatRequest{
		Model:    c.model,
		Messages: make([]chatMessage, 0, len(input)),
		Stream:   true,
	}
	request.StreamOptions.IncludeUsage = true
	for _, message := range input {
		request.Messages = append(request.Messages, chatMessage{
			Role:    string(message.Role),
			Content: message.Text,
		})
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, string(data))
	}

	runID := uuid.New().String()
	c.logger.Debug("Run started", "run_id", runID, "model", c.model, "started_at", time.Now())

	return &eventSource{
		body:      resp.Body,
		scanner:   bufio.NewScanner(resp.Body),
		runID:     runID,
		messageID: uuid.New().String(),
	}, nil
}

// eventSource 把上游 SSE 行流转换为运行事件
type eventSource struct {
	body      io.ReadCloser
	scanner   *bufio.Scanner
	runID     string
	messageID string

	started        bool
	usage          *domainRun.UsageStats
	streamDone     bool
	completionSent bool
	closed         bool
}

// Next 返回下一个运行事件，流结束时返回 io.EOF
func (s *eventSource) Next(ctx context.Context) (*domainRun.Event, error) {
	if !s.started {
		s.started = true
		return domainRun.NewRunStartEvent(s.runID), nil
	}

	for {
		if err := ctx.Err(); err != nil {
			s.close()
			return nil, err
		}
		if s.streamDone {
			if !s.completionSent {
				s.completionSent = true
				return domainRun.NewCompletionEvent(s.usage), nil
			}
			s.close()
			return nil, io.EOF
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				s.close()
				return nil, fmt.Errorf("chat stream read failed: %w", err)
			}
			// 上游未发 [DONE] 就关闭了连接，按正常结束处理
			s.streamDone = true
			continue
		}

		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			s.streamDone = true
			continue
		}

		var chunk chatChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			s.close()
			return nil, fmt.Errorf("failed to decode chat chunk: %w", err)
		}

		if chunk.Usage != nil {
			s.usage = &domainRun.UsageStats{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		content := chunk.Choices[0].Delta.Content
		if content == "" {
			continue
		}

		return domainRun.NewTokenDeltaEvent(&domainRun.Message{
			ID:   s.messageID,
			Role: domainRun.RoleAssistant,
			Text: content,
		}), nil
	}
}

func (s *eventSource) close() {
	if !s.closed {
		s.closed = true
		s.body.Close()
	}
}
