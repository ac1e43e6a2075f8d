package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/opengpts/backend/internal/infrastructure/config"
	"github.com/opengpts/backend/internal/infrastructure/log"
)

// OpenAI embeddings API 单次批量上限
const maxBatchSize = 2048

const maxRetries = 3

// Client Embedding API 客户端（OpenAI 兼容）
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient 创建 Embedding 客户端
func NewClient(cfg *config.EmbeddingConfig) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: log.NewModuleLogger("embedding", "client"),
	}
}

// embeddingRequest Embedding 请求
type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingResponse Embedding 响应
type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// EmbedTexts 批量向量化文本，超出 API 批量上限时自动分批
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}

	if len(texts) <= maxBatchSize {
		return c.embedBatch(ctx, texts)
	}

	c.logger.Info("Splitting texts into batches",
		"total_texts", len(texts),
		"batch_limit", maxBatchSize,
	)

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch starting at %d: %w", start, err)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// embedBatch 处理单个批次，失败时按递增延迟重试
func (c *Client) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	url := c.baseURL + "/embeddings"

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Warn("Embedding request failed, retrying",
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			data, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
			c.logger.Warn("Embedding request failed, retrying",
				"attempt", attempt+1,
				"status_code", resp.StatusCode,
			)
			continue
		}

		var parsed embeddingResponse
		err = json.NewDecoder(resp.Body).Decode(&parsed)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}

		vectors := make([][]float32, len(texts))
		for _, item := range parsed.Data {
			if item.Index < 0 || item.Index >= len(vectors) {
				return nil, fmt.Errorf("embedding index %d out of range", item.Index)
			}
			vectors[item.Index] = item.Embedding
		}
		return vectors, nil
	}

	return nil, fmt.Errorf("embedding request failed after %d attempts: %w", maxRetries, lastErr)
}

// GetVectorDimension 通过一次探测请求获取向量维度
func (c *Client) GetVectorDimension(ctx context.Context) (int, error) {
	vectors, err := c.EmbedTexts(ctx, []string{"dimension probe"})
	if err != nil {
		return 0, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return 0, fmt.Errorf("invalid embedding response")
	}
	return len(vectors[0]), nil
}
