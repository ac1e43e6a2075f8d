package run

import (
	"context"
	"errors"
	"fmt"
	"io"

	"log/slog"

	domainRun "github.com/opengpts/backend/internal/domain/run"
	"github.com/opengpts/backend/internal/infrastructure/log"
)

// Service 运行用例编排
type Service struct {
	engine    domainRun.Engine
	tokenizer domainRun.Tokenizer
	logger    *slog.Logger
}

// NewService 创建运行服务
func NewService(engine domainRun.Engine, tokenizer domainRun.Tokenizer) *Service {
	return &Service{
		engine:    engine,
		tokenizer: tokenizer,
		logger:    log.NewModuleLogger("run", "service"),
	}
}

// StartStream 启动一次流式运行
// 返回聚合器（流结束后可读出累积消息）和编码器（逐帧写出）
func (s *Service) StartStream(ctx context.Context, input []*domainRun.Message) (*Aggregator, *Encoder, error) {
	source, err := s.engine.StreamEvents(ctx, input)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start run: %w", err)
	}
	aggregator := NewAggregator(source, s.tokenizer)
	return aggregator, NewEncoder(aggregator), nil
}

// Run 执行一次非流式运行，消费完整个事件序列后返回累积消息
func (s *Service) Run(ctx context.Context, input []*domainRun.Message) ([]*domainRun.Message, error) {
	source, err := s.engine.StreamEvents(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}
	aggregator := NewAggregator(source, s.tokenizer)
	for {
		_, err := aggregator.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("run failed: %w", err)
		}
	}
	return aggregator.Messages(), nil
}
