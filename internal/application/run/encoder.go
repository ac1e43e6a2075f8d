package run

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"log/slog"

	"github.com/opengpts/backend/internal/infrastructure/log"
)

// 帧类型
const (
	FrameMetadata = "metadata"
	FrameData     = "data"
	FrameUsage    = "usage"
	FrameError    = "error"
	FrameEnd      = "end"
)

// Frame 传输帧，Data 为预序列化的 JSON（end 帧无负载）
type Frame struct {
	Event string
	Data  string
}

// redactedError 上游失败时写到线上的唯一内容
// 真实原因可能含敏感信息，只记录到服务端日志
var redactedError = mustMarshal(map[string]any{
	"status_code": 500,
	"message":     "Internal Server Error",
})

const (
	encoderStreaming = iota
	encoderEnding
	encoderFinished
)

// Encoder 将聚合器输出逐项编码为传输帧
// 无论成功失败，最后恰好发出一个 end 帧；上游失败只发出一个脱敏 error 帧
type Encoder struct {
	source ItemSource
	state  int
	logger *slog.Logger
}

// NewEncoder 创建编码器
func NewEncoder(source ItemSource) *Encoder {
	return &Encoder{
		source: source,
		logger: log.NewModuleLogger("run", "encoder"),
	}
}

// Next 返回下一帧，流结束后返回 io.EOF
func (e *Encoder) Next(ctx context.Context) (*Frame, error) {
	switch e.state {
	case encoderFinished:
		return nil, io.EOF
	case encoderEnding:
		e.state = encoderFinished
		return &Frame{Event: FrameEnd}, nil
	}

	item, err := e.source.Next(ctx)
	if errors.Is(err, io.EOF) {
		e.state = encoderFinished
		return &Frame{Event: FrameEnd}, nil
	}
	if err != nil {
		e.logger.Warn("error in run stream", "error", err)
		e.state = encoderEnding
		return &Frame{Event: FrameError, Data: redactedError}, nil
	}

	frame, err := encodeItem(item)
	if err != nil {
		e.logger.Warn("failed to encode stream item", "error", err)
		e.state = encoderEnding
		return &Frame{Event: FrameError, Data: redactedError}, nil
	}
	return frame, nil
}

// encodeItem 按输出项类型映射为帧
func encodeItem(item *Item) (*Frame, error) {
	switch {
	case item.RunID != "":
		data, err := json.Marshal(map[string]string{"run_id": item.RunID})
		if err != nil {
			return nil, err
		}
		return &Frame{Event: FrameMetadata, Data: string(data)}, nil
	case item.Usage != nil:
		data, err := json.Marshal(item.Usage)
		if err != nil {
			return nil, err
		}
		return &Frame{Event: FrameUsage, Data: string(data)}, nil
	default:
		data, err := json.Marshal(item.Messages)
		if err != nil {
			return nil, err
		}
		return &Frame{Event: FrameData, Data: string(data)}, nil
	}
}

func mustMarshal(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
