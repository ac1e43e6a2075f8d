package run

import "context"

// EventSource 单次运行的事件序列
// 按到达顺序逐个消费，序列结束时 Next 返回 io.EOF
type EventSource interface {
	Next(ctx context.Context) (*Event, error)
}

// Engine 生成引擎
// 接收输入消息，返回该次运行的事件序列
type Engine interface {
	StreamEvents(ctx context.Context, input []*Message) (EventSource, error)
}

// Tokenizer 近似分词器，用于本地估算 token 数
type Tokenizer interface {
	CountTokens(text string) int
}
