package run

// EventKind 运行事件类型
type EventKind string

const (
	EventRunStart      EventKind = "run-start"
	EventStateSnapshot EventKind = "state-snapshot"
	EventTokenDelta    EventKind = "token-delta"
	EventCompletion    EventKind = "completion"
)

// Event 生成引擎产生的运行事件
// 带标签的变体：消费方只按 Kind 分发，不做属性探测
type Event struct {
	Kind EventKind

	// RunID 仅 run-start 事件携带
	RunID string

	// Messages 仅 state-snapshot 事件携带：当前完整消息列表
	Messages []*Message

	// Delta 仅 token-delta 事件携带：消息 id + 增量内容
	Delta *Message

	// Usage 仅 completion 事件携带：引擎上报的用量，可为空
	Usage *UsageStats
}

// NewRunStartEvent 创建运行开始事件
func NewRunStartEvent(runID string) *Event {
	return &Event{Kind: EventRunStart, RunID: runID}
}

// NewStateSnapshotEvent 创建状态快照事件
func NewStateSnapshotEvent(messages []*Message) *Event {
	return &Event{Kind: EventStateSnapshot, Messages: messages}
}

// NewTokenDeltaEvent 创建增量事件
func NewTokenDeltaEvent(delta *Message) *Event {
	return &Event{Kind: EventTokenDelta, Delta: delta}
}

// NewCompletionEvent 创建完成事件
func NewCompletionEvent(usage *UsageStats) *Event {
	return &Event{Kind: EventCompletion, Usage: usage}
}
