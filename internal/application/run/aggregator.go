package run

import (
	"context"
	"encoding/json"
	"strings"

	domainRun "github.com/opengpts/backend/internal/domain/run"
)

// Item 聚合器的一条输出
// 恰好一个字段有值：运行标识（每次运行只发一次）、新增/变更消息列表或用量记录
type Item struct {
	RunID    string
	Messages []*domainRun.Message
	Usage    *domainRun.UsageStats
}

// ItemSource 聚合输出序列，结束时 Next 返回 io.EOF
type ItemSource interface {
	Next(ctx context.Context) (*Item, error)
}

// Aggregator 流式事件聚合器
// 消费一次运行的原始事件序列，维护按消息 id 的累积状态，产出最小增量
// 累积映射只由当前这一条消费逻辑变更，单次运行内不存在并发写
type Aggregator struct {
	source    domainRun.EventSource
	tokenizer domainRun.Tokenizer

	runIDEmitted bool
	messages     map[string]*domainRun.Message
	order        []string // 按首次出现顺序记录消息 id，估算用量时需要
}

// NewAggregator 创建聚合器
func NewAggregator(source domainRun.EventSource, tokenizer domainRun.Tokenizer) *Aggregator {
	return &Aggregator{
		source:    source,
		tokenizer: tokenizer,
		messages:  make(map[string]*domainRun.Message),
	}
}

// Next 返回下一个输出项
// 不产生输出的事件（重复的 run-start、无变化的快照）被跳过并继续读取
// 事件源的失败原样透传，由包装它的编码器负责转换
func (a *Aggregator) Next(ctx context.Context) (*Item, error) {
	for {
		event, err := a.source.Next(ctx)
		if err != nil {
			return nil, err
		}

		switch event.Kind {
		case domainRun.EventRunStart:
			if a.runIDEmitted {
				continue
			}
			a.runIDEmitted = true
			return &Item{RunID: event.RunID}, nil

		case domainRun.EventStateSnapshot:
			changed := a.applySnapshot(event.Messages)
			if len(changed) == 0 {
				continue
			}
			return &Item{Messages: changed}, nil

		case domainRun.EventTokenDelta:
			updated := a.applyDelta(event.Delta)
			if updated == nil {
				continue
			}
			return &Item{Messages: []*domainRun.Message{updated}}, nil

		case domainRun.EventCompletion:
			usage := event.Usage
			if usage == nil {
				usage = a.estimateUsage()
			}
			if usage == nil {
				continue
			}
			return &Item{Usage: usage}, nil

		default:
			continue
		}
	}
}

// Messages 返回按首次出现顺序累积的全部消息
// 流消费完毕后调用，用于写入记忆库
func (a *Aggregator) Messages() []*domainRun.Message {
	result := make([]*domainRun.Message, 0, len(a.order))
	for _, id := range a.order {
		result = append(result, a.messages[id])
	}
	return result
}

// applySnapshot 对比快照与已存副本，存入并收集新增/变更的消息
// 逐条做全值比较，完全相同的重复快照不产生输出
func (a *Aggregator) applySnapshot(snapshot []*domainRun.Message) []*domainRun.Message {
	var changed []*domainRun.Message
	for _, msg := range snapshot {
		stored, ok := a.messages[msg.ID]
		if ok && stored.Equal(msg) {
			continue
		}
		if !ok {
			a.order = append(a.order, msg.ID)
		}
		a.messages[msg.ID] = msg
		changed = append(changed, msg)
	}
	return changed
}

// applyDelta 合并增量：未见过的 id 作为首个片段插入，否则合并到已存值
func (a *Aggregator) applyDelta(delta *domainRun.Message) *domainRun.Message {
	if delta == nil || delta.ID == "" {
		return nil
	}
	stored, ok := a.messages[delta.ID]
	if !ok {
		a.messages[delta.ID] = delta
		a.order = append(a.order, delta.ID)
		return delta
	}
	stored.Merge(delta)
	return stored
}

// estimateUsage 本地估算用量
// 最近一条助手消息作为 completion，其余全部消息拼接作为 prompt
// 没有助手消息时不产生估算
func (a *Aggregator) estimateUsage() *domainRun.UsageStats {
	lastAssistant := ""
	for i := len(a.order) - 1; i >= 0; i-- {
		if a.messages[a.order[i]].Role == domainRun.RoleAssistant {
			lastAssistant = a.order[i]
			break
		}
	}
	if lastAssistant == "" {
		return nil
	}

	var promptParts []string
	for _, id := range a.order {
		if id == lastAssistant {
			continue
		}
		promptParts = append(promptParts, messageText(a.messages[id]))
	}

	promptTokens := a.tokenizer.CountTokens(strings.Join(promptParts, "\n"))
	completionTokens := a.tokenizer.CountTokens(messageText(a.messages[lastAssistant]))

	return &domainRun.UsageStats{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      promptTokens + completionTokens,
		Estimated:        true,
	}
}

// messageText 取消息的文本表示，结构化内容序列化为 JSON
func messageText(m *domainRun.Message) string {
	if m.Text != "" || len(m.Data) == 0 {
		return m.Text
	}
	data, err := json.Marshal(m.Data)
	if err != nil {
		return ""
	}
	return string(data)
}
