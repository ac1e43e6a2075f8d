package run

import "reflect"

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// Message 一次运行中的单条消息
// 文本内容放在 Text，结构化内容（工具调用参数等）放在 Data
// 消息只通过 Merge 变更，聚合器在单次运行内独占持有
type Message struct {
	ID   string         `json:"id"`
	Role Role           `json:"role"`
	Text string         `json:"content"`
	Data map[string]any `json:"data,omitempty"`
}

// Merge 将增量合并到当前消息上
// 文本增量拼接，结构化增量按字段递归合并（同为字符串拼接，同为映射递归，其余以增量为准）
func (m *Message) Merge(delta *Message) {
	if delta == nil {
		return
	}
	m.Text += delta.Text
	if delta.Role != "" {
		m.Role = delta.Role
	}
	if len(delta.Data) > 0 {
		m.Data = mergeMaps(m.Data, delta.Data)
	}
}

// Equal 全值相等比较
func (m *Message) Equal(other *Message) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.ID != other.ID || m.Role != other.Role || m.Text != other.Text {
		return false
	}
	return reflect.DeepEqual(m.Data, other.Data)
}

// mergeMaps 递归合并结构化增量
func mergeMaps(base, delta map[string]any) map[string]any {
	if base == nil {
		base = make(map[string]any, len(delta))
	}
	for key, dv := range delta {
		bv, ok := base[key]
		if !ok {
			base[key] = dv
			continue
		}
		switch dval := dv.(type) {
		case string:
			if bval, ok := bv.(string); ok {
				base[key] = bval + dval
				continue
			}
			base[key] = dv
		case map[string]any:
			if bval, ok := bv.(map[string]any); ok {
				base[key] = mergeMaps(bval, dval)
				continue
			}
			base[key] = dv
		default:
			base[key] = dv
		}
	}
	return base
}
