package run

import "testing"

func TestMergeConcatenatesText(t *testing.T) {
	m := &Message{ID: "m1", Role: RoleAssistant, Text: "Hel"}
	m.Merge(&Message{ID: "m1", Text: "lo"})

	if m.Text != "Hello" {
		t.Errorf("expected Hello, got %q", m.Text)
	}
	if m.Role != RoleAssistant {
		t.Errorf("role must survive merge, got %s", m.Role)
	}
}

func TestMergeStructuredData(t *testing.T) {
	m := &Message{ID: "m1", Data: map[string]any{
		"arguments": `{"query": "wea`,
		"nested":    map[string]any{"part": "ab"},
		"count":     1,
	}}
	m.Merge(&Message{ID: "m1", Data: map[string]any{
		"arguments": `ther"}`,
		"nested":    map[string]any{"part": "cd"},
		"count":     2,
		"fresh":     "new",
	}})

	if m.Data["arguments"] != `{"query": "weather"}` {
		t.Errorf("string fields must concatenate, got %v", m.Data["arguments"])
	}
	nested := m.Data["nested"].(map[string]any)
	if nested["part"] != "abcd" {
		t.Errorf("nested maps must merge recursively, got %v", nested["part"])
	}
	if m.Data["count"] != 2 {
		t.Errorf("mismatched types take the delta value, got %v", m.Data["count"])
	}
	if m.Data["fresh"] != "new" {
		t.Errorf("new keys must be added, got %v", m.Data["fresh"])
	}
}

func TestMergeNilDelta(t *testing.T) {
	m := &Message{ID: "m1", Text: "hi"}
	m.Merge(nil)
	if m.Text != "hi" {
		t.Errorf("nil delta must be a no-op, got %q", m.Text)
	}
}

func TestEqual(t *testing.T) {
	a := &Message{ID: "m1", Role: RoleUser, Text: "hi", Data: map[string]any{"k": "v"}}
	b := &Message{ID: "m1", Role: RoleUser, Text: "hi", Data: map[string]any{"k": "v"}}
	if !a.Equal(b) {
		t.Error("identical messages must be equal")
	}

	c := &Message{ID: "m1", Role: RoleUser, Text: "hi", Data: map[string]any{"k": "w"}}
	if a.Equal(c) {
		t.Error("messages with different data must not be equal")
	}

	var nilMsg *Message
	if a.Equal(nilMsg) {
		t.Error("non-nil must not equal nil")
	}
}
