package run

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	domainRun "github.com/opengpts/backend/internal/domain/run"
)

// fakeEventSource 预置事件序列，读完返回 io.EOF
type fakeEventSource struct {
	events []*domainRun.Event
	err    error
	pos    int
}

func (f *fakeEventSource) Next(ctx context.Context) (*domainRun.Event, error) {
	if f.pos >= len(f.events) {
		if f.err != nil {
			return nil, f.err
		}
		return nil, io.EOF
	}
	event := f.events[f.pos]
	f.pos++
	return event, nil
}

// fakeTokenizer 按空白分词计数
type fakeTokenizer struct{}

func (fakeTokenizer) CountTokens(text string) int {
	return len(strings.Fields(text))
}

func drain(t *testing.T, aggregator *Aggregator) []*Item {
	t.Helper()
	var items []*Item
	for {
		item, err := aggregator.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return items
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		items = append(items, item)
	}
}

func TestAggregatorRunStartIdempotent(t *testing.T) {
	source := &fakeEventSource{events: []*domainRun.Event{
		domainRun.NewRunStartEvent("run-1"),
		domainRun.NewRunStartEvent("run-1"),
		domainRun.NewRunStartEvent("run-2"),
	}}
	items := drain(t, NewAggregator(source, fakeTokenizer{}))

	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].RunID != "run-1" {
		t.Errorf("expected run-1, got %q", items[0].RunID)
	}
}

func TestAggregatorSnapshotDedup(t *testing.T) {
	msg := &domainRun.Message{ID: "m1", Role: domainRun.RoleAssistant, Text: "hello"}
	same := &domainRun.Message{ID: "m1", Role: domainRun.RoleAssistant, Text: "hello"}
	changed := &domainRun.Message{ID: "m1", Role: domainRun.RoleAssistant, Text: "hello world"}

	source := &fakeEventSource{events: []*domainRun.Event{
		domainRun.NewStateSnapshotEvent([]*domainRun.Message{msg}),
		domainRun.NewStateSnapshotEvent([]*domainRun.Message{same}),
		domainRun.NewStateSnapshotEvent([]*domainRun.Message{changed}),
	}}
	items := drain(t, NewAggregator(source, fakeTokenizer{}))

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Messages[0].Text != "hello" {
		t.Errorf("first emission: got %q", items[0].Messages[0].Text)
	}
	if items[1].Messages[0].Text != "hello world" {
		t.Errorf("second emission: got %q", items[1].Messages[0].Text)
	}
}

func TestAggregatorDeltaMerge(t *testing.T) {
	source := &fakeEventSource{events: []*domainRun.Event{
		domainRun.NewTokenDeltaEvent(&domainRun.Message{ID: "m1", Role: domainRun.RoleAssistant, Text: "Hel"}),
		domainRun.NewTokenDeltaEvent(&domainRun.Message{ID: "m1", Text: "lo"}),
	}}
	items := drain(t, NewAggregator(source, fakeTokenizer{}))

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	for i, item := range items {
		if len(item.Messages) != 1 {
			t.Fatalf("item %d: expected singleton message list, got %d", i, len(item.Messages))
		}
	}
	if items[1].Messages[0].Text != "Hello" {
		t.Errorf("expected merged text Hello, got %q", items[1].Messages[0].Text)
	}
}

func TestAggregatorCompletionUsagePassthrough(t *testing.T) {
	usage := &domainRun.UsageStats{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	source := &fakeEventSource{events: []*domainRun.Event{
		domainRun.NewCompletionEvent(usage),
	}}
	items := drain(t, NewAggregator(source, fakeTokenizer{}))

	if len(items) != 1 || items[0].Usage == nil {
		t.Fatalf("expected one usage item, got %+v", items)
	}
	if items[0].Usage.Estimated {
		t.Error("engine-reported usage must not be marked estimated")
	}
	if items[0].Usage.TotalTokens != 15 {
		t.Errorf("expected total 15, got %d", items[0].Usage.TotalTokens)
	}
}

func TestAggregatorUsageEstimation(t *testing.T) {
	source := &fakeEventSource{events: []*domainRun.Event{
		domainRun.NewStateSnapshotEvent([]*domainRun.Message{
			{ID: "u1", Role: domainRun.RoleUser, Text: "one two three"},
		}),
		domainRun.NewTokenDeltaEvent(&domainRun.Message{ID: "a1", Role: domainRun.RoleAssistant, Text: "four five"}),
		domainRun.NewCompletionEvent(nil),
	}}
	items := drain(t, NewAggregator(source, fakeTokenizer{}))

	last := items[len(items)-1]
	if last.Usage == nil {
		t.Fatal("expected estimated usage item")
	}
	if !last.Usage.Estimated {
		t.Error("estimated usage must carry the estimated flag")
	}
	if last.Usage.PromptTokens != 3 {
		t.Errorf("expected prompt tokens 3, got %d", last.Usage.PromptTokens)
	}
	if last.Usage.CompletionTokens != 2 {
		t.Errorf("expected completion tokens 2, got %d", last.Usage.CompletionTokens)
	}
	if last.Usage.TotalTokens != 5 {
		t.Errorf("expected total tokens 5, got %d", last.Usage.TotalTokens)
	}
}

func TestAggregatorNoUsageWithoutAssistant(t *testing.T) {
	source := &fakeEventSource{events: []*domainRun.Event{
		domainRun.NewStateSnapshotEvent([]*domainRun.Message{
			{ID: "u1", Role: domainRun.RoleUser, Text: "hello"},
		}),
		domainRun.NewCompletionEvent(nil),
	}}
	items := drain(t, NewAggregator(source, fakeTokenizer{}))

	for _, item := range items {
		if item.Usage != nil {
			t.Fatal("no usage item expected when no assistant message exists")
		}
	}
}

func TestAggregatorPropagatesSourceError(t *testing.T) {
	wantErr := errors.New("engine exploded")
	source := &fakeEventSource{
		events: []*domainRun.Event{domainRun.NewRunStartEvent("run-1")},
		err:    wantErr,
	}
	aggregator := NewAggregator(source, fakeTokenizer{})

	if _, err := aggregator.Next(context.Background()); err != nil {
		t.Fatalf("first item should succeed: %v", err)
	}
	_, err := aggregator.Next(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected source error passthrough, got %v", err)
	}
}

func TestAggregatorMessagesOrder(t *testing.T) {
	source := &fakeEventSource{events: []*domainRun.Event{
		domainRun.NewTokenDeltaEvent(&domainRun.Message{ID: "m1", Role: domainRun.RoleUser, Text: "a"}),
		domainRun.NewTokenDeltaEvent(&domainRun.Message{ID: "m2", Role: domainRun.RoleAssistant, Text: "b"}),
		domainRun.NewTokenDeltaEvent(&domainRun.Message{ID: "m1", Text: "c"}),
	}}
	aggregator := NewAggregator(source, fakeTokenizer{})
	drain(t, aggregator)

	messages := aggregator.Messages()
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].ID != "m1" || messages[1].ID != "m2" {
		t.Errorf("expected insertion order m1,m2; got %s,%s", messages[0].ID, messages[1].ID)
	}
	if messages[0].Text != "ac" {
		t.Errorf("expected merged text ac, got %q", messages[0].Text)
	}
}
