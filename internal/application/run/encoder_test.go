package run

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	domainRun "github.com/opengpts/backend/internal/domain/run"
)

// fakeItemSource 预置输出项序列
type fakeItemSource struct {
	items []*Item
	err   error
	pos   int
}

func (f *fakeItemSource) Next(ctx context.Context) (*Item, error) {
	if f.pos >= len(f.items) {
		if f.err != nil {
			return nil, f.err
		}
		return nil, io.EOF
	}
	item := f.items[f.pos]
	f.pos++
	return item, nil
}

func collectFrames(t *testing.T, encoder *Encoder) []*Frame {
	t.Helper()
	var frames []*Frame
	for {
		frame, err := encoder.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return frames
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		frames = append(frames, frame)
	}
}

func TestEncoderFrameMapping(t *testing.T) {
	source := &fakeItemSource{items: []*Item{
		{RunID: "run-1"},
		{Messages: []*domainRun.Message{{ID: "m1", Role: domainRun.RoleAssistant, Text: "hi"}}},
		{Usage: &domainRun.UsageStats{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}},
	}}
	frames := collectFrames(t, NewEncoder(source))

	if len(frames) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(frames))
	}
	if frames[0].Event != FrameMetadata {
		t.Errorf("frame 0: expected metadata, got %s", frames[0].Event)
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(frames[0].Data), &meta); err != nil || meta["run_id"] != "run-1" {
		t.Errorf("metadata payload wrong: %s", frames[0].Data)
	}
	if frames[1].Event != FrameData {
		t.Errorf("frame 1: expected data, got %s", frames[1].Event)
	}
	if frames[2].Event != FrameUsage {
		t.Errorf("frame 2: expected usage, got %s", frames[2].Event)
	}
	if frames[3].Event != FrameEnd || frames[3].Data != "" {
		t.Errorf("frame 3: expected bare end frame, got %+v", frames[3])
	}
}

func TestEncoderEmitsEndExactlyOnce(t *testing.T) {
	encoder := NewEncoder(&fakeItemSource{})
	frames := collectFrames(t, encoder)

	if len(frames) != 1 || frames[0].Event != FrameEnd {
		t.Fatalf("expected single end frame, got %+v", frames)
	}
	// EOF 之后继续拉取仍然是 EOF
	if _, err := encoder.Next(context.Background()); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after end, got %v", err)
	}
}

func TestEncoderRedactsUpstreamError(t *testing.T) {
	source := &fakeItemSource{
		items: []*Item{{RunID: "run-1"}},
		err:   errors.New("connection reset by qdrant at 10.0.0.5"),
	}
	frames := collectFrames(t, NewEncoder(source))

	if len(frames) != 3 {
		t.Fatalf("expected metadata+error+end, got %d frames", len(frames))
	}
	if frames[1].Event != FrameError {
		t.Fatalf("expected error frame, got %s", frames[1].Event)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(frames[1].Data), &payload); err != nil {
		t.Fatalf("error frame is not JSON: %v", err)
	}
	if payload["message"] != "Internal Server Error" {
		t.Errorf("expected redacted message, got %v", payload["message"])
	}
	if payload["status_code"] != float64(500) {
		t.Errorf("expected status_code 500, got %v", payload["status_code"])
	}
	// 真实原因绝不出现在线上
	if strings.Contains(frames[1].Data, "qdrant") {
		t.Error("error frame leaked upstream details")
	}

	if frames[2].Event != FrameEnd {
		t.Errorf("expected final end frame, got %s", frames[2].Event)
	}
}
