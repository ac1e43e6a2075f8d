package ingest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	domainIngest "github.com/opengpts/backend/internal/domain/ingest"
)

// fakeParser 把整个 Blob 当作一篇文档
type fakeParser struct{}

type fakeDocSource struct {
	blob *domainIngest.Blob
	done bool
}

func (fakeParser) LazyParse(blob *domainIngest.Blob) domainIngest.DocumentSource {
	return &fakeDocSource{blob: blob}
}

func (s *fakeDocSource) Next() (*domainIngest.Document, error) {
	if s.done {
		return nil, io.EOF
	}
	s.done = true
	return &domainIngest.Document{Text: string(s.blob.Data)}, nil
}

// failingParser 解析即失败
type failingParser struct{}

type failingDocSource struct{}

func (failingParser) LazyParse(blob *domainIngest.Blob) domainIngest.DocumentSource {
	return failingDocSource{}
}

func (failingDocSource) Next() (*domainIngest.Document, error) {
	return nil, fmt.Errorf("unsupported mime type: %s", "image/png")
}

// lineSplitter 按行切分
type lineSplitter struct{}

func (lineSplitter) SplitText(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// recordingStore 记录每次写入的批次
type recordingStore struct {
	batches [][]*domainIngest.Chunk
	nextID  int
	failOn  int // 第 N 次写入失败（从 1 计），0 表示不失败
}

func (s *recordingStore) AddChunks(ctx context.Context, chunks []*domainIngest.Chunk) ([]string, error) {
	if s.failOn > 0 && len(s.batches)+1 == s.failOn {
		return nil, fmt.Errorf("store unavailable")
	}
	s.batches = append(s.batches, chunks)
	ids := make([]string, len(chunks))
	for i := range chunks {
		s.nextID++
		ids[i] = fmt.Sprintf("id-%d", s.nextID)
	}
	return ids, nil
}

func (s *recordingStore) Search(ctx context.Context, query string, namespace domainIngest.Namespace, source string, limit int) ([]*domainIngest.StoredChunk, error) {
	return nil, nil
}

func (s *recordingStore) List(ctx context.Context, namespace domainIngest.Namespace, source string, limit, offset int) ([]*domainIngest.StoredChunk, error) {
	return nil, nil
}

func (s *recordingStore) Delete(ctx context.Context, namespace domainIngest.Namespace, source string, ids ...string) (int, error) {
	return 0, nil
}

func newTestPipeline(store *recordingStore, batchSize, maxBatchChars int) *Pipeline {
	return NewPipeline(fakeParser{}, lineSplitter{}, store, batchSize, maxBatchChars)
}

func testBlob(text string) *domainIngest.Blob {
	return &domainIngest.Blob{Data: []byte(text), Name: "notes.txt", MimeType: "text/plain"}
}

func TestPipelineBatchByCount(t *testing.T) {
	store := &recordingStore{}
	pipeline := newTestPipeline(store, 2, 1_000_000)

	ids, err := pipeline.Ingest(context.Background(), testBlob("a\nb\nc"), "thread:t1", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}
	if len(store.batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(store.batches))
	}
	if len(store.batches[0]) != 2 || len(store.batches[1]) != 1 {
		t.Errorf("expected batch sizes [2 1], got [%d %d]", len(store.batches[0]), len(store.batches[1]))
	}
	// id 顺序与片段顺序一致
	if ids[0] != "id-1" || ids[2] != "id-3" {
		t.Errorf("ids out of order: %v", ids)
	}
}

func TestPipelineBatchByChars(t *testing.T) {
	store := &recordingStore{}
	pipeline := newTestPipeline(store, 100, 4)

	_, err := pipeline.Ingest(context.Background(), testBlob("aa\nbb\ncc"), "thread:t1", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 每 2 个片段达到 4 字符阈值
	if len(store.batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(store.batches))
	}
}

func TestPipelineChunksCarryNamespaceAndSource(t *testing.T) {
	store := &recordingStore{}
	pipeline := newTestPipeline(store, 10, 1_000_000)

	_, err := pipeline.Ingest(context.Background(), testBlob("hello"), "assistant:a1", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	chunk := store.batches[0][0]
	if chunk.Namespace != "assistant:a1" {
		t.Errorf("expected namespace assistant:a1, got %s", chunk.Namespace)
	}
	if chunk.Source != "notes.txt" {
		t.Errorf("expected source notes.txt, got %s", chunk.Source)
	}
}

func TestPipelineSanitizesNULBytes(t *testing.T) {
	store := &recordingStore{}
	pipeline := newTestPipeline(store, 10, 1_000_000)

	_, err := pipeline.Ingest(context.Background(), testBlob("he\x00llo"), "thread:t1", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.batches[0][0].Text; got != "hexllo" {
		t.Errorf("expected NUL replaced with x, got %q", got)
	}
}

func TestPipelineProgressReports(t *testing.T) {
	store := &recordingStore{}
	pipeline := newTestPipeline(store, 10, 1_000_000)

	var reports []int
	onProgress := func(bytes int) { reports = append(reports, bytes) }

	_, err := pipeline.Ingest(context.Background(), testBlob("ab\ncdef"), "thread:t1", onProgress, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 2 || reports[0] != 2 || reports[1] != 4 {
		t.Errorf("expected progress [2 4], got %v", reports)
	}
}

func TestPipelineCancelBeforeNextChunk(t *testing.T) {
	store := &recordingStore{}
	pipeline := newTestPipeline(store, 1, 1_000_000)

	calls := 0
	shouldCancel := func() bool {
		calls++
		// 第一个片段及其落盘放行，之后取消
		return calls > 2
	}

	ids, err := pipeline.Ingest(context.Background(), testBlob("a\nb\nc"), "thread:t1", nil, shouldCancel)
	if err != nil {
		t.Fatalf("cancel must not be an error: %v", err)
	}
	// 第一个片段已经写入（batchSize=1 立即落盘），其后取消
	if len(ids) != 1 {
		t.Fatalf("expected 1 partial id, got %d", len(ids))
	}
}

func TestPipelineCancelBeforeFinalFlush(t *testing.T) {
	store := &recordingStore{}
	pipeline := newTestPipeline(store, 100, 1_000_000)

	calls := 0
	shouldCancel := func() bool {
		calls++
		// 放过所有片段检查点，只在收尾写入前取消
		return calls > 3
	}

	ids, err := pipeline.Ingest(context.Background(), testBlob("a\nb\nc"), "thread:t1", nil, shouldCancel)
	if err != nil {
		t.Fatalf("cancel must not be an error: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no ids when final flush canceled, got %v", ids)
	}
	if len(store.batches) != 0 {
		t.Errorf("expected no writes, got %d batches", len(store.batches))
	}
}

func TestPipelineParseErrorReturnsPartialIDs(t *testing.T) {
	store := &recordingStore{}
	pipeline := NewPipeline(failingParser{}, lineSplitter{}, store, 10, 1_000_000)

	ids, err := pipeline.Ingest(context.Background(), testBlob("irrelevant"), "thread:t1", nil, nil)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if len(ids) != 0 {
		t.Errorf("expected no ids, got %v", ids)
	}
}

func TestPipelineStoreFailure(t *testing.T) {
	store := &recordingStore{failOn: 1}
	pipeline := newTestPipeline(store, 1, 1_000_000)

	_, err := pipeline.Ingest(context.Background(), testBlob("a"), "thread:t1", nil, nil)
	if err == nil {
		t.Fatal("expected store error to propagate")
	}
}
