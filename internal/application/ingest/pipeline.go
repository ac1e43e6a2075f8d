package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"log/slog"

	domainIngest "github.com/opengpts/backend/internal/domain/ingest"
	"github.com/opengpts/backend/internal/infrastructure/config"
	"github.com/opengpts/backend/internal/infrastructure/log"
)

// 按请求摄取时的默认批量阈值
const (
	DefaultBatchSize     = 5
	DefaultMaxBatchChars = 50_000
)

// 批量回填等大批量调用方使用的阈值
const (
	BulkBatchSize     = 100
	BulkMaxBatchChars = 50_000
)

// Pipeline 批量摄取流水线
// 解析、切分、清洗、打命名空间标签，按双阈值批量写入向量库
// 取消是协作式的：三个检查点，命中即携带已入库 id 提前返回
type Pipeline struct {
	parser        domainIngest.BlobParser
	splitter      domainIngest.TextSplitter
	store         domainIngest.VectorStore
	batchSize     int
	maxBatchChars int
	logger        *slog.Logger
}

// NewPipeline 创建摄取流水线
func NewPipeline(
	parser domainIngest.BlobParser,
	splitter domainIngest.TextSplitter,
	store domainIngest.VectorStore,
	batchSize int,
	maxBatchChars int,
) *Pipeline {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if maxBatchChars <= 0 {
		maxBatchChars = DefaultMaxBatchChars
	}
	return &Pipeline{
		parser:        parser,
		splitter:      splitter,
		store:         store,
		batchSize:     batchSize,
		maxBatchChars: maxBatchChars,
		logger:        log.NewModuleLogger("ingest", "pipeline"),
	}
}

// ProvidePipeline 按配置创建按请求摄取使用的流水线
func ProvidePipeline(
	parser domainIngest.BlobParser,
	splitter domainIngest.TextSplitter,
	store domainIngest.VectorStore,
	cfg *config.IngestConfig,
) *Pipeline {
	return NewPipeline(parser, splitter, store, cfg.BatchSize, cfg.MaxBatchChars)
}

// Ingest 将一个 Blob 摄取入库，返回存储分配的片段 id
// namespace 必须在调用前完成校验；取消时返回已入库的部分 id，不视为错误
func (p *Pipeline) Ingest(
	ctx context.Context,
	blob *domainIngest.Blob,
	namespace domainIngest.Namespace,
	onProgress func(bytes int),
	shouldCancel func() bool,
) ([]string, error) {
	var ids []string
	buffer := make([]*domainIngest.Chunk, 0, p.batchSize)
	bufferChars := 0

	flush := func() error {
		assigned, err := p.store.AddChunks(ctx, buffer)
		if err != nil {
			return fmt.Errorf("failed to add chunks: %w", err)
		}
		ids = append(ids, assigned...)
		buffer = make([]*domainIngest.Chunk, 0, p.batchSize)
		bufferChars = 0
		return nil
	}

	source := p.parser.LazyParse(blob)
	for {
		document, err := source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ids, fmt.Errorf("failed to parse blob %q: %w", blob.Name, err)
		}

		for _, text := range p.splitter.SplitText(document.Text) {
			// 检查点一：处理下一个片段之前
			if shouldCancel != nil && shouldCancel() {
				return ids, nil
			}

			chunk := &domainIngest.Chunk{
				Text:      sanitizeText(text),
				Namespace: namespace,
				Source:    blob.Name,
				Metadata:  document.Metadata,
			}
			buffer = append(buffer, chunk)
			bufferChars += utf8.RuneCountInString(chunk.Text)

			if onProgress != nil {
				if n := len(chunk.Text); n > 0 {
					onProgress(n)
				}
			}

			if len(buffer) >= p.batchSize || bufferChars >= p.maxBatchChars {
				// 检查点二：阈值触发的批量写入之前
				if shouldCancel != nil && shouldCancel() {
					return ids, nil
				}
				if err := flush(); err != nil {
					return ids, err
				}
			}
		}
	}

	if len(buffer) > 0 {
		// 检查点三：收尾写入之前
		if shouldCancel != nil && shouldCancel() {
			return ids, nil
		}
		if err := flush(); err != nil {
			return ids, err
		}
	}

	return ids, nil
}

// sanitizeText 将内嵌 NUL 字节替换为字面 "x"
// 某些存储后端拒绝含 NUL 的字符串
func sanitizeText(s string) string {
	return strings.ReplaceAll(s, "\x00", "x")
}
