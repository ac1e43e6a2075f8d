package ingest

import "context"

// DocumentSource 惰性文档序列，序列结束时 Next 返回 io.EOF
type DocumentSource interface {
	Next() (*Document, error)
}

// BlobParser 按媒体类型解析 Blob，产出惰性文档序列
type BlobParser interface {
	LazyParse(blob *Blob) DocumentSource
}

// TextSplitter 按配置的窗口策略将文档文本切分为片段
type TextSplitter interface {
	SplitText(text string) []string
}

// StoredChunk 已入库的片段
type StoredChunk struct {
	ID       string
	Text     string
	Score    float32
	Metadata map[string]string
}

// VectorStore 向量库
// 写入返回存储分配的 id；检索、列举、删除均支持命名空间过滤
type VectorStore interface {
	AddChunks(ctx context.Context, chunks []*Chunk) ([]string, error)
	Search(ctx context.Context, query string, namespace Namespace, source string, limit int) ([]*StoredChunk, error)
	List(ctx context.Context, namespace Namespace, source string, limit, offset int) ([]*StoredChunk, error)
	Delete(ctx context.Context, namespace Namespace, source string, ids ...string) (int, error)
}
