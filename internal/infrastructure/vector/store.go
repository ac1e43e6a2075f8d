package vector

import (
	"context"
	"fmt"
	"sort"

	"log/slog"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	domainIngest "github.com/opengpts/backend/internal/domain/ingest"
	"github.com/opengpts/backend/internal/infrastructure/embedding"
	"github.com/opengpts/backend/internal/infrastructure/log"
)

// Store Qdrant 向量库
// 片段文本向量化后连同命名空间等负载一起写入单一集合
// 检索、列举、删除均按命名空间（可叠加来源）过滤
type Store struct {
	manager         *Manager
	embeddingClient *embedding.Client
	logger          *slog.Logger
}

// NewStore 创建向量库
func NewStore(manager *Manager, embeddingClient *embedding.Client) *Store {
	return &Store{
		manager:         manager,
		embeddingClient: embeddingClient,
		logger:          log.NewModuleLogger("vector", "store"),
	}
}

// AddChunks 向量化并写入片段，返回存储分配的 id（与输入同序）
func (s *Store) AddChunks(ctx context.Context, chunks []*domainIngest.Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	client := s.manager.Client()
	if client == nil {
		return nil, fmt.Errorf("qdrant client not initialized")
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	vectors, err := s.embeddingClient.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}

	ids := make([]string, len(chunks))
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		ids[i] = uuid.New().String()

		payload := map[string]interface{}{
			"text":      chunk.Text,
			"namespace": chunk.Namespace.String(),
			"source":    chunk.Source,
		}
		for key, value := range chunk.Metadata {
			payload[key] = value
		}

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(ids[i]),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	_, err = client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.manager.Collection(),
		Points:         points,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert chunks: %w", err)
	}

	s.logger.Debug("Chunks upserted", "count", len(points))
	return ids, nil
}

// Search 按相似度检索命名空间内的片段
func (s *Store) Search(
	ctx context.Context,
	query string,
	namespace domainIngest.Namespace,
	source string,
	limit int,
) ([]*domainIngest.StoredChunk, error) {
	client := s.manager.Client()
	if client == nil {
		return nil, fmt.Errorf("qdrant client not initialized")
	}

	queryVectors, err := s.embeddingClient.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(queryVectors) == 0 || len(queryVectors[0]) == 0 {
		return nil, fmt.Errorf("invalid embedding result")
	}

	limitValue := uint64(limit)
	hits, err := client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.manager.Collection(),
		Query:          qdrant.NewQuery(queryVectors[0]...),
		Limit:          &limitValue,
		Filter:         buildFilter(namespace, source),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query qdrant: %w", err)
	}

	results := make([]*domainIngest.StoredChunk, 0, len(hits))
	for _, hit := range hits {
		chunk := payloadToChunk(hit.GetId(), hit.GetPayload())
		if chunk != nil {
			chunk.Score = hit.GetScore()
			results = append(results, chunk)
		}
	}
	return results, nil
}

// List 列举命名空间内的片段，按写入时间倒序分页
func (s *Store) List(
	ctx context.Context,
	namespace domainIngest.Namespace,
	source string,
	limit, offset int,
) ([]*domainIngest.StoredChunk, error) {
	client := s.manager.Client()
	if client == nil {
		return nil, fmt.Errorf("qdrant client not initialized")
	}

	fetch := uint32(limit + offset)
	points, err := client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: s.manager.Collection(),
		Filter:         buildFilter(namespace, source),
		Limit:          &fetch,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scroll qdrant: %w", err)
	}

	chunks := make([]*domainIngest.StoredChunk, 0, len(points))
	for _, point := range points {
		chunk := payloadToChunk(point.GetId(), point.GetPayload())
		if chunk != nil {
			chunks = append(chunks, chunk)
		}
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Metadata["created_at"] > chunks[j].Metadata["created_at"]
	})

	if offset >= len(chunks) {
		return nil, nil
	}
	chunks = chunks[offset:]
	if limit > 0 && len(chunks) > limit {
		chunks = chunks[:limit]
	}
	return chunks, nil
}

// Delete 删除片段
// 给定 id 时只删除命名空间内确实存在的点并返回命中数
// 未给定 id 时按过滤条件整体删除，返回删除前的计数
func (s *Store) Delete(
	ctx context.Context,
	namespace domainIngest.Namespace,
	source string,
	ids ...string,
) (int, error) {
	client := s.manager.Client()
	if client == nil {
		return 0, fmt.Errorf("qdrant client not initialized")
	}
	filter := buildFilter(namespace, source)

	if len(ids) == 0 {
		count, err := client.Count(ctx, &qdrant.CountPoints{
			CollectionName: s.manager.Collection(),
			Filter:         filter,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to count points: %w", err)
		}
		_, err = client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: s.manager.Collection(),
			Points:         qdrant.NewPointsSelectorFilter(filter),
		})
		if err != nil {
			return 0, fmt.Errorf("failed to delete points: %w", err)
		}
		return int(count), nil
	}

	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewID(id)
	}

	// 先校验命名空间归属，避免跨命名空间误删
	existing, err := client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.manager.Collection(),
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get points: %w", err)
	}

	var matched []*qdrant.PointId
	for _, point := range existing {
		payload := point.GetPayload()
		if extractString(payload["namespace"]) != namespace.String() {
			continue
		}
		if source != "" && extractString(payload["source"]) != source {
			continue
		}
		matched = append(matched, point.GetId())
	}
	if len(matched) == 0 {
		return 0, nil
	}

	_, err = client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.manager.Collection(),
		Points:         qdrant.NewPointsSelector(matched...),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete points: %w", err)
	}
	return len(matched), nil
}

// buildFilter 构建命名空间（可叠加来源）过滤条件
func buildFilter(namespace domainIngest.Namespace, source string) *qdrant.Filter {
	must := []*qdrant.Condition{
		qdrant.NewMatch("namespace", namespace.String()),
	}
	if source != "" {
		must = append(must, qdrant.NewMatch("source", source))
	}
	return &qdrant.Filter{Must: must}
}

// payloadToChunk 从负载还原片段
func payloadToChunk(id *qdrant.PointId, payload map[string]*qdrant.Value) *domainIngest.StoredChunk {
	if payload == nil {
		return nil
	}
	metadata := make(map[string]string, len(payload))
	for key, value := range payload {
		if key == "text" || key == "namespace" || key == "source" {
			continue
		}
		if text := extractString(value); text != "" {
			metadata[key] = text
		}
	}
	return &domainIngest.StoredChunk{
		ID:       pointIDString(id),
		Text:     extractString(payload["text"]),
		Metadata: metadata,
	}
}

// extractString 从 qdrant Value 提取字符串
func extractString(value *qdrant.Value) string {
	if value == nil {
		return ""
	}
	return value.GetStringValue()
}

// pointIDString 点 id 的字符串表示
func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuidValue := id.GetUuid(); uuidValue != "" {
		return uuidValue
	}
	return fmt.Sprintf("%d", id.GetNum())
}
