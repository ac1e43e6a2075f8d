package vector

import (
	"context"
	"fmt"

	"log/slog"

	"github.com/qdrant/go-client/qdrant"

	"github.com/opengpts/backend/internal/infrastructure/config"
	"github.com/opengpts/backend/internal/infrastructure/log"
)

// Manager Qdrant 连接管理器
type Manager struct {
	host       string
	port       int
	collection string
	client     *qdrant.Client
	logger     *slog.Logger
}

// NewManager 创建 Qdrant 管理器
func NewManager(cfg *config.QdrantConfig) *Manager {
	return &Manager{
		host:       cfg.Host,
		port:       cfg.Port,
		collection: cfg.Collection,
		logger:     log.NewModuleLogger("vector", "manager"),
	}
}

// Connect 建立 gRPC 连接
func (m *Manager) Connect() error {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: m.host,
		Port: m.port,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	m.client = client
	return nil
}

// Close 关闭连接
func (m *Manager) Close() error {
	if m.client != nil {
		err := m.client.Close()
		m.client = nil
		return err
	}
	return nil
}

// Client 获取 Qdrant 客户端
func (m *Manager) Client() *qdrant.Client {
	return m.client
}

// Collection 获取集合名
func (m *Manager) Collection() string {
	return m.collection
}

// EnsureCollection 确保集合存在，不存在时按给定维度创建
func (m *Manager) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	if m.client == nil {
		return fmt.Errorf("qdrant client not initialized")
	}

	existing, err := m.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range existing {
		if name == m.collection {
			return nil
		}
	}

	m.logger.Info("Creating qdrant collection",
		"collection", m.collection,
		"vector_size", vectorSize,
	)
	err = m.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: m.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", m.collection, err)
	}
	return nil
}
