package wire

import (
	"context"
	"database/sql"
	"time"

	"log/slog"

	appIngest "github.com/opengpts/backend/internal/application/ingest"
	domainIngest "github.com/opengpts/backend/internal/domain/ingest"
	"github.com/opengpts/backend/internal/infrastructure/embedding"
	applog "github.com/opengpts/backend/internal/infrastructure/log"
	"github.com/opengpts/backend/internal/infrastructure/vector"
	"github.com/opengpts/backend/internal/infrastructure/websocket"
	httpiface "github.com/opengpts/backend/internal/interfaces/http"
)

// 启动时连接向量库与探测向量维度的超时
const startupTimeout = 30 * time.Second

// App 应用主结构，组合所有服务
type App struct {
	HTTPServer      *httpiface.HTTPServer
	wsHub           *websocket.Hub
	registry        *appIngest.Registry
	vectorManager   *vector.Manager
	embeddingClient *embedding.Client
	db              *sql.DB
	logger          *slog.Logger
}

// NewApp 创建应用实例
func NewApp(
	httpServer *httpiface.HTTPServer,
	wsHub *websocket.Hub,
	registry *appIngest.Registry,
	vectorManager *vector.Manager,
	embeddingClient *embedding.Client,
	db *sql.DB,
) *App {
	return &App{
		HTTPServer:      httpServer,
		wsHub:           wsHub,
		registry:        registry,
		vectorManager:   vectorManager,
		embeddingClient: embeddingClient,
		db:              db,
		logger:          applog.NewModuleLogger("app", "main"),
	}
}

// Start 启动所有服务
func (a *App) Start() error {
	a.logger.Info("Starting OpenGPTs backend application")

	// 初始化向量库：连接、探测向量维度、确保集合存在
	if err := a.vectorManager.Connect(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	dimension, err := a.embeddingClient.GetVectorDimension(ctx)
	if err != nil {
		return err
	}
	if err := a.vectorManager.EnsureCollection(ctx, uint64(dimension)); err != nil {
		return err
	}

	// 启动 WebSocket Hub，并把任务快照变更接到对应分组
	a.wsHub.Start()
	a.registry.SetObserver(func(job domainIngest.Job) {
		if err := a.wsHub.BroadcastToJob(job.JobID, job); err != nil {
			a.logger.Warn("failed to broadcast job snapshot",
				"job_id", job.JobID,
				"error", err,
			)
		}
	})

	// 启动 HTTP 服务器（goroutine）
	go func() {
		if err := a.HTTPServer.Start(); err != nil {
			a.logger.Error("Failed to start HTTP server",
				"error", err,
			)
		}
	}()

	a.logger.Info("OpenGPTs backend application started successfully")
	return nil
}

// Stop 停止所有服务
func (a *App) Stop() error {
	a.logger.Info("Stopping OpenGPTs backend application")

	if err := a.HTTPServer.Stop(); err != nil {
		a.logger.Error("Failed to stop HTTP server",
			"error", err,
		)
	}

	if err := a.vectorManager.Close(); err != nil {
		a.logger.Error("Failed to close vector store connection",
			"error", err,
		)
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database",
				"error", err,
			)
		}
	}

	a.logger.Info("OpenGPTs backend application stopped")
	return nil
}
