package http

import (
	"context"
	"net"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/opengpts/backend/internal/infrastructure/auth"
	"github.com/opengpts/backend/internal/infrastructure/config"
	"github.com/opengpts/backend/internal/infrastructure/log"
	"github.com/opengpts/backend/internal/infrastructure/storage"
	"github.com/opengpts/backend/internal/interfaces/http/handler"
	"github.com/opengpts/backend/internal/interfaces/http/middleware"
)

// HTTPServer HTTP 服务器
type HTTPServer struct {
	router   *gin.Engine
	httpPort string
	server   *http.Server
	logger   *slog.Logger
}

// NewServer 创建 HTTP 服务器
func NewServer(
	serverConfig *config.ServerConfig,
	issuer *auth.TokenIssuer,
	users storage.UserRepository,
	authHandler *handler.AuthHandler,
	runHandler *handler.RunHandler,
	ingestHandler *handler.IngestHandler,
	memoryHandler *handler.MemoryHandler,
	assistantHandler *handler.AssistantHandler,
	threadHandler *handler.ThreadHandler,
) *HTTPServer {
	router := gin.Default()

	logger := log.NewModuleLogger("http", "server")

	requireAuth := middleware.RequireAuth(issuer, users)

	// 注册路由
	api := router.Group("/api/v1")
	{
		api.POST("/auth/login", authHandler.Login)
		api.GET("/auth/me", requireAuth, authHandler.Me)

		authed := api.Group("", requireAuth)
		{
			// 运行相关路由
			authed.POST("/runs", runHandler.Create)
			authed.POST("/runs/stream", runHandler.Stream)

			// 摄取相关路由
			authed.POST("/ingest", ingestHandler.Upload)
			authed.GET("/ingest/:job_id", ingestHandler.Status)
			authed.POST("/ingest/:job_id/cancel", ingestHandler.Cancel)
			authed.GET("/ingest/:job_id/ws", ingestHandler.Watch)

			// 记忆相关路由
			authed.GET("/memory", memoryHandler.List)
			authed.DELETE("/memory/:memory_id", memoryHandler.Delete)
			authed.DELETE("/memory", memoryHandler.Clear)

			// 助手相关路由
			authed.GET("/assistants", assistantHandler.List)
			authed.POST("/assistants", assistantHandler.Create)
			authed.GET("/assistants/:assistant_id", assistantHandler.Get)
			authed.PUT("/assistants/:assistant_id", assistantHandler.Update)
			authed.DELETE("/assistants/:assistant_id", assistantHandler.Delete)

			// 线程相关路由
			authed.GET("/threads", threadHandler.List)
			authed.POST("/threads", threadHandler.Create)
			authed.GET("/threads/:thread_id", threadHandler.Get)
			authed.DELETE("/threads/:thread_id", threadHandler.Delete)
		}
	}

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return &HTTPServer{
		router:   router,
		httpPort: serverConfig.HTTPPort,
		logger:   logger,
	}
}

// Serve 在已有 listener 上启动服务器（配合单例端口锁）
func (s *HTTPServer) Serve(listener net.Listener) error {
	s.server = &http.Server{
		Addr:    s.httpPort,
		Handler: s.router,
	}

	s.logger.Info("HTTP server starting",
		"port", s.httpPort,
	)

	return s.server.Serve(listener)
}

// Start 启动服务器
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:    s.httpPort,
		Handler: s.router,
	}

	s.logger.Info("HTTP server starting",
		"port", s.httpPort,
	)

	return s.server.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Stop 停止服务器
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
