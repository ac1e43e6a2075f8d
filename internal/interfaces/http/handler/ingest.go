package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	appIngest "github.com/opengpts/backend/internal/application/ingest"
	domainIngest "github.com/opengpts/backend/internal/domain/ingest"
	"github.com/opengpts/backend/internal/infrastructure/config"
	"github.com/opengpts/backend/internal/infrastructure/log"
	"github.com/opengpts/backend/internal/infrastructure/parsing"
	"github.com/opengpts/backend/internal/infrastructure/websocket"
	"github.com/opengpts/backend/internal/interfaces/http/response"
)

// IngestHandler 摄取处理器
type IngestHandler struct {
	ingestService *appIngest.Service
	hub           *websocket.Hub
	upgrader      gorillaws.Upgrader
	logger        *slog.Logger
}

// NewIngestHandler 创建摄取处理器
func NewIngestHandler(
	ingestService *appIngest.Service,
	hub *websocket.Hub,
	wsConfig *config.WebSocketConfig,
) *IngestHandler {
	return &IngestHandler{
		ingestService: ingestService,
		hub:           hub,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  wsConfig.ReadBufferSize,
			WriteBufferSize: wsConfig.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log.NewModuleLogger("http", "ingest"),
	}
}

// ingestConfig 上传表单中的 config 字段
type ingestConfig struct {
	AssistantID string `json:"assistant_id"`
	ThreadID    string `json:"thread_id"`
}

// Upload 上传文件并创建摄取任务
// multipart 表单: files 为文件列表，config 为 JSON（assistant_id/thread_id 二选一）
func (h *IngestHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, http.StatusBadRequest, 300001, "Invalid multipart form: "+err.Error())
		return
	}

	var cfg ingestConfig
	if values := form.Value["config"]; len(values) > 0 {
		if err := json.Unmarshal([]byte(values[0]), &cfg); err != nil {
			response.Error(c, http.StatusBadRequest, 300002, "Invalid config: "+err.Error())
			return
		}
	}

	namespace, err := domainIngest.ResolveNamespace(cfg.AssistantID, cfg.ThreadID)
	if err != nil {
		response.Error(c, http.StatusBadRequest, 300003, err.Error())
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		response.Error(c, http.StatusBadRequest, 300004, "No files uploaded")
		return
	}

	blobs := make([]*domainIngest.Blob, 0, len(files))
	for _, file := range files {
		reader, err := file.Open()
		if err != nil {
			response.Error(c, http.StatusBadRequest, 300005, "Failed to open upload: "+err.Error())
			return
		}
		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			response.Error(c, http.StatusBadRequest, 300006, "Failed to read upload: "+err.Error())
			return
		}

		mimeType := file.Header.Get("Content-Type")
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = parsing.GuessMimeType(file.Filename, data)
		}
		blobs = append(blobs, &domainIngest.Blob{
			Data:     data,
			Name:     file.Filename,
			MimeType: mimeType,
		})
	}

	job := h.ingestService.Submit(blobs, namespace)
	h.logger.Info("ingest job submitted",
		"job_id", job.JobID,
		"files", len(blobs),
		"namespace", namespace.String(),
	)
	response.Success(c, job)
}

// Status 查询任务状态
func (h *IngestHandler) Status(c *gin.Context) {
	jobID := c.Param("job_id")
	job, ok := h.ingestService.Registry().Get(jobID)
	if !ok {
		response.Error(c, http.StatusNotFound, 300007, "Job not found")
		return
	}
	response.Success(c, job)
}

// Cancel 请求取消任务
// 任务不存在或已到终态时返回 409
func (h *IngestHandler) Cancel(c *gin.Context) {
	jobID := c.Param("job_id")
	if !h.ingestService.Registry().Cancel(jobID) {
		response.Error(c, http.StatusConflict, 300008, "Job cannot be canceled")
		return
	}
	job, _ := h.ingestService.Registry().Get(jobID)
	response.Success(c, job)
}

// Watch 通过 WebSocket 推送任务进度快照
func (h *IngestHandler) Watch(c *gin.Context) {
	jobID := c.Param("job_id")
	job, ok := h.ingestService.Registry().Get(jobID)
	if !ok {
		response.Error(c, http.StatusNotFound, 300009, "Job not found")
		return
	}

	wsConn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "job_id", jobID, "error", err)
		return
	}

	conn := &websocket.Connection{
		JobID: jobID,
		Send:  make(chan []byte, 16),
	}
	h.hub.Register(conn)

	// 先推当前快照，再跟进增量
	if snapshot, err := json.Marshal(job); err == nil {
		wsConn.WriteMessage(gorillaws.TextMessage, snapshot)
	}

	// 读循环只用于感知客户端断开
	go func() {
		defer h.hub.Unregister(conn)
		for {
			if _, _, err := wsConn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for data := range conn.Send {
		if err := wsConn.WriteMessage(gorillaws.TextMessage, data); err != nil {
			break
		}
	}
	wsConn.Close()
}
