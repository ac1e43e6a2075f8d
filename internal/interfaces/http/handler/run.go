package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appMemory "github.com/opengpts/backend/internal/application/memory"
	appRun "github.com/opengpts/backend/internal/application/run"
	domainRun "github.com/opengpts/backend/internal/domain/run"
	"github.com/opengpts/backend/internal/infrastructure/log"
	"github.com/opengpts/backend/internal/infrastructure/storage"
	"github.com/opengpts/backend/internal/interfaces/http/middleware"
	"github.com/opengpts/backend/internal/interfaces/http/response"
)

// 后台运行的超时上限
const backgroundRunTimeout = 5 * time.Minute

// RunHandler 运行处理器
type RunHandler struct {
	runService    *appRun.Service
	memoryService *appMemory.Service
	assistants    storage.AssistantRepository
	threads       storage.ThreadRepository
	logger        *slog.Logger
}

// NewRunHandler 创建运行处理器
func NewRunHandler(
	runService *appRun.Service,
	memoryService *appMemory.Service,
	assistants storage.AssistantRepository,
	threads storage.ThreadRepository,
) *RunHandler {
	return &RunHandler{
		runService:    runService,
		memoryService: memoryService,
		assistants:    assistants,
		threads:       threads,
		logger:        log.NewModuleLogger("http", "run"),
	}
}

// runRequest 运行请求
type runRequest struct {
	AssistantID string            `json:"assistant_id" binding:"required"`
	ThreadID    string            `json:"thread_id" binding:"required"`
	Input       []*runInputMessage `json:"input" binding:"required"`
}

type runInputMessage struct {
	ID      string         `json:"id"`
	Role    string         `json:"role" binding:"required"`
	Content string         `json:"content"`
	Data    map[string]any `json:"data"`
}

// bindRun 校验请求并组装运行输入（含记忆注入）
func (h *RunHandler) bindRun(c *gin.Context) (*runRequest, []*domainRun.Message, bool) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 200001, "Invalid request: "+err.Error())
		return nil, nil, false
	}

	userID := middleware.UserID(c)

	assistant, err := h.assistants.FindByID(userID, req.AssistantID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 200002, "Failed to load assistant: "+err.Error())
		return nil, nil, false
	}
	if assistant == nil {
		response.Error(c, http.StatusNotFound, 200003, "Assistant not found")
		return nil, nil, false
	}

	thread, err := h.threads.FindByID(userID, req.ThreadID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 200004, "Failed to load thread: "+err.Error())
		return nil, nil, false
	}
	if thread == nil {
		response.Error(c, http.StatusNotFound, 200005, "Thread not found")
		return nil, nil, false
	}

	input := make([]*domainRun.Message, 0, len(req.Input)+1)
	for _, m := range req.Input {
		id := m.ID
		if id == "" {
			id = uuid.New().String()
		}
		input = append(input, &domainRun.Message{
			ID:   id,
			Role: domainRun.Role(m.Role),
			Text: m.Content,
			Data: m.Data,
		})
	}

	// 以最近一条用户消息为查询检索记忆，命中时作为系统消息注入开头
	if memoryContext := h.buildMemoryContext(c.Request.Context(), userID, input); memoryContext != "" {
		system := &domainRun.Message{
			ID:   "memory-" + uuid.New().String(),
			Role: domainRun.RoleSystem,
			Text: memoryContext,
		}
		input = append([]*domainRun.Message{system}, input...)
	}

	return &req, input, true
}

func (h *RunHandler) buildMemoryContext(ctx context.Context, userID string, input []*domainRun.Message) string {
	query := latestHumanMessage(input)
	if query == "" {
		return ""
	}
	memoryContext, err := h.memoryService.BuildContext(ctx, userID, query)
	if err != nil {
		// 记忆检索失败不阻断运行
		h.logger.Warn("failed to build memory context", "error", err)
		return ""
	}
	return memoryContext
}

// latestHumanMessage 取最近一条用户消息的文本
func latestHumanMessage(messages []*domainRun.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domainRun.RoleUser && messages[i].Text != "" {
			return messages[i].Text
		}
	}
	return ""
}

// Create 后台执行一次运行，完成后把消息写入记忆库
func (h *RunHandler) Create(c *gin.Context) {
	req, input, ok := h.bindRun(c)
	if !ok {
		return
	}
	userID := middleware.UserID(c)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundRunTimeout)
		defer cancel()

		messages, err := h.runService.Run(ctx, input)
		if err != nil {
			h.logger.Error("background run failed",
				"thread_id", req.ThreadID,
				"error", err,
			)
			return
		}
		h.storeMemory(ctx, userID, req, input, messages)
	}()

	response.Success(c, gin.H{"status": "ok"})
}

// Stream 流式执行一次运行，逐帧写出 SSE
func (h *RunHandler) Stream(c *gin.Context) {
	req, input, ok := h.bindRun(c)
	if !ok {
		return
	}
	userID := middleware.UserID(c)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ctx := c.Request.Context()
	aggregator, encoder, err := h.runService.StartStream(ctx, input)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 200006, "Failed to start run: "+err.Error())
		return
	}

	for {
		frame, err := encoder.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			h.logger.Error("stream aborted", "error", err)
			return
		}
		c.SSEvent(frame.Event, frame.Data)
		c.Writer.Flush()
	}

	// 连接已断开时仍尽量落盘记忆
	storeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	h.storeMemory(storeCtx, userID, req, input, aggregator.Messages())
}

// storeMemory 把本轮用户输入与助手产出写入记忆库
func (h *RunHandler) storeMemory(
	ctx context.Context,
	userID string,
	req *runRequest,
	input, output []*domainRun.Message,
) {
	var toStore []*domainRun.Message
	for _, message := range input {
		if message.Role == domainRun.RoleUser {
			toStore = append(toStore, message)
		}
	}
	for _, message := range output {
		if message.Role == domainRun.RoleAssistant {
			toStore = append(toStore, message)
		}
	}

	if err := h.memoryService.StoreMessages(ctx, userID, req.ThreadID, req.AssistantID, toStore); err != nil {
		h.logger.Warn("failed to store run memory",
			"thread_id", req.ThreadID,
			"error", err,
		)
	}
}
