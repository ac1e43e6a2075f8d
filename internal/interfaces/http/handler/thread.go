package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opengpts/backend/internal/domain/account"
	"github.com/opengpts/backend/internal/infrastructure/storage"
	"github.com/opengpts/backend/internal/interfaces/http/middleware"
	"github.com/opengpts/backend/internal/interfaces/http/response"
)

// ThreadHandler 线程管理处理器
type ThreadHandler struct {
	threads    storage.ThreadRepository
	assistants storage.AssistantRepository
}

// NewThreadHandler 创建线程处理器
func NewThreadHandler(
	threads storage.ThreadRepository,
	assistants storage.AssistantRepository,
) *ThreadHandler {
	return &ThreadHandler{
		threads:    threads,
		assistants: assistants,
	}
}

// List 列举当前用户的线程
func (h *ThreadHandler) List(c *gin.Context) {
	threads, err := h.threads.FindByUser(middleware.UserID(c))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500101, "Failed to list threads: "+err.Error())
		return
	}
	response.Success(c, threads)
}

// Get 查询单个线程
func (h *ThreadHandler) Get(c *gin.Context) {
	thread, err := h.threads.FindByID(middleware.UserID(c), c.Param("thread_id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500102, "Failed to load thread: "+err.Error())
		return
	}
	if thread == nil {
		response.Error(c, http.StatusNotFound, 500103, "Thread not found")
		return
	}
	response.Success(c, thread)
}

// threadRequest 创建/更新线程请求
type threadRequest struct {
	AssistantID string `json:"assistant_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
}

// Create 创建线程
func (h *ThreadHandler) Create(c *gin.Context) {
	var req threadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 500104, "Invalid request: "+err.Error())
		return
	}

	userID := middleware.UserID(c)
	assistant, err := h.assistants.FindByID(userID, req.AssistantID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500105, "Failed to load assistant: "+err.Error())
		return
	}
	if assistant == nil {
		response.Error(c, http.StatusNotFound, 500106, "Assistant not found")
		return
	}

	thread := &account.Thread{
		UserID:      userID,
		AssistantID: req.AssistantID,
		Name:        req.Name,
	}
	if err := h.threads.Save(thread); err != nil {
		response.Error(c, http.StatusInternalServerError, 500107, "Failed to save thread: "+err.Error())
		return
	}
	response.Success(c, thread)
}

// Delete 删除线程
func (h *ThreadHandler) Delete(c *gin.Context) {
	if err := h.threads.Delete(middleware.UserID(c), c.Param("thread_id")); err != nil {
		response.Error(c, http.StatusInternalServerError, 500108, "Failed to delete thread: "+err.Error())
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
