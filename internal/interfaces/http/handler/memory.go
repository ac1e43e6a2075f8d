package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appMemory "github.com/opengpts/backend/internal/application/memory"
	"github.com/opengpts/backend/internal/interfaces/http/middleware"
	"github.com/opengpts/backend/internal/interfaces/http/response"
)

// MemoryHandler 用户记忆处理器
type MemoryHandler struct {
	memoryService *appMemory.Service
}

// NewMemoryHandler 创建记忆处理器
func NewMemoryHandler(memoryService *appMemory.Service) *MemoryHandler {
	return &MemoryHandler{memoryService: memoryService}
}

// List 分页列举当前用户的记忆
func (h *MemoryHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	items, err := h.memoryService.List(c.Request.Context(), middleware.UserID(c), limit, offset)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 400001, "Failed to list memory: "+err.Error())
		return
	}
	response.Success(c, gin.H{
		"items":  items,
		"limit":  limit,
		"offset": offset,
	})
}

// Delete 删除一条记忆
func (h *MemoryHandler) Delete(c *gin.Context) {
	deleted, err := h.memoryService.Delete(c.Request.Context(), middleware.UserID(c), c.Param("memory_id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 400002, "Failed to delete memory: "+err.Error())
		return
	}
	if !deleted {
		response.Error(c, http.StatusNotFound, 400003, "Memory not found")
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// Clear 清空当前用户全部记忆
func (h *MemoryHandler) Clear(c *gin.Context) {
	count, err := h.memoryService.Clear(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 400004, "Failed to clear memory: "+err.Error())
		return
	}
	response.Success(c, gin.H{"deleted": count})
}
