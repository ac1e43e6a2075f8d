package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opengpts/backend/internal/domain/account"
	"github.com/opengpts/backend/internal/infrastructure/storage"
	"github.com/opengpts/backend/internal/interfaces/http/middleware"
	"github.com/opengpts/backend/internal/interfaces/http/response"
)

// AssistantHandler 助手管理处理器
type AssistantHandler struct {
	assistants storage.AssistantRepository
}

// NewAssistantHandler 创建助手处理器
func NewAssistantHandler(assistants storage.AssistantRepository) *AssistantHandler {
	return &AssistantHandler{assistants: assistants}
}

// List 列举当前用户的助手
func (h *AssistantHandler) List(c *gin.Context) {
	assistants, err := h.assistants.FindByUser(middleware.UserID(c))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500001, "Failed to list assistants: "+err.Error())
		return
	}
	response.Success(c, assistants)
}

// Get 查询单个助手
func (h *AssistantHandler) Get(c *gin.Context) {
	assistant, err := h.assistants.FindByID(middleware.UserID(c), c.Param("assistant_id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500002, "Failed to load assistant: "+err.Error())
		return
	}
	if assistant == nil {
		response.Error(c, http.StatusNotFound, 500003, "Assistant not found")
		return
	}
	response.Success(c, assistant)
}

// assistantRequest 创建/更新助手请求
type assistantRequest struct {
	Name   string         `json:"name" binding:"required"`
	Config map[string]any `json:"config"`
	Public bool           `json:"public"`
}

// Create 创建助手
func (h *AssistantHandler) Create(c *gin.Context) {
	var req assistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 500004, "Invalid request: "+err.Error())
		return
	}

	assistant := &account.Assistant{
		UserID: middleware.UserID(c),
		Name:   req.Name,
		Config: req.Config,
		Public: req.Public,
	}
	if err := h.assistants.Save(assistant); err != nil {
		response.Error(c, http.StatusInternalServerError, 500005, "Failed to save assistant: "+err.Error())
		return
	}
	response.Success(c, assistant)
}

// Update 更新助手
func (h *AssistantHandler) Update(c *gin.Context) {
	userID := middleware.UserID(c)
	existing, err := h.assistants.FindByID(userID, c.Param("assistant_id"))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 500006, "Failed to load assistant: "+err.Error())
		return
	}
	if existing == nil || existing.UserID != userID {
		response.Error(c, http.StatusNotFound, 500007, "Assistant not found")
		return
	}

	var req assistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 500008, "Invalid request: "+err.Error())
		return
	}

	existing.Name = req.Name
	existing.Config = req.Config
	existing.Public = req.Public
	if err := h.assistants.Save(existing); err != nil {
		response.Error(c, http.StatusInternalServerError, 500009, "Failed to save assistant: "+err.Error())
		return
	}
	response.Success(c, existing)
}

// Delete 删除助手
func (h *AssistantHandler) Delete(c *gin.Context) {
	if err := h.assistants.Delete(middleware.UserID(c), c.Param("assistant_id")); err != nil {
		response.Error(c, http.StatusInternalServerError, 500010, "Failed to delete assistant: "+err.Error())
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
