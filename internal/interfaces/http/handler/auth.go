package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opengpts/backend/internal/infrastructure/auth"
	"github.com/opengpts/backend/internal/infrastructure/storage"
	"github.com/opengpts/backend/internal/interfaces/http/middleware"
	"github.com/opengpts/backend/internal/interfaces/http/response"
)

// AuthHandler 本地认证处理器
type AuthHandler struct {
	issuer *auth.TokenIssuer
	users  storage.UserRepository
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(issuer *auth.TokenIssuer, users storage.UserRepository) *AuthHandler {
	return &AuthHandler{
		issuer: issuer,
		users:  users,
	}
}

// Login 本地登录，为主体签发令牌
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Sub string `json:"sub" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, 100101, "Invalid request: "+err.Error())
		return
	}

	user, err := h.users.GetOrCreate(req.Sub)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 100102, "Failed to resolve user: "+err.Error())
		return
	}

	token, err := h.issuer.Issue(user.Sub)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 100103, "Failed to issue token: "+err.Error())
		return
	}

	response.Success(c, gin.H{
		"token": token,
		"user":  user,
	})
}

// Me 返回当前用户
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.users.FindByID(middleware.UserID(c))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 100104, "Failed to load user: "+err.Error())
		return
	}
	if user == nil {
		response.Error(c, http.StatusNotFound, 100105, "User not found")
		return
	}
	response.Success(c, user)
}
