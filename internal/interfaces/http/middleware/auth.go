package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/opengpts/backend/internal/infrastructure/auth"
	"github.com/opengpts/backend/internal/infrastructure/storage"
	"github.com/opengpts/backend/internal/interfaces/http/response"
)

// 上下文键
const (
	ContextUserID = "user_id"
	ContextSub    = "sub"
)

// RequireAuth 解析 Bearer 令牌并注入用户身份
// 首次出现的主体自动建档
func RequireAuth(issuer *auth.TokenIssuer, users storage.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Error(c, http.StatusUnauthorized, 100001, "Missing bearer token")
			c.Abort()
			return
		}

		sub, err := issuer.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			response.Error(c, http.StatusUnauthorized, 100002, "Invalid token")
			c.Abort()
			return
		}

		user, err := users.GetOrCreate(sub)
		if err != nil {
			response.Error(c, http.StatusInternalServerError, 100003, "Failed to resolve user")
			c.Abort()
			return
		}

		c.Set(ContextUserID, user.UserID)
		c.Set(ContextSub, user.Sub)
		c.Next()
	}
}

// UserID 从上下文取当前用户 id
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
