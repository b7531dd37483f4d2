package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fisker/salesflow/internal/model"
	"github.com/fisker/salesflow/internal/service/auth"
)

// TokenValidator 校验访问令牌
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// AuthMiddleware JWT认证中间件，认证通过后在上下文中设置 user_id
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.Error(401, "missing Authorization header"))
			return
		}

		// 移除 "Bearer " 前缀
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.Error(401, "Authorization header must start with 'Bearer '"))
			return
		}

		claims, err := validator.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.Error(401, "invalid or expired token"))
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// CurrentUserID 当前认证用户ID，未认证时返回 0
func CurrentUserID(c *gin.Context) int64 {
	return c.GetInt64("user_id")
}
