package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"sudooom.market/internal/jwt"
	"sudooom.market/internal/repository"
	"sudooom.market/pkg/response"
)

const (
	ctxUserID      = "user_id"
	ctxUserEmail   = "user_email"
	ctxAccessToken = "access_token"
)

// TokenAuth Token 认证中间件
// 先校验 JWT 签名和有效期，再到 Redis 确认 Token 未被注销
func TokenAuth(jwtService *jwt.Service, tokenRepo *repository.TokenRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c.GetHeader("Authorization"))
		if token == "" {
			response.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateAccessToken(token)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.Error(c, response.CodeTokenExpired)
			} else {
				response.Error(c, response.CodeTokenInvalid)
			}
			c.Abort()
			return
		}

		userInfo, err := tokenRepo.GetUserInfoByToken(c.Request.Context(), token)
		if err != nil {
			response.Error(c, response.CodeServerError)
			c.Abort()
			return
		}
		if userInfo == nil || userInfo.UserID != claims.UserID {
			response.Error(c, response.CodeTokenInvalid)
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserEmail, claims.Email)
		c.Set(ctxAccessToken, token)
		c.Next()
	}
}

// extractToken 从 Authorization header 提取 token
func extractToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return parts[1]
}

// GetUserID 从 context 获取 user_id
func GetUserID(c *gin.Context) int64 {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return 0
	}
	return userID.(int64)
}

// GetUserEmail 从 context 获取用户邮箱
func GetUserEmail(c *gin.Context) string {
	email, exists := c.Get(ctxUserEmail)
	if !exists {
		return ""
	}
	return email.(string)
}

// GetAccessToken 从 context 获取当前请求的 Access Token
func GetAccessToken(c *gin.Context) string {
	token, exists := c.Get(ctxAccessToken)
	if !exists {
		return ""
	}
	return token.(string)
}
