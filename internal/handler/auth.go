package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"sudooom.market/internal/jwt"
	"sudooom.market/internal/middleware"
	"sudooom.market/internal/repository"
	"sudooom.market/internal/service"
	"sudooom.market/pkg/response"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register 用户注册
// @Summary      用户注册
// @Description  使用校园邮箱创建新账号
// @Tags         认证
// @Accept       json
// @Produce      json
// @Param        request body service.RegisterRequest true "注册信息"
// @Success      200  {object}  response.Response{data=object{user_id=string,email=string}}
// @Failure      200  {object}  response.Response
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailNotStudent):
			response.Error(c, response.CodeEmailNotStudent)
		case errors.Is(err, repository.ErrEmailExists):
			response.Error(c, response.CodeEmailExists)
		default:
			response.Error(c, response.CodeServerError)
		}
		return
	}

	response.Success(c, gin.H{
		"user_id": user.ID,
		"email":   user.Email,
	})
}

// Login 用户登录
// @Summary      用户登录
// @Description  邮箱密码登录，获取 Token 对
// @Tags         认证
// @Accept       json
// @Produce      json
// @Param        request body service.LoginRequest true "登录信息"
// @Success      200  {object}  response.Response{data=service.LoginResponse}
// @Failure      200  {object}  response.Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			response.Error(c, response.CodeInvalidCredentials)
		case errors.Is(err, service.ErrUserDisabled):
			response.Error(c, response.CodeUserDisabled)
		default:
			response.Error(c, response.CodeServerError)
		}
		return
	}

	response.Success(c, resp)
}

// Refresh 刷新 Token
// @Summary      刷新 Token
// @Description  用 Refresh Token 换取新的 Token 对
// @Tags         认证
// @Accept       json
// @Produce      json
// @Param        request body object{refresh_token=string} true "Refresh Token"
// @Success      200  {object}  response.Response{data=service.LoginResponse}
// @Failure      200  {object}  response.Response
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	resp, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			response.Error(c, response.CodeTokenExpired)
		case errors.Is(err, jwt.ErrTokenInvalid):
			response.Error(c, response.CodeTokenInvalid)
		case errors.Is(err, service.ErrUserDisabled):
			response.Error(c, response.CodeUserDisabled)
		default:
			response.Error(c, response.CodeServerError)
		}
		return
	}

	response.Success(c, resp)
}

// Logout 用户登出
// @Summary      用户登出
// @Description  注销当前 Access Token
// @Tags         认证
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID := middleware.GetUserID(c)
	accessToken := middleware.GetAccessToken(c)

	if err := h.authService.Logout(c.Request.Context(), userID, accessToken); err != nil {
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, nil)
}
