package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"sudooom.market/internal/middleware"
	"sudooom.market/internal/repository"
	"sudooom.market/internal/service"
	"sudooom.market/pkg/response"
)

// UserHandler 用户处理器
type UserHandler struct {
	userService   *service.UserService
	ratingService *service.RatingService
}

// NewUserHandler 创建用户处理器
func NewUserHandler(userService *service.UserService, ratingService *service.RatingService) *UserHandler {
	return &UserHandler{userService: userService, ratingService: ratingService}
}

// GetProfile 获取当前用户资料
// @Summary      获取个人资料
// @Tags         用户
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.UserProfile}
// @Router       /user/profile [get]
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID := middleware.GetUserID(c)

	profile, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.Error(c, response.CodeUserNotFound)
			return
		}
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, profile)
}

// UpdateProfile 更新个人资料
// @Summary      更新个人资料
// @Tags         用户
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body service.UpdateProfileRequest true "资料信息"
// @Success      200  {object}  response.Response{data=service.UserProfile}
// @Router       /user/profile [put]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	userID := middleware.GetUserID(c)
	profile, err := h.userService.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.Error(c, response.CodeUserNotFound)
			return
		}
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, profile)
}

// GetUserByID 查看其他用户资料
// @Summary      查看用户资料
// @Tags         用户
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "用户ID"
// @Success      200  {object}  response.Response{data=service.UserProfile}
// @Router       /user/{id} [get]
func (h *UserHandler) GetUserByID(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, response.CodeInvalidParams)
		return
	}

	profile, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			response.Error(c, response.CodeUserNotFound)
			return
		}
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, profile)
}

// Search 搜索用户
// @Summary      搜索用户
// @Description  按姓名或学校搜索
// @Tags         用户
// @Produce      json
// @Security     BearerAuth
// @Param        keyword query string true "关键词"
// @Param        limit query int false "数量上限"
// @Param        offset query int false "偏移量"
// @Success      200  {object}  response.Response{data=[]service.UserProfile}
// @Router       /user/search [get]
func (h *UserHandler) Search(c *gin.Context) {
	keyword := c.Query("keyword")
	if keyword == "" {
		response.Error(c, response.CodeInvalidParams)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	profiles, err := h.userService.Search(c.Request.Context(), keyword, limit, offset)
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, profiles)
}

// ListRatings 用户收到的评分
// @Summary      用户评分列表
// @Tags         用户
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "用户ID"
// @Param        limit query int false "数量上限"
// @Param        offset query int false "偏移量"
// @Success      200  {object}  response.Response{data=[]model.Rating}
// @Router       /user/{id}/ratings [get]
func (h *UserHandler) ListRatings(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, response.CodeInvalidParams)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	ratings, err := h.ratingService.ListForUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, ratings)
}

// CreateRating 给交易对方评分
// @Summary      创建评分
// @Tags         用户
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body service.CreateRatingRequest true "评分信息"
// @Success      200  {object}  response.Response{data=model.Rating}
// @Router       /ratings [post]
func (h *UserHandler) CreateRating(c *gin.Context) {
	var req service.CreateRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	raterID := middleware.GetUserID(c)
	rating, err := h.ratingService.Create(c.Request.Context(), raterID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCannotRateSelf):
			response.Error(c, response.CodeCannotRateSelf)
		case errors.Is(err, repository.ErrUserNotFound):
			response.Error(c, response.CodeUserNotFound)
		case errors.Is(err, repository.ErrAlreadyRated):
			response.Error(c, response.CodeAlreadyRated)
		default:
			response.Error(c, response.CodeServerError)
		}
		return
	}

	response.Success(c, rating)
}
