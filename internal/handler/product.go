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

// ProductHandler 商品处理器
type ProductHandler struct {
	productService  *service.ProductService
	favoriteService *service.FavoriteService
}

// NewProductHandler 创建商品处理器
func NewProductHandler(productService *service.ProductService, favoriteService *service.FavoriteService) *ProductHandler {
	return &ProductHandler{productService: productService, favoriteService: favoriteService}
}

// Create 发布商品
// @Summary      发布商品
// @Tags         商品
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body service.CreateProductRequest true "商品信息"
// @Success      200  {object}  response.Response{data=model.Product}
// @Router       /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req service.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	sellerID := middleware.GetUserID(c)
	product, err := h.productService.Create(c.Request.Context(), sellerID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCondition):
			response.Error(c, response.CodeInvalidParams)
		case errors.Is(err, repository.ErrCategoryNotFound):
			response.Error(c, response.CodeCategoryNotFound)
		default:
			response.Error(c, response.CodeServerError)
		}
		return
	}

	response.Success(c, product)
}

// Get 商品详情
// @Summary      商品详情
// @Tags         商品
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "商品ID"
// @Success      200  {object}  response.Response{data=service.ProductDetail}
// @Router       /products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, response.CodeInvalidParams)
		return
	}

	detail, err := h.productService.Get(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			response.Error(c, response.CodeProductNotFound)
			return
		}
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, detail)
}

// Update 更新商品
// @Summary      更新商品
// @Tags         商品
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "商品ID"
// @Param        request body service.UpdateProductRequest true "商品信息"
// @Success      200  {object}  response.Response{data=model.Product}
// @Router       /products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, response.CodeInvalidParams)
		return
	}

	var req service.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	userID := middleware.GetUserID(c)
	product, err := h.productService.Update(c.Request.Context(), userID, productID, &req)
	if err != nil {
		h.writeProductError(c, err)
		return
	}

	response.Success(c, product)
}

// UpdateStatus 更新商品状态
// @Summary      更新商品状态
// @Description  下架、标记已售、标记预定
// @Tags         商品
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "商品ID"
// @Param        request body object{status=string} true "目标状态"
// @Success      200  {object}  response.Response
// @Router       /products/{id}/status [put]
func (h *ProductHandler) UpdateStatus(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, response.CodeInvalidParams)
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	userID := middleware.GetUserID(c)
	if err := h.productService.UpdateStatus(c.Request.Context(), userID, productID, req.Status); err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			response.Error(c, response.CodeInvalidParams)
			return
		}
		h.writeProductError(c, err)
		return
	}

	response.Success(c, nil)
}

// Search 搜索商品
// @Summary      搜索商品
// @Tags         商品
// @Produce      json
// @Security     BearerAuth
// @Param        keyword query string false "关键词"
// @Param        category_id query string false "分类ID"
// @Param        seller_id query string false "卖家ID"
// @Param        min_price_cents query int false "最低价（分）"
// @Param        max_price_cents query int false "最高价（分）"
// @Param        condition query string false "成色"
// @Param        limit query int false "数量上限"
// @Param        offset query int false "偏移量"
// @Success      200  {object}  response.Response{data=[]model.Product}
// @Router       /products [get]
func (h *ProductHandler) Search(c *gin.Context) {
	categoryID, _ := strconv.ParseInt(c.Query("category_id"), 10, 64)
	sellerID, _ := strconv.ParseInt(c.Query("seller_id"), 10, 64)
	minPrice, _ := strconv.ParseInt(c.Query("min_price_cents"), 10, 64)
	maxPrice, _ := strconv.ParseInt(c.Query("max_price_cents"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := &repository.SearchFilter{
		Keyword:       c.Query("keyword"),
		CategoryID:    categoryID,
		SellerID:      sellerID,
		MinPriceCents: minPrice,
		MaxPriceCents: maxPrice,
		Condition:     c.Query("condition"),
		Limit:         limit,
		Offset:        offset,
	}

	products, err := h.productService.Search(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, products)
}

// AddImage 添加商品图片
// @Summary      添加商品图片
// @Tags         商品
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "商品ID"
// @Param        request body service.AddImageRequest true "图片信息"
// @Success      200  {object}  response.Response{data=model.ProductImage}
// @Router       /products/{id}/images [post]
func (h *ProductHandler) AddImage(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, response.CodeInvalidParams)
		return
	}

	var req service.AddImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidParams, err.Error())
		return
	}

	userID := middleware.GetUserID(c)
	image, err := h.productService.AddImage(c.Request.Context(), userID, productID, &req)
	if err != nil {
		if errors.Is(err, service.ErrTooManyImages) {
			response.ErrorWithMsg(c, response.CodeInvalidParams, "商品图片数量已达上限")
			return
		}
		h.writeProductError(c, err)
		return
	}

	response.Success(c, image)
}

// ListCategories 分类列表
// @Summary      分类列表
// @Tags         商品
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]model.Category}
// @Router       /categories [get]
func (h *ProductHandler) ListCategories(c *gin.Context) {
	categories, err := h.productService.ListCategories(c.Request.Context())
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, categories)
}

// AddFavorite 收藏商品
// @Summary      收藏商品
// @Tags         收藏
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "商品ID"
// @Success      200  {object}  response.Response
// @Router       /products/{id}/favorite [post]
func (h *ProductHandler) AddFavorite(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, response.CodeInvalidParams)
		return
	}

	userID := middleware.GetUserID(c)
	if err := h.favoriteService.Add(c.Request.Context(), userID, productID); err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			response.Error(c, response.CodeProductNotFound)
		case errors.Is(err, repository.ErrAlreadyFavorited):
			response.Error(c, response.CodeAlreadyFavorited)
		default:
			response.Error(c, response.CodeServerError)
		}
		return
	}

	response.Success(c, nil)
}

// RemoveFavorite 取消收藏
// @Summary      取消收藏
// @Tags         收藏
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "商品ID"
// @Success      200  {object}  response.Response
// @Router       /products/{id}/favorite [delete]
func (h *ProductHandler) RemoveFavorite(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, response.CodeInvalidParams)
		return
	}

	userID := middleware.GetUserID(c)
	if err := h.favoriteService.Remove(c.Request.Context(), userID, productID); err != nil {
		if errors.Is(err, repository.ErrFavoriteNotFound) {
			response.Error(c, response.CodeFavoriteNotFound)
			return
		}
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, nil)
}

// ListFavorites 收藏列表
// @Summary      我的收藏
// @Tags         收藏
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "数量上限"
// @Param        offset query int false "偏移量"
// @Success      200  {object}  response.Response{data=[]model.Product}
// @Router       /favorites [get]
func (h *ProductHandler) ListFavorites(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	userID := middleware.GetUserID(c)
	products, err := h.favoriteService.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, products)
}

// writeProductError 商品通用错误映射
func (h *ProductHandler) writeProductError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		response.Error(c, response.CodeProductNotFound)
	case errors.Is(err, repository.ErrCategoryNotFound):
		response.Error(c, response.CodeCategoryNotFound)
	case errors.Is(err, service.ErrNotProductSeller):
		response.Error(c, response.CodeNotProductOwner)
	case errors.Is(err, service.ErrInvalidCondition):
		response.Error(c, response.CodeInvalidParams)
	default:
		response.Error(c, response.CodeServerError)
	}
}
