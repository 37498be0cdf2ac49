package service

import (
	"context"
	"errors"

	"sudooom.market/internal/model"
	"sudooom.market/internal/repository"
	"sudooom.market/pkg/snowflake"
)

var (
	ErrNotProductSeller = errors.New("user is not the product seller")
	ErrTooManyImages    = errors.New("image limit reached for product")
	ErrInvalidCondition = errors.New("invalid product condition")
	ErrInvalidStatus    = errors.New("invalid product status")
)

// CreateProductRequest 发布商品请求
type CreateProductRequest struct {
	Title              string `json:"title" binding:"required,min=1,max=200"`
	Description        string `json:"description" binding:"required,min=1,max=5000"`
	PriceCents         int64  `json:"price_cents" binding:"required,min=0"`
	OriginalPriceCents *int64 `json:"original_price_cents" binding:"omitempty,min=0"`
	Condition          string `json:"condition" binding:"required"`
	CategoryID         int64  `json:"category_id,string" binding:"required"`
	PickupLocation     string `json:"pickup_location" binding:"max=200"`
	CampusArea         string `json:"campus_area" binding:"max=100"`
	IsNegotiable       bool   `json:"is_negotiable"`
	PickupOnly         bool   `json:"pickup_only"`
	DeliveryFeeCents   *int64 `json:"delivery_fee_cents" binding:"omitempty,min=0"`
	IsUrgent           bool   `json:"is_urgent"`
	Tags               string `json:"tags" binding:"max=500"`
}

// UpdateProductRequest 更新商品请求，字段同创建
type UpdateProductRequest = CreateProductRequest

// AddImageRequest 添加商品图片请求
type AddImageRequest struct {
	URL       string `json:"url" binding:"required,max=500"`
	AltText   string `json:"alt_text" binding:"max=200"`
	IsPrimary bool   `json:"is_primary"`
	SortOrder int    `json:"sort_order" binding:"min=0"`
}

// ProductDetail 商品详情
type ProductDetail struct {
	*model.Product
	Images []*model.ProductImage `json:"images"`
}

// ProductService 商品服务
type ProductService struct {
	productRepo  *repository.ProductRepository
	categoryRepo *repository.CategoryRepository
	snowflake    *snowflake.Node
	maxImages    int
}

// NewProductService 创建商品服务
func NewProductService(
	productRepo *repository.ProductRepository,
	categoryRepo *repository.CategoryRepository,
	sf *snowflake.Node,
	maxImages int,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		snowflake:    sf,
		maxImages:    maxImages,
	}
}

// Create 发布商品
func (s *ProductService) Create(ctx context.Context, sellerID int64, req *CreateProductRequest) (*model.Product, error) {
	if !model.ValidCondition(req.Condition) {
		return nil, ErrInvalidCondition
	}
	if _, err := s.categoryRepo.GetByID(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	product := &model.Product{
		ID:                 s.snowflake.Generate().Int64(),
		Title:              req.Title,
		Description:        req.Description,
		PriceCents:         req.PriceCents,
		OriginalPriceCents: req.OriginalPriceCents,
		Condition:          req.Condition,
		Status:             model.ProductStatusActive,
		CategoryID:         req.CategoryID,
		SellerID:           sellerID,
		PickupLocation:     req.PickupLocation,
		CampusArea:         req.CampusArea,
		IsNegotiable:       req.IsNegotiable,
		PickupOnly:         req.PickupOnly,
		DeliveryFeeCents:   req.DeliveryFeeCents,
		IsUrgent:           req.IsUrgent,
		Tags:               req.Tags,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Get 商品详情，浏览数 +1
func (s *ProductService) Get(ctx context.Context, id int64) (*ProductDetail, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// 浏览计数失败不影响详情返回
	_ = s.productRepo.IncrementViewCount(ctx, id)

	images, err := s.productRepo.ListImages(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ProductDetail{Product: product, Images: images}, nil
}

// Update 更新商品，只有卖家本人可以操作
func (s *ProductService) Update(ctx context.Context, userID, productID int64, req *UpdateProductRequest) (*model.Product, error) {
	if !model.ValidCondition(req.Condition) {
		return nil, ErrInvalidCondition
	}

	product, err := s.requireSeller(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if _, err := s.categoryRepo.GetByID(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	product.Title = req.Title
	product.Description = req.Description
	product.PriceCents = req.PriceCents
	product.OriginalPriceCents = req.OriginalPriceCents
	product.Condition = req.Condition
	product.CategoryID = req.CategoryID
	product.PickupLocation = req.PickupLocation
	product.CampusArea = req.CampusArea
	product.IsNegotiable = req.IsNegotiable
	product.PickupOnly = req.PickupOnly
	product.DeliveryFeeCents = req.DeliveryFeeCents
	product.IsUrgent = req.IsUrgent
	product.Tags = req.Tags

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateStatus 更新商品状态（下架、标记已售等），只有卖家本人可以操作
func (s *ProductService) UpdateStatus(ctx context.Context, userID, productID int64, status string) error {
	if !model.ValidProductStatus(status) {
		return ErrInvalidStatus
	}
	if _, err := s.requireSeller(ctx, userID, productID); err != nil {
		return err
	}
	return s.productRepo.UpdateStatus(ctx, productID, status)
}

// Search 搜索商品
func (s *ProductService) Search(ctx context.Context, filter *repository.SearchFilter) ([]*model.Product, error) {
	return s.productRepo.Search(ctx, filter)
}

// AddImage 添加商品图片，只有卖家本人可以操作
func (s *ProductService) AddImage(ctx context.Context, userID, productID int64, req *AddImageRequest) (*model.ProductImage, error) {
	if _, err := s.requireSeller(ctx, userID, productID); err != nil {
		return nil, err
	}

	images, err := s.productRepo.ListImages(ctx, productID)
	if err != nil {
		return nil, err
	}
	if s.maxImages > 0 && len(images) >= s.maxImages {
		return nil, ErrTooManyImages
	}

	image := &model.ProductImage{
		ID:        s.snowflake.Generate().Int64(),
		ProductID: productID,
		URL:       req.URL,
		AltText:   req.AltText,
		IsPrimary: req.IsPrimary,
		SortOrder: req.SortOrder,
	}
	if err := s.productRepo.AddImage(ctx, image); err != nil {
		return nil, err
	}
	return image, nil
}

// ListCategories 启用的分类列表
func (s *ProductService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	return s.categoryRepo.ListActive(ctx)
}

// GetCategoryBySlug 按 slug 获取分类
func (s *ProductService) GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error) {
	return s.categoryRepo.GetBySlug(ctx, slug)
}

func (s *ProductService) requireSeller(ctx context.Context, userID, productID int64) (*model.Product, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SellerID != userID {
		return nil, ErrNotProductSeller
	}
	return product, nil
}
