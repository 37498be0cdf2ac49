package service

import (
	"context"

	"sudooom.market/internal/model"
	"sudooom.market/internal/repository"
	"sudooom.market/pkg/snowflake"
)

// FavoriteService 商品收藏服务
type FavoriteService struct {
	favoriteRepo *repository.FavoriteRepository
	productRepo  *repository.ProductRepository
	snowflake    *snowflake.Node
}

// NewFavoriteService 创建收藏服务
func NewFavoriteService(
	favoriteRepo *repository.FavoriteRepository,
	productRepo *repository.ProductRepository,
	sf *snowflake.Node,
) *FavoriteService {
	return &FavoriteService{
		favoriteRepo: favoriteRepo,
		productRepo:  productRepo,
		snowflake:    sf,
	}
}

// Add 收藏商品
func (s *FavoriteService) Add(ctx context.Context, userID, productID int64) error {
	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		return err
	}

	favorite := &model.Favorite{
		ID:        s.snowflake.Generate().Int64(),
		UserID:    userID,
		ProductID: productID,
	}
	return s.favoriteRepo.Add(ctx, favorite)
}

// Remove 取消收藏
func (s *FavoriteService) Remove(ctx context.Context, userID, productID int64) error {
	return s.favoriteRepo.Remove(ctx, userID, productID)
}

// List 用户收藏的商品
func (s *FavoriteService) List(ctx context.Context, userID int64, limit, offset int) ([]*model.Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.favoriteRepo.ListProducts(ctx, userID, limit, offset)
}
