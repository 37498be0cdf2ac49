package service

import (
	"context"
	"errors"

	"sudooom.market/internal/model"
	"sudooom.market/internal/repository"
	"sudooom.market/pkg/snowflake"
)

var (
	ErrCannotRateSelf = errors.New("cannot rate yourself")
)

// CreateRatingRequest 创建评分请求
type CreateRatingRequest struct {
	RatedUserID     int64  `json:"rated_user_id,string" binding:"required"`
	Score           int    `json:"score" binding:"required,min=1,max=5"`
	Comment         string `json:"comment" binding:"max=1000"`
	TransactionType string `json:"transaction_type" binding:"required,oneof=sale purchase general"`
	ProductID       *int64 `json:"product_id,string"`
}

// RatingService 交易评分服务
type RatingService struct {
	ratingRepo *repository.RatingRepository
	userRepo   *repository.UserRepository
	snowflake  *snowflake.Node
}

// NewRatingService 创建评分服务
func NewRatingService(
	ratingRepo *repository.RatingRepository,
	userRepo *repository.UserRepository,
	sf *snowflake.Node,
) *RatingService {
	return &RatingService{
		ratingRepo: ratingRepo,
		userRepo:   userRepo,
		snowflake:  sf,
	}
}

// Create 给交易对方评分
func (s *RatingService) Create(ctx context.Context, raterID int64, req *CreateRatingRequest) (*model.Rating, error) {
	if raterID == req.RatedUserID {
		return nil, ErrCannotRateSelf
	}
	if _, err := s.userRepo.GetByID(ctx, req.RatedUserID); err != nil {
		return nil, err
	}

	rating := &model.Rating{
		ID:              s.snowflake.Generate().Int64(),
		RatedUserID:     req.RatedUserID,
		RaterID:         raterID,
		Score:           req.Score,
		Comment:         req.Comment,
		TransactionType: req.TransactionType,
		ProductID:       req.ProductID,
	}
	if err := s.ratingRepo.Create(ctx, rating); err != nil {
		return nil, err
	}
	return rating, nil
}

// ListForUser 用户收到的评分
func (s *RatingService) ListForUser(ctx context.Context, ratedUserID int64, limit, offset int) ([]*model.Rating, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.ratingRepo.ListForUser(ctx, ratedUserID, limit, offset)
}
