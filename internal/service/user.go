package service

import (
	"context"

	"sudooom.market/internal/model"
	"sudooom.market/internal/repository"
)

// UpdateProfileRequest 更新个人资料请求
type UpdateProfileRequest struct {
	FirstName      string `json:"first_name" binding:"required,min=1,max=150"`
	LastName       string `json:"last_name" binding:"required,min=1,max=150"`
	Phone          string `json:"phone" binding:"max=15"`
	AvatarURL      string `json:"avatar_url" binding:"max=500"`
	Bio            string `json:"bio" binding:"max=500"`
	CampusLocation string `json:"campus_location" binding:"max=200"`
}

// UserProfile 对外展示的用户资料
type UserProfile struct {
	ID             int64   `json:"id,string"`
	Email          string  `json:"email"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	University     string  `json:"university"`
	Phone          string  `json:"phone,omitempty"`
	AvatarURL      string  `json:"avatar_url"`
	Bio            string  `json:"bio"`
	CampusLocation string  `json:"campus_location"`
	EmailVerified  bool    `json:"email_verified"`
	AverageRating  float64 `json:"average_rating"`
	TotalRatings   int     `json:"total_ratings"`
	TotalSales     int     `json:"total_sales"`
	TotalPurchases int     `json:"total_purchases"`
}

// UserService 用户服务
type UserService struct {
	userRepo *repository.UserRepository
}

// NewUserService 创建用户服务
func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// GetProfile 获取用户资料
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toProfile(user), nil
}

// UpdateProfile 更新个人资料
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.FirstName = req.FirstName
	user.LastName = req.LastName
	user.Phone = req.Phone
	user.AvatarURL = req.AvatarURL
	user.Bio = req.Bio
	user.CampusLocation = req.CampusLocation

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return toProfile(user), nil
}

// Search 按姓名或学校搜索用户
func (s *UserService) Search(ctx context.Context, keyword string, limit, offset int) ([]*UserProfile, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	users, err := s.userRepo.Search(ctx, keyword, limit, offset)
	if err != nil {
		return nil, err
	}

	profiles := make([]*UserProfile, 0, len(users))
	for _, user := range users {
		profiles = append(profiles, toProfile(user))
	}
	return profiles, nil
}

func toProfile(user *model.User) *UserProfile {
	return &UserProfile{
		ID:             user.ID,
		Email:          user.Email,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		University:     user.University,
		Phone:          user.Phone,
		AvatarURL:      user.AvatarURL,
		Bio:            user.Bio,
		CampusLocation: user.CampusLocation,
		EmailVerified:  user.EmailVerified,
		AverageRating:  user.AverageRating,
		TotalRatings:   user.TotalRatings,
		TotalSales:     user.TotalSales,
		TotalPurchases: user.TotalPurchases,
	}
}
