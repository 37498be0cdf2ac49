package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"sudooom.market/internal/jwt"
	"sudooom.market/internal/model"
	"sudooom.market/internal/repository"
	"sudooom.market/pkg/snowflake"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserDisabled       = errors.New("user is disabled")
	ErrEmailNotStudent    = errors.New("email domain is not an allowed student domain")
)

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=6,max=50"`
	FirstName  string `json:"first_name" binding:"required,min=1,max=150"`
	LastName   string `json:"last_name" binding:"required,min=1,max=150"`
	University string `json:"university" binding:"required,min=1,max=200"`
	StudentID  string `json:"student_id" binding:"max=50"`
	Phone      string `json:"phone" binding:"max=15"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	UserID       int64  `json:"user_id,string"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// AuthService 认证服务
type AuthService struct {
	userRepo       *repository.UserRepository
	tokenRepo      *repository.TokenRepository
	jwtService     *jwt.Service
	snowflake      *snowflake.Node
	allowedDomains []string
}

// NewAuthService 创建认证服务
func NewAuthService(
	userRepo *repository.UserRepository,
	tokenRepo *repository.TokenRepository,
	jwtService *jwt.Service,
	sf *snowflake.Node,
	allowedDomains []string,
) *AuthService {
	return &AuthService{
		userRepo:       userRepo,
		tokenRepo:      tokenRepo,
		jwtService:     jwtService,
		snowflake:      sf,
		allowedDomains: allowedDomains,
	}
}

// Register 用户注册
// 只允许配置中列出的校园邮箱域名
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if !s.isStudentEmail(email) {
		return nil, ErrEmailNotStudent
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, repository.ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		ID:           s.snowflake.Generate().Int64(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		University:   req.University,
		StudentID:    req.StudentID,
		Phone:        req.Phone,
		Status:       model.UserStatusNormal,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Login 用户登录
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.Status != model.UserStatusNormal {
		return nil, ErrUserDisabled
	}

	return s.issueTokens(ctx, user)
}

// RefreshToken 用 Refresh Token 换新的 Token 对
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*LoginResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user.Status != model.UserStatusNormal {
		return nil, ErrUserDisabled
	}

	return s.issueTokens(ctx, user)
}

// Logout 登出，注销 Access Token
func (s *AuthService) Logout(ctx context.Context, userID int64, accessToken string) error {
	return s.tokenRepo.DeleteToken(ctx, userID, accessToken)
}

// issueTokens 签发 Token 对并登记会话
func (s *AuthService) issueTokens(ctx context.Context, user *model.User) (*LoginResponse, error) {
	tokenPair, err := s.jwtService.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	// 清理旧会话，同一用户只保留最新的 Access Token
	if err := s.tokenRepo.DeleteOldToken(ctx, user.ID); err != nil {
		return nil, err
	}

	userInfo := &repository.UserTokenInfo{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	}
	if err := s.tokenRepo.SaveToken(ctx, userInfo, tokenPair.AccessToken, s.jwtService.AccessExpire()); err != nil {
		return nil, err
	}

	return &LoginResponse{
		UserID:       user.ID,
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    tokenPair.ExpiresAt,
	}, nil
}

// isStudentEmail 邮箱域名是否在允许列表内
func (s *AuthService) isStudentEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := email[at+1:]

	for _, allowed := range s.allowedDomains {
		if domain == allowed || strings.HasSuffix(domain, "."+allowed) {
			return true
		}
	}
	return false
}
