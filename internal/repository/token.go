package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// tokenUserPrefix 用户Token前缀: market:user:token:{user_id} -> accessToken
	tokenUserPrefix = "market:user:token:"
	// tokenInfoPrefix Token信息前缀: market:token:info:{accessToken} -> userInfo JSON
	tokenInfoPrefix = "market:token:info:"
)

// UserTokenInfo 存储在 Redis 中的会话信息
type UserTokenInfo struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// TokenRepository Token 数据访问层
// Access Token 登录时写入，登出时删除，中间件据此判断 Token 是否已注销
type TokenRepository struct {
	rdb *redis.Client
}

// NewTokenRepository 创建 Token 仓库
func NewTokenRepository(rdb *redis.Client) *TokenRepository {
	return &TokenRepository{rdb: rdb}
}

func buildUserTokenKey(userID int64) string {
	return fmt.Sprintf("%s%d", tokenUserPrefix, userID)
}

func buildTokenInfoKey(accessToken string) string {
	return tokenInfoPrefix + accessToken
}

// SaveToken 保存 Token
// 1. market:user:token:{user_id} -> accessToken
// 2. market:token:info:{accessToken} -> userInfo JSON
func (r *TokenRepository) SaveToken(ctx context.Context, userInfo *UserTokenInfo, accessToken string, expiration time.Duration) error {
	userInfoJSON, err := json.Marshal(userInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal user info: %w", err)
	}

	pipe := r.rdb.Pipeline()
	pipe.Set(ctx, buildUserTokenKey(userInfo.UserID), accessToken, expiration)
	pipe.Set(ctx, buildTokenInfoKey(accessToken), userInfoJSON, expiration)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	return nil
}

// GetUserInfoByToken 根据 Token 获取会话信息，不存在时返回 (nil, nil)
func (r *TokenRepository) GetUserInfoByToken(ctx context.Context, accessToken string) (*UserTokenInfo, error) {
	data, err := r.rdb.Get(ctx, buildTokenInfoKey(accessToken)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var userInfo UserTokenInfo
	if err := json.Unmarshal([]byte(data), &userInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user info: %w", err)
	}
	return &userInfo, nil
}

// DeleteToken 删除 Token（登出时使用）
func (r *TokenRepository) DeleteToken(ctx context.Context, userID int64, accessToken string) error {
	pipe := r.rdb.Pipeline()
	pipe.Del(ctx, buildTokenInfoKey(accessToken))
	pipe.Del(ctx, buildUserTokenKey(userID))
	_, err := pipe.Exec(ctx)
	return err
}

// DeleteOldToken 删除旧 Token（重新登录时清理）
func (r *TokenRepository) DeleteOldToken(ctx context.Context, userID int64) error {
	oldToken, err := r.rdb.Get(ctx, buildUserTokenKey(userID)).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}
	return r.rdb.Del(ctx, buildTokenInfoKey(oldToken)).Err()
}
