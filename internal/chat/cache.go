package chat

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// convIndexPrefix 用户会话索引: market:conv:index:{user_id} -> zset(conversation_id, 最近活动毫秒)
	convIndexPrefix = "market:conv:index:"
)

func buildConvIndexKey(userID int64) string {
	return convIndexPrefix + strconv.FormatInt(userID, 10)
}

// RecencyCache 会话最近活动索引（基于 Redis）
// 只做加速排序用途，Postgres 仍是权威数据；写入失败不影响主流程
type RecencyCache struct {
	redisClient *redis.Client
}

// NewRecencyCache 创建会话索引缓存
func NewRecencyCache(redisClient *redis.Client) *RecencyCache {
	return &RecencyCache{redisClient: redisClient}
}

// Touch 更新一批成员的会话索引（发消息、加成员时）
func (c *RecencyCache) Touch(ctx context.Context, userIDs []int64, conversationID int64) error {
	now := float64(time.Now().UnixMilli())
	member := strconv.FormatInt(conversationID, 10)

	pipe := c.redisClient.Pipeline()
	for _, userID := range userIDs {
		pipe.ZAdd(ctx, buildConvIndexKey(userID), redis.Z{Score: now, Member: member})
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Remove 从用户索引中移除会话（退出会话时）
func (c *RecencyCache) Remove(ctx context.Context, userID, conversationID int64) error {
	member := strconv.FormatInt(conversationID, 10)
	return c.redisClient.ZRem(ctx, buildConvIndexKey(userID), member).Err()
}

// Recent 按最近活动倒序返回会话 ID
func (c *RecencyCache) Recent(ctx context.Context, userID int64, offset, limit int64) ([]int64, error) {
	members, err := c.redisClient.ZRevRange(ctx, buildConvIndexKey(userID), offset, offset+limit-1).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
