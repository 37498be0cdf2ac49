package health

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

// Status 健康状态
type Status struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
	NATS     string `json:"nats"`
}

// Checker 健康检查器
// nc 可以为 nil（未部署 NATS 时视为不检查该项）
type Checker struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
	nc          *nats.Conn
}

// NewChecker 创建健康检查器
func NewChecker(db *pgxpool.Pool, redisClient *redis.Client, nc *nats.Conn) *Checker {
	return &Checker{
		db:          db,
		redisClient: redisClient,
		nc:          nc,
	}
}

// Check 执行健康检查
func (h *Checker) Check(ctx context.Context) *Status {
	status := &Status{}

	// 检查 PostgreSQL
	dbCtx, dbCancel := context.WithTimeout(ctx, 2*time.Second)
	defer dbCancel()

	if err := h.db.Ping(dbCtx); err == nil {
		status.Database = "connected"
	} else {
		status.Database = "disconnected"
	}

	// 检查 Redis
	redisCtx, redisCancel := context.WithTimeout(ctx, 2*time.Second)
	defer redisCancel()

	if err := h.redisClient.Ping(redisCtx).Err(); err == nil {
		status.Redis = "connected"
	} else {
		status.Redis = "disconnected"
	}

	// 检查 NATS
	switch {
	case h.nc == nil:
		status.NATS = "disabled"
	case h.nc.IsConnected():
		status.NATS = "connected"
	default:
		status.NATS = "disconnected"
	}

	return status
}

// IsHealthy 检查是否健康
func (h *Checker) IsHealthy(ctx context.Context) bool {
	status := h.Check(ctx)
	return status.Database == "connected" &&
		status.Redis == "connected" &&
		status.NATS != "disconnected"
}
