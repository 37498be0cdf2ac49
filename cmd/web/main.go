package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"sudooom.market/internal/chat"
	"sudooom.market/internal/config"
	"sudooom.market/internal/handler"
	"sudooom.market/internal/health"
	"sudooom.market/internal/jwt"
	"sudooom.market/internal/repository"
	"sudooom.market/internal/router"
	"sudooom.market/internal/service"
	"sudooom.market/pkg/snowflake"
)

// @title           Sudooom Market API
// @version         1.0
// @description     校园二手交易平台后端
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 初始化日志
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// 加载配置
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// 创建上下文
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 连接数据库
	db, err := connectDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL", "host", cfg.Database.Host)

	// 连接 Redis
	redisClient := connectRedis(cfg.Redis)
	defer redisClient.Close()
	logger.Info("Connected to Redis", "host", cfg.Redis.Host)

	// 连接 NATS（事件推送为尽力而为，连不上不阻止启动）
	nc := connectNATS(cfg.NATS, logger)
	if nc != nil {
		defer nc.Close()
	}

	// 初始化 JWT 服务
	jwtService := jwt.NewService(
		cfg.JWT.SecretKey,
		cfg.JWT.AccessExpire,
		cfg.JWT.RefreshExpire,
	)

	// 初始化雪花ID生成器
	sfNode, err := snowflake.NewNode(1)
	if err != nil {
		logger.Error("Failed to create snowflake node", "error", err)
		os.Exit(1)
	}

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(redisClient)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	ratingRepo := repository.NewRatingRepository(db)

	// 初始化会话存储和服务
	chatStore := chat.NewPostgresStore(db)
	chatCache := chat.NewRecencyCache(redisClient)
	var chatEvents *chat.EventPublisher
	if nc != nil {
		chatEvents = chat.NewEventPublisher(nc)
	}
	chatService := chat.NewService(
		chatStore,
		chatCache,
		chatEvents,
		sfNode,
		cfg.Chat.MaxMessageLength,
		cfg.Chat.PageSize,
	)

	// 初始化 Service
	authService := service.NewAuthService(userRepo, tokenRepo, jwtService, sfNode, cfg.Market.AllowedEmailDomains)
	userService := service.NewUserService(userRepo)
	productService := service.NewProductService(productRepo, categoryRepo, sfNode, cfg.Market.MaxImagesPerProduct)
	favoriteService := service.NewFavoriteService(favoriteRepo, productRepo, sfNode)
	ratingService := service.NewRatingService(ratingRepo, userRepo, sfNode)

	// 初始化 Handler
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService, ratingService)
	productHandler := handler.NewProductHandler(productService, favoriteService)
	chatHandler := handler.NewChatHandler(chatService)

	// 健康检查
	checker := health.NewChecker(db, redisClient, nc)

	// 设置路由
	r := router.SetupRouter(cfg, jwtService, tokenRepo, checker, authHandler, userHandler, productHandler, chatHandler)

	// 启动服务器
	addr := fmt.Sprintf(":%d", cfg.App.Port)
	go func() {
		logger.Info("Web server started", "addr", addr, "mode", cfg.App.Mode)
		if err := r.Run(addr); err != nil {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// 优雅退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancel()
	logger.Info("Server stopped")
}

// connectDatabase 连接 PostgreSQL
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = 10 * time.Minute

	return pgxpool.NewWithConfig(ctx, poolConfig)
}

// connectRedis 连接 Redis
func connectRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// connectNATS 连接 NATS，失败时返回 nil
func connectNATS(cfg config.NATSConfig, logger *slog.Logger) *nats.Conn {
	nc, err := nats.Connect(cfg.URL,
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
	)
	if err != nil {
		logger.Warn("Failed to connect to NATS, events disabled", "url", cfg.URL, "error", err)
		return nil
	}
	logger.Info("Connected to NATS", "url", cfg.URL)
	return nc
}
