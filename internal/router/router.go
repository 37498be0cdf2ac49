package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"sudooom.market/internal/config"
	"sudooom.market/internal/handler"
	"sudooom.market/internal/health"
	"sudooom.market/internal/jwt"
	"sudooom.market/internal/middleware"
	"sudooom.market/internal/repository"
)

// SetupRouter 设置路由
func SetupRouter(
	cfg *config.Config,
	jwtService *jwt.Service,
	tokenRepo *repository.TokenRepository,
	checker *health.Checker,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	productHandler *handler.ProductHandler,
	chatHandler *handler.ChatHandler,
) *gin.Engine {
	// 设置 Gin 模式
	gin.SetMode(cfg.App.Mode)

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowCredentials,
	))

	// Swagger 文档路由
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		status := checker.Check(c.Request.Context())
		code := http.StatusOK
		if !checker.IsHealthy(c.Request.Context()) {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 认证接口（无需登录）
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
		}

		// 需要认证的接口
		authenticated := v1.Group("")
		authenticated.Use(middleware.TokenAuth(jwtService, tokenRepo))
		{
			// 登出
			authenticated.POST("/auth/logout", authHandler.Logout)

			// 用户接口
			user := authenticated.Group("/user")
			{
				user.GET("/profile", userHandler.GetProfile)
				user.PUT("/profile", userHandler.UpdateProfile)
				user.GET("/search", userHandler.Search)
				user.GET("/:id", userHandler.GetUserByID)
				user.GET("/:id/ratings", userHandler.ListRatings)
			}

			// 评分接口
			authenticated.POST("/ratings", userHandler.CreateRating)

			// 分类接口
			authenticated.GET("/categories", productHandler.ListCategories)

			// 商品接口
			products := authenticated.Group("/products")
			{
				products.GET("", productHandler.Search)
				products.POST("", productHandler.Create)
				products.GET("/:id", productHandler.Get)
				products.PUT("/:id", productHandler.Update)
				products.PUT("/:id/status", productHandler.UpdateStatus)
				products.POST("/:id/images", productHandler.AddImage)
				products.POST("/:id/favorite", productHandler.AddFavorite)
				products.DELETE("/:id/favorite", productHandler.RemoveFavorite)
			}

			// 收藏列表
			authenticated.GET("/favorites", productHandler.ListFavorites)

			// 会话接口
			conversations := authenticated.Group("/conversations")
			{
				conversations.GET("", chatHandler.ListConversations)
				conversations.POST("", chatHandler.CreateConversation)
				conversations.GET("/unread", chatHandler.UnreadTotal)
				conversations.GET("/:id", chatHandler.GetConversation)
				conversations.GET("/:id/messages", chatHandler.ListMessages)
				conversations.POST("/:id/messages", chatHandler.SendMessage)
				conversations.PUT("/:id/read", chatHandler.MarkRead)
				conversations.GET("/:id/unread", chatHandler.UnreadCount)
				conversations.POST("/:id/members", chatHandler.AddParticipant)
				conversations.DELETE("/:id/members/me", chatHandler.LeaveConversation)
			}

			// 消息接口
			authenticated.DELETE("/messages/:id", chatHandler.DeleteMessage)
		}
	}

	return r
}
