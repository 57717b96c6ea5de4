package router

import (
	"fmt"
	"strings"

	"github.com/craftkart/api/internal/cache"
	"github.com/craftkart/api/internal/config"
	adminhandlers "github.com/craftkart/api/internal/http/handlers/admin"
	publichandlers "github.com/craftkart/api/internal/http/handlers/public"
	"github.com/craftkart/api/internal/logger"
	"github.com/craftkart/api/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "ck"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxRequests,
		Message:       "Too many login attempts, please retry in %d seconds",
	}
	callbackRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:callback", redisPrefix),
		WindowSeconds: cfg.Security.CallbackRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CallbackRateLimit.MaxRequests,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/categories", publicHandler.ListCategories)
			public.GET("/products", publicHandler.ListProducts)
			public.GET("/products/:slug", publicHandler.GetProduct)
			public.GET("/shipping-cost", publicHandler.GetShippingCost)
			public.POST("/cart/calculate", publicHandler.CalculateCart)
			public.POST("/coupons/validate", publicHandler.ValidateCoupon)
		}

		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.Register)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.Login)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.UserRepo))
		{
			user.GET("/me", publicHandler.GetProfile)
			user.POST("/orders", publicHandler.CreateOrder)
			user.POST("/orders/preview", publicHandler.PreviewOrder)
			user.GET("/orders", publicHandler.ListOrders)
			user.GET("/orders/:order_no", publicHandler.GetOrder)
			user.POST("/orders/:order_no/cancel", publicHandler.CancelOrder)
			user.GET("/orders/:order_no/payment", publicHandler.GetOrderPayment)
			user.POST("/orders/:order_no/payment", publicHandler.CreatePayment)
		}

		// 支付回调（网关服务端调用，无需鉴权）
		callbackLimit := RateLimitMiddleware(redisClient, callbackRule, KeyByIP)
		apiV1.POST("/payments/razorpay/callback", callbackLimit, publicHandler.RazorpayCallback)
		apiV1.POST("/payments/razorpay/webhook", callbackLimit, publicHandler.RazorpayWebhook)
		apiV1.POST("/payments/phonepe/callback", callbackLimit, publicHandler.PhonepeCallback)

		// 管理员接口
		admin := apiV1.Group("/admin")
		admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.UserRepo), AdminRoleMiddleware())
		{
			// 仪表盘
			admin.GET("/dashboard/overview", adminHandler.GetDashboardOverview)
			admin.GET("/dashboard/trends", adminHandler.GetDashboardTrends)
			admin.GET("/dashboard/rankings", adminHandler.GetDashboardRankings)

			// 折扣管理
			admin.GET("/discounts", adminHandler.ListDiscounts)
			admin.GET("/discounts/:id", adminHandler.GetDiscount)
			admin.POST("/discounts", adminHandler.CreateDiscount)
			admin.PUT("/discounts/:id", adminHandler.UpdateDiscount)
			admin.PUT("/discounts/:id/toggle", adminHandler.ToggleDiscount)
			admin.DELETE("/discounts/:id", adminHandler.DeleteDiscount)
			admin.GET("/discounts/:id/usages", adminHandler.ListDiscountUsages)
			admin.POST("/discounts/:id/reconcile", adminHandler.ReconcileDiscount)

			// 数量阶梯价管理
			admin.GET("/quantity-rules", adminHandler.ListQuantityRules)
			admin.GET("/quantity-rules/:id", adminHandler.GetQuantityRule)
			admin.POST("/quantity-rules", adminHandler.CreateQuantityRule)
			admin.PUT("/quantity-rules/:id", adminHandler.UpdateQuantityRule)
			admin.DELETE("/quantity-rules/:id", adminHandler.DeleteQuantityRule)

			// 订单管理
			admin.GET("/orders", adminHandler.ListOrders)
			admin.GET("/orders/:order_no", adminHandler.GetOrder)
			admin.PUT("/orders/:order_no/status", adminHandler.UpdateOrderStatus)
			admin.POST("/orders/:order_no/refund", adminHandler.RefundOrder)

			// 支付流水
			admin.GET("/payments", adminHandler.ListPayments)

			// 分类管理
			admin.GET("/categories", adminHandler.ListAdminCategories)
			admin.POST("/categories", adminHandler.CreateCategory)
			admin.PUT("/categories/:id", adminHandler.UpdateCategory)
			admin.DELETE("/categories/:id", adminHandler.DeleteCategory)
			admin.GET("/categories/:id/subcategories", adminHandler.ListSubcategories)
			admin.POST("/categories/:id/subcategories", adminHandler.CreateSubcategory)
			admin.PUT("/subcategories/:id", adminHandler.UpdateSubcategory)
			admin.DELETE("/subcategories/:id", adminHandler.DeleteSubcategory)

			// 商品管理
			admin.GET("/products", adminHandler.ListAdminProducts)
			admin.GET("/products/:id", adminHandler.GetAdminProduct)
			admin.POST("/products", adminHandler.CreateProduct)
			admin.PUT("/products/:id", adminHandler.UpdateProduct)
			admin.DELETE("/products/:id", adminHandler.DeleteProduct)

			// 用户管理
			admin.GET("/users", adminHandler.GetAdminUsers)
			admin.GET("/users/:id", adminHandler.GetAdminUser)
			admin.PUT("/users/:id", adminHandler.UpdateAdminUser)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
