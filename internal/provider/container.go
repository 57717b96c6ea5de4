package provider

import (
	"github.com/craftkart/api/internal/cache"
	"github.com/craftkart/api/internal/config"
	"github.com/craftkart/api/internal/logger"
	"github.com/craftkart/api/internal/models"
	"github.com/craftkart/api/internal/queue"
	"github.com/craftkart/api/internal/repository"
	"github.com/craftkart/api/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	UserRepo          repository.UserRepository
	CategoryRepo      repository.CategoryRepository
	ProductRepo       repository.ProductRepository
	DiscountRepo      repository.DiscountRepository
	DiscountUsageRepo repository.DiscountUsageRepository
	QuantityRuleRepo  repository.QuantityPriceRuleRepository
	OrderRepo         repository.OrderRepository
	PaymentRepo       repository.PaymentRepository
	DashboardRepo     repository.DashboardRepository

	// Services
	AuthService          *service.AuthService
	CategoryService      *service.CategoryService
	ProductService       *service.ProductService
	PricingService       *service.PricingService
	DiscountService      *service.DiscountService
	CartService          *service.CartService
	OrderService         *service.OrderService
	PaymentService       *service.PaymentService
	DiscountAdminService *service.DiscountAdminService
	DashboardService     *service.DashboardService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.CategoryRepo = repository.NewCategoryRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.DiscountRepo = repository.NewDiscountRepository(db)
	c.DiscountUsageRepo = repository.NewDiscountUsageRepository(db)
	c.QuantityRuleRepo = repository.NewQuantityPriceRuleRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.DashboardRepo = repository.NewDashboardRepository(db)
}

func (c *Container) initServices() {
	c.AuthService = service.NewAuthService(c.UserRepo, c.Config.JWT)
	c.CategoryService = service.NewCategoryService(c.CategoryRepo)
	c.ProductService = service.NewProductService(c.ProductRepo, c.CategoryRepo)
	c.PricingService = service.NewPricingService(c.QuantityRuleRepo)
	c.DiscountService = service.NewDiscountService(c.DiscountRepo, c.DiscountUsageRepo, c.UserRepo)
	c.CartService = service.NewCartService(c.ProductRepo, c.DiscountService)
	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.ProductRepo,
		c.DiscountRepo,
		c.DiscountUsageRepo,
		c.PricingService,
		c.CartService,
		c.QueueClient,
		c.Config.Order,
	)
	c.PaymentService = service.NewPaymentService(
		c.PaymentRepo,
		c.OrderRepo,
		c.OrderService,
		c.QueueClient,
		c.Config.Payment,
	)
	c.DiscountAdminService = service.NewDiscountAdminService(
		c.DiscountRepo,
		c.DiscountUsageRepo,
		c.QuantityRuleRepo,
		c.ProductRepo,
		c.CategoryRepo,
	)
	c.DashboardService = service.NewDashboardService(c.DashboardRepo)
}
