package main

import (
	"time"

	"github.com/craftkart/api/internal/config"
	"github.com/craftkart/api/internal/constants"
	"github.com/craftkart/api/internal/logger"
	"github.com/craftkart/api/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 初始化默认管理员
	if err := models.InitDefaultAdmin("", ""); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	}

	// 添加演示账号（零售 + 批发各一个，密码均为 password123）
	demoHash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		stdLog.Fatalf("Failed to hash demo password: %v", err)
	}
	users := []models.User{
		{
			Email:        "priya@example.com",
			PasswordHash: string(demoHash),
			Name:         "Priya Sharma",
			Phone:        "+919876543210",
			Role:         constants.UserRoleCustomer,
			IsActive:     true,
		},
		{
			Email:        "orders@meerahandicrafts.in",
			PasswordHash: string(demoHash),
			Name:         "Meera Handicrafts",
			Phone:        "+919812345678",
			Role:         constants.UserRoleWholesale,
			IsActive:     true,
		},
	}
	for _, user := range users {
		var existing models.User
		if err := models.DB.Where("email = ?", user.Email).First(&existing).Error; err != nil {
			if err := models.DB.Create(&user).Error; err != nil {
				stdLog.Printf("Failed to create user %s: %v", user.Email, err)
			} else {
				stdLog.Printf("Created user: %s (%s)", user.Email, user.Role)
			}
		} else {
			stdLog.Printf("User already exists: %s", user.Email)
		}
	}

	// 添加分类
	categories := []models.Category{
		{Slug: "home-decor", Name: "Home Decor", SortOrder: 1, IsActive: true},
		{Slug: "personalised-gifts", Name: "Personalised Gifts", SortOrder: 2, IsActive: true},
		{Slug: "festive-hampers", Name: "Festive Hampers", SortOrder: 3, IsActive: true},
	}
	for _, cat := range categories {
		var existing models.Category
		if err := models.DB.Where("slug = ?", cat.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&cat).Error; err != nil {
				stdLog.Printf("Failed to create category %s: %v", cat.Slug, err)
			} else {
				stdLog.Printf("Created category: %s", cat.Slug)
			}
		} else {
			stdLog.Printf("Category already exists: %s", cat.Slug)
		}
	}

	categoryIDs := map[string]uint{}
	var categoryList []models.Category
	if err := models.DB.Find(&categoryList).Error; err != nil {
		stdLog.Printf("Failed to load categories: %v", err)
	}
	for _, cat := range categoryList {
		categoryIDs[cat.Slug] = cat.ID
	}

	// 添加子类（批量价规则挂在子类上）
	subcategories := []models.Subcategory{
		{CategoryID: categoryIDs["home-decor"], Slug: "scented-candles", Name: "Scented Candles", SortOrder: 1, IsActive: true},
		{CategoryID: categoryIDs["home-decor"], Slug: "brass-idols", Name: "Brass Idols", SortOrder: 2, IsActive: true},
		{CategoryID: categoryIDs["home-decor"], Slug: "wall-hangings", Name: "Wall Hangings", SortOrder: 3, IsActive: true},
		{CategoryID: categoryIDs["personalised-gifts"], Slug: "photo-mugs", Name: "Photo Mugs", SortOrder: 1, IsActive: true},
		{CategoryID: categoryIDs["personalised-gifts"], Slug: "engraved-keychains", Name: "Engraved Keychains", SortOrder: 2, IsActive: true},
		{CategoryID: categoryIDs["personalised-gifts"], Slug: "photo-frames", Name: "Photo Frames", SortOrder: 3, IsActive: true},
		{CategoryID: categoryIDs["festive-hampers"], Slug: "diwali-hampers", Name: "Diwali Hampers", SortOrder: 1, IsActive: true},
		{CategoryID: categoryIDs["festive-hampers"], Slug: "corporate-hampers", Name: "Corporate Hampers", SortOrder: 2, IsActive: true},
	}
	for _, sub := range subcategories {
		var existing models.Subcategory
		if err := models.DB.Where("slug = ?", sub.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&sub).Error; err != nil {
				stdLog.Printf("Failed to create subcategory %s: %v", sub.Slug, err)
			} else {
				stdLog.Printf("Created subcategory: %s", sub.Slug)
			}
		} else {
			stdLog.Printf("Subcategory already exists: %s", sub.Slug)
		}
	}

	subcategoryIDs := map[string]uint{}
	var subcategoryList []models.Subcategory
	if err := models.DB.Find(&subcategoryList).Error; err != nil {
		stdLog.Printf("Failed to load subcategories: %v", err)
	}
	for _, sub := range subcategoryList {
		subcategoryIDs[sub.Slug] = sub.ID
	}
	subcatID := func(slug string) *uint {
		if id, ok := subcategoryIDs[slug]; ok && id != 0 {
			return &id
		}
		return nil
	}

	// 添加商品
	products := []models.Product{
		{
			CategoryID:     categoryIDs["home-decor"],
			SubcategoryID:  subcatID("scented-candles"),
			Slug:           "lavender-candle-jar",
			Name:           "Lavender Soy Candle Jar",
			Description:    "Hand-poured soy wax candle with calming lavender notes, 40 hour burn time.",
			NormalPrice:    models.NewMoneyFromDecimal(decimal.NewFromInt(499)),
			OfferPrice:     models.NewMoneyFromDecimal(decimal.NewFromInt(399)),
			WholesalePrice: models.NewMoneyFromDecimal(decimal.NewFromInt(280)),
			Images:         models.StringArray([]string{"https://images.unsplash.com/photo-1602874801007-bd458bb1b8b6?w=800"}),
			SortOrder:      1,
			IsActive:       true,
		},
		{
			CategoryID:     categoryIDs["home-decor"],
			SubcategoryID:  subcatID("brass-idols"),
			Slug:           "brass-ganesha-idol",
			Name:           "Brass Ganesha Idol",
			Description:    "Antique-finish brass Ganesha, hand polished by artisans in Moradabad.",
			NormalPrice:    models.NewMoneyFromDecimal(decimal.NewFromInt(1499)),
			WholesalePrice: models.NewMoneyFromDecimal(decimal.NewFromInt(1100)),
			Images:         models.StringArray([]string{"https://images.unsplash.com/photo-1567591370504-80f57b90ad4f?w=800"}),
			SortOrder:      2,
			IsActive:       true,
		},
		{
			CategoryID:     categoryIDs["home-decor"],
			SubcategoryID:  subcatID("wall-hangings"),
			Slug:           "macrame-wall-hanging",
			Name:           "Macrame Wall Hanging",
			Description:    "Hand-knotted cotton macrame with wooden dowel, ready to hang.",
			NormalPrice:    models.NewMoneyFromDecimal(decimal.NewFromInt(899)),
			OfferPrice:     models.NewMoneyFromDecimal(decimal.NewFromInt(799)),
			WholesalePrice: models.NewMoneyFromDecimal(decimal.NewFromInt(600)),
			Images:         models.StringArray([]string{"https://images.unsplash.com/photo-1622163642998-1ea32b0bbc67?w=800"}),
			SortOrder:      3,
			IsActive:       true,
		},
		{
			CategoryID:     categoryIDs["personalised-gifts"],
			SubcategoryID:  subcatID("photo-mugs"),
			Slug:           "custom-photo-mug",
			Name:           "Custom Photo Mug",
			Description:    "Ceramic mug printed with your photo, dishwasher safe, 325 ml.",
			NormalPrice:    models.NewMoneyFromDecimal(decimal.NewFromInt(349)),
			OfferPrice:     models.NewMoneyFromDecimal(decimal.NewFromInt(299)),
			WholesalePrice: models.NewMoneyFromDecimal(decimal.NewFromInt(220)),
			Images:         models.StringArray([]string{"https://images.unsplash.com/photo-1514228742587-6b1558fcca3d?w=800"}),
			SortOrder:      1,
			IsActive:       true,
		},
		{
			CategoryID:     categoryIDs["personalised-gifts"],
			SubcategoryID:  subcatID("engraved-keychains"),
			Slug:           "engraved-wooden-keychain",
			Name:           "Engraved Wooden Keychain",
			Description:    "Laser engraved hardwood keychain, name or initials up to 12 characters.",
			NormalPrice:    models.NewMoneyFromDecimal(decimal.NewFromInt(199)),
			OfferPrice:     models.NewMoneyFromDecimal(decimal.NewFromInt(149)),
			WholesalePrice: models.NewMoneyFromDecimal(decimal.NewFromInt(90)),
			Images:         models.StringArray([]string{"https://images.unsplash.com/photo-1609709295948-17d77cb2a69b?w=800"}),
			SortOrder:      2,
			IsActive:       true,
		},
		{
			CategoryID:     categoryIDs["festive-hampers"],
			SubcategoryID:  subcatID("diwali-hampers"),
			Slug:           "diwali-dry-fruit-hamper",
			Name:           "Diwali Dry Fruit Hamper",
			Description:    "Almonds, cashews and pistachios in a reusable wooden tray with diyas.",
			NormalPrice:    models.NewMoneyFromDecimal(decimal.NewFromInt(1999)),
			OfferPrice:     models.NewMoneyFromDecimal(decimal.NewFromInt(1799)),
			WholesalePrice: models.NewMoneyFromDecimal(decimal.NewFromInt(1500)),
			Images:         models.StringArray([]string{"https://images.unsplash.com/photo-1601050690597-df0568f70950?w=800"}),
			SortOrder:      1,
			IsActive:       true,
		},
	}
	for _, product := range products {
		var existing models.Product
		if err := models.DB.Where("slug = ?", product.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&product).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", product.Slug, err)
			} else {
				stdLog.Printf("Created product: %s", product.Slug)
			}
		} else {
			stdLog.Printf("Product already exists: %s", product.Slug)
		}
	}

	productIDs := map[string]uint{}
	var productList []models.Product
	if err := models.DB.Find(&productList).Error; err != nil {
		stdLog.Printf("Failed to load products: %v", err)
	}
	for _, product := range productList {
		productIDs[product.Slug] = product.ID
	}

	// 添加商品规格（Price 为 0 表示沿用商品价）
	type variantSeed struct {
		ProductSlug string
		Name        string
		Price       int64
		Stock       int
	}
	variants := []variantSeed{
		{ProductSlug: "lavender-candle-jar", Name: "Small (200g)", Price: 0, Stock: 120},
		{ProductSlug: "lavender-candle-jar", Name: "Large (450g)", Price: 699, Stock: 60},
		{ProductSlug: "brass-ganesha-idol", Name: "4 inch", Price: 0, Stock: 35},
		{ProductSlug: "brass-ganesha-idol", Name: "6 inch", Price: 2299, Stock: 20},
		{ProductSlug: "macrame-wall-hanging", Name: "Natural", Price: 0, Stock: 45},
		{ProductSlug: "macrame-wall-hanging", Name: "Ivory", Price: 0, Stock: 30},
		{ProductSlug: "custom-photo-mug", Name: "White", Price: 0, Stock: 200},
		{ProductSlug: "custom-photo-mug", Name: "Black Magic", Price: 399, Stock: 80},
		{ProductSlug: "engraved-wooden-keychain", Name: "Classic Oak", Price: 0, Stock: 500},
		{ProductSlug: "engraved-wooden-keychain", Name: "Walnut", Price: 179, Stock: 300},
		{ProductSlug: "diwali-dry-fruit-hamper", Name: "Classic Box", Price: 0, Stock: 50},
		{ProductSlug: "diwali-dry-fruit-hamper", Name: "Premium Box", Price: 2999, Stock: 25},
	}
	for _, seed := range variants {
		productID := productIDs[seed.ProductSlug]
		if productID == 0 {
			stdLog.Printf("Skip variant %s: product %s missing", seed.Name, seed.ProductSlug)
			continue
		}
		var existing models.ProductVariant
		if err := models.DB.Where("product_id = ? AND name = ?", productID, seed.Name).First(&existing).Error; err != nil {
			variant := models.ProductVariant{
				ProductID: productID,
				Name:      seed.Name,
				Price:     models.NewMoneyFromDecimal(decimal.NewFromInt(seed.Price)),
				Stock:     seed.Stock,
				IsActive:  true,
			}
			if err := models.DB.Create(&variant).Error; err != nil {
				stdLog.Printf("Failed to create variant %s/%s: %v", seed.ProductSlug, seed.Name, err)
			} else {
				stdLog.Printf("Created variant: %s/%s", seed.ProductSlug, seed.Name)
			}
		} else {
			stdLog.Printf("Variant already exists: %s/%s", seed.ProductSlug, seed.Name)
		}
	}

	// 添加批量价规则（percentage 为折扣百分比，fixed_amount 为整行总价覆盖）
	type ruleSeed struct {
		SubcategorySlug string
		Quantity        int
		PriceType       string
		Value           int64
	}
	rules := []ruleSeed{
		{SubcategorySlug: "photo-mugs", Quantity: 12, PriceType: constants.QuantityPriceTypePercentage, Value: 10},
		{SubcategorySlug: "photo-mugs", Quantity: 48, PriceType: constants.QuantityPriceTypePercentage, Value: 20},
		{SubcategorySlug: "engraved-keychains", Quantity: 25, PriceType: constants.QuantityPriceTypePercentage, Value: 15},
		{SubcategorySlug: "engraved-keychains", Quantity: 100, PriceType: constants.QuantityPriceTypeFixedAmount, Value: 8000},
		{SubcategorySlug: "diwali-hampers", Quantity: 10, PriceType: constants.QuantityPriceTypePercentage, Value: 12},
	}
	for _, seed := range rules {
		subID := subcategoryIDs[seed.SubcategorySlug]
		if subID == 0 {
			stdLog.Printf("Skip quantity rule: subcategory %s missing", seed.SubcategorySlug)
			continue
		}
		var existing models.QuantityPriceRule
		if err := models.DB.Where("subcategory_id = ? AND quantity = ?", subID, seed.Quantity).First(&existing).Error; err != nil {
			rule := models.QuantityPriceRule{
				SubcategoryID: subID,
				Quantity:      seed.Quantity,
				PriceType:     seed.PriceType,
				Value:         models.NewMoneyFromDecimal(decimal.NewFromInt(seed.Value)),
				IsActive:      true,
			}
			if err := models.DB.Create(&rule).Error; err != nil {
				stdLog.Printf("Failed to create quantity rule %s@%d: %v", seed.SubcategorySlug, seed.Quantity, err)
			} else {
				stdLog.Printf("Created quantity rule: %s@%d", seed.SubcategorySlug, seed.Quantity)
			}
		} else {
			stdLog.Printf("Quantity rule already exists: %s@%d", seed.SubcategorySlug, seed.Quantity)
		}
	}

	// 添加折扣（Name 兼作优惠码）
	now := time.Now()
	mugProductID := productIDs["custom-photo-mug"]
	hamperCategoryID := categoryIDs["festive-hampers"]
	discounts := []models.Discount{
		{
			Name:           "WELCOME10",
			Description:    "Flat 10% off your first order above Rs.499",
			DiscountType:   constants.DiscountTypePercentage,
			DiscountValue:  models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
			MinOrderAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(499)),
			MaxDiscount:    models.NewMoneyFromDecimal(decimal.NewFromInt(200)),
			PerUserLimit:   1,
			ValidFrom:      now.AddDate(0, 0, -1),
			ValidUntil:     now.AddDate(1, 0, 0),
			IsActive:       true,
		},
		{
			Name:           "DIWALI25",
			Description:    "Diwali sale: 25% off orders above Rs.1499, capped at Rs.1000",
			DiscountType:   constants.DiscountTypePercentage,
			DiscountValue:  models.NewMoneyFromDecimal(decimal.NewFromInt(25)),
			MinOrderAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(1499)),
			MaxDiscount:    models.NewMoneyFromDecimal(decimal.NewFromInt(1000)),
			UsageLimit:     500,
			PerUserLimit:   2,
			ValidFrom:      time.Date(2026, time.October, 25, 0, 0, 0, 0, time.UTC),
			ValidUntil:     time.Date(2026, time.November, 20, 23, 59, 59, 0, time.UTC),
			IsActive:       true,
		},
		{
			Name:           "BULKBUYER500",
			Description:    "Rs.500 off wholesale orders above Rs.5000",
			DiscountType:   constants.DiscountTypeFixedAmount,
			DiscountValue:  models.NewMoneyFromDecimal(decimal.NewFromInt(500)),
			UserType:       constants.UserRoleWholesale,
			MinOrderAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(5000)),
			PerUserLimit:   10,
			ValidFrom:      now.AddDate(0, 0, -1),
			ValidUntil:     now.AddDate(1, 0, 0),
			IsActive:       true,
		},
		{
			Name:          "MUGFEST",
			Description:   "Buy 3 photo mugs, get Rs.299 off the line",
			DiscountType:  constants.DiscountTypeBuyXGetY,
			DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(299)),
			ProductID: func() *uint {
				if mugProductID == 0 {
					return nil
				}
				return &mugProductID
			}(),
			MinQuantity:  3,
			PerUserLimit: 5,
			ValidFrom:    now.AddDate(0, 0, -1),
			ValidUntil:   now.AddDate(0, 6, 0),
			IsActive:     true,
		},
		{
			Name:          "HAMPER150",
			Description:   "Rs.150 off festive hampers above Rs.1999",
			DiscountType:  constants.DiscountTypeFixedAmount,
			DiscountValue: models.NewMoneyFromDecimal(decimal.NewFromInt(150)),
			CategoryID: func() *uint {
				if hamperCategoryID == 0 {
					return nil
				}
				return &hamperCategoryID
			}(),
			MinOrderAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(1999)),
			PerUserLimit:   3,
			ValidFrom:      now.AddDate(0, 0, -1),
			ValidUntil:     now.AddDate(0, 3, 0),
			IsActive:       true,
		},
	}
	for _, discount := range discounts {
		var existing models.Discount
		if err := models.DB.Where("name = ?", discount.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&discount).Error; err != nil {
				stdLog.Printf("Failed to create discount %s: %v", discount.Name, err)
			} else {
				stdLog.Printf("Created discount: %s", discount.Name)
			}
		} else {
			stdLog.Printf("Discount already exists: %s", discount.Name)
		}
	}

	stdLog.Printf("Seed completed")
}
